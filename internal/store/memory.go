// Package store holds the game repositories.
package store

import (
	"context"
	"sync"

	"github.com/kiliankoe/dixit/internal/game"
)

// Memory keeps snapshots in a map. Every Load rebuilds a fresh Game, so
// callers never share state with the store or with each other.
type Memory struct {
	mu    sync.RWMutex
	games map[string]game.Snapshot
}

func NewMemory() *Memory {
	return &Memory{games: make(map[string]game.Snapshot)}
}

func (m *Memory) Load(ctx context.Context, id string) (*game.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	snap, ok := m.games[id]
	m.mu.RUnlock()
	if !ok {
		return nil, game.NewError(game.KindNotFound, "game %s not found", id)
	}
	return game.Restore(snap)
}

func (m *Memory) Save(ctx context.Context, g *game.Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID()] = g.Snapshot()
	return nil
}

func (m *Memory) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games = make(map[string]game.Snapshot)
	return nil
}
