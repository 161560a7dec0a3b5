package game

import (
    "context"
    "fmt"
    "strings"
    "sync"

    "github.com/google/uuid"
    "github.com/rs/zerolog/log"
)

// Repository is the persistence collaborator. Load returns an error of kind
// KindNotFound for an unknown id.
type Repository interface {
    Load(ctx context.Context, id string) (*Game, error)
    Save(ctx context.Context, g *Game) error
    DeleteAll(ctx context.Context) error
}

// Notifier receives events after the state change has been saved.
type Notifier interface {
    Notify(ev Event)
}

// CardSource supplies a fresh set of uniquely numbered cards for a new game.
type CardSource func() ([]Card, error)

// Manager runs every action as load, mutate, save under a per-game lock.
// Reads take the same lock shared, so they never see a half-applied action.
type Manager struct {
    repo   Repository
    cards  CardSource
    opts   []Option
    notify Notifier

    exportFile string

    // gate is held shared by every game action and exclusively by DeleteAll.
    gate  sync.RWMutex
    mu    sync.Mutex
    locks map[string]*gameLock
}

// gameLock lives in Manager.locks only while some call holds or waits for it.
type gameLock struct {
    sync.RWMutex
    refs int
}

func NewManager(repo Repository, cards CardSource, opts ...Option) *Manager {
    return &Manager{repo: repo, cards: cards, opts: opts, locks: make(map[string]*gameLock)}
}

func (m *Manager) SetNotifier(n Notifier) { m.notify = n }

// SetExportFile enables appending scored rounds to filename.
func (m *Manager) SetExportFile(filename string) { m.exportFile = filename }

func (m *Manager) acquire(gameID string) *gameLock {
    m.mu.Lock()
    defer m.mu.Unlock()
    l := m.locks[gameID]
    if l == nil {
        l = &gameLock{}
        m.locks[gameID] = l
    }
    l.refs++
    return l
}

func (m *Manager) release(gameID string, l *gameLock) {
    m.mu.Lock()
    defer m.mu.Unlock()
    l.refs--
    if l.refs == 0 {
        delete(m.locks, gameID)
    }
}

func (m *Manager) update(ctx context.Context, gameID, action string, fn func(g *Game) ([]Event, error)) error {
    return m.updateThen(ctx, gameID, action, fn, nil)
}

// updateThen runs saved on the committed game, still under the game lock and
// before any event goes out.
func (m *Manager) updateThen(ctx context.Context, gameID, action string, fn func(g *Game) ([]Event, error), saved func(g *Game)) error {
    m.gate.RLock()
    defer m.gate.RUnlock()
    l := m.acquire(gameID)
    defer m.release(gameID, l)
    l.Lock()
    defer l.Unlock()

    g, err := m.repo.Load(ctx, gameID)
    if err != nil {
        return err
    }
    events, err := fn(g)
    if err != nil {
        log.Debug().Err(err).Str("game", gameID).Str("action", action).Msg("action rejected")
        return err
    }
    if err := m.repo.Save(ctx, g); err != nil {
        log.Error().Err(err).Str("game", gameID).Str("action", action).Msg("save failed")
        return fmt.Errorf("save game %s: %w", gameID, err)
    }
    log.Info().Str("game", gameID).Str("action", action).Str("state", string(g.State())).Str("phase", string(g.RoundPhase())).Msg("game updated")
    if saved != nil {
        saved(g)
    }
    if m.notify != nil {
        for _, ev := range events {
            m.notify.Notify(ev)
        }
    }
    return nil
}

// Create sets up a new game in PREPARING and returns its id.
func (m *Manager) Create(ctx context.Context, winningScore int) (string, error) {
    victory, err := NewVictoryCondition(winningScore)
    if err != nil {
        return "", err
    }
    cards, err := m.cards()
    if err != nil {
        return "", fmt.Errorf("load cards: %w", err)
    }
    if need := MaxPlayers * (InitialHandSize + RoundDealSize); len(cards) < need {
        return "", opErr("card source has %d cards, need at least %d", len(cards), need)
    }
    g, err := New(uuid.NewString(), victory, cards, m.opts...)
    if err != nil {
        return "", err
    }
    m.gate.RLock()
    defer m.gate.RUnlock()
    if err := m.repo.Save(ctx, g); err != nil {
        return "", fmt.Errorf("save game %s: %w", g.ID(), err)
    }
    log.Info().Str("game", g.ID()).Int("winningScore", winningScore).Int("cards", len(cards)).Msg("game created")
    return g.ID(), nil
}

// Join adds a new player and returns the generated player id.
func (m *Manager) Join(ctx context.Context, gameID, name string) (string, error) {
    name = strings.TrimSpace(name)
    if name == "" {
        return "", opErr("player name is required")
    }
    p := NewPlayer(uuid.NewString(), name)
    err := m.update(ctx, gameID, "join", func(g *Game) ([]Event, error) {
        if err := g.Join(p); err != nil {
            return nil, err
        }
        return []Event{PlayerJoined{Game: gameID, Player: playerView(p)}}, nil
    })
    if err != nil {
        return "", err
    }
    return p.ID(), nil
}

func (m *Manager) Start(ctx context.Context, gameID string) error {
    return m.update(ctx, gameID, "start", func(g *Game) ([]Event, error) {
        if err := g.Start(); err != nil {
            return nil, err
        }
        started := GameStarted{Game: gameID}
        for _, p := range g.players {
            started.Players = append(started.Players, p.ID())
        }
        return []Event{started, g.roundStarted()}, nil
    })
}

func (m *Manager) TellStory(ctx context.Context, gameID, playerID, phrase string, cardID int) error {
    return m.update(ctx, gameID, "tell_story", func(g *Game) ([]Event, error) {
        if err := g.TellStory(playerID, phrase, cardID); err != nil {
            return nil, err
        }
        return []Event{StoryTold{Game: gameID, Storyteller: playerID, Phrase: phrase}}, nil
    })
}

func (m *Manager) PlayCard(ctx context.Context, gameID, playerID string, cardID int) error {
    return m.update(ctx, gameID, "play_card", func(g *Game) ([]Event, error) {
        if err := g.PlayCard(playerID, cardID); err != nil {
            return nil, err
        }
        r := g.CurrentRound()
        return []Event{CardPlayed{
            Game:      gameID,
            Player:    playerID,
            Remaining: len(r.guessers) - r.PlayCardCount(),
            Phase:     r.Phase(),
        }}, nil
    })
}

func (m *Manager) GuessStory(ctx context.Context, gameID, playerID string, cardID int) error {
    return m.update(ctx, gameID, "guess_story", func(g *Game) ([]Event, error) {
        if err := g.GuessStory(playerID, cardID); err != nil {
            return nil, err
        }
        r := g.CurrentRound()
        return []Event{StoryGuessed{
            Game:      gameID,
            Guesser:   playerID,
            Remaining: len(r.guessers) - r.GuessCount(),
            Phase:     r.Phase(),
        }}, nil
    })
}

// Score scores the current round and returns the points each player gained.
func (m *Manager) Score(ctx context.Context, gameID string) (map[string]int, error) {
    var gains map[string]int
    export := func(g *Game) {
        if m.exportFile == "" {
            return
        }
        if err := ExportRound(g, gains, m.exportFile); err != nil {
            log.Error().Err(err).Str("game", gameID).Msg("failed to export round")
        }
    }
    err := m.updateThen(ctx, gameID, "score", func(g *Game) ([]Event, error) {
        var err error
        gains, err = g.Score()
        if err != nil {
            return nil, err
        }
        copied := make(map[string]int, len(gains))
        for id, pts := range gains {
            copied[id] = pts
        }
        events := []Event{RoundScored{Game: gameID, Number: g.RoundCount(), Gains: copied, Scores: g.scores()}}
        if g.State() == StateEnded {
            ended := GameEnded{Game: gameID}
            for _, w := range g.winners {
                ended.Winners = append(ended.Winners, w.ID())
            }
            events = append(events, ended)
        }
        return events, nil
    }, export)
    if err != nil {
        return nil, err
    }
    return gains, nil
}

func (m *Manager) WithdrawCards(ctx context.Context, gameID string) error {
    return m.update(ctx, gameID, "withdraw_cards", func(g *Game) ([]Event, error) {
        before := g.DeckSize()
        if err := g.WithdrawCards(); err != nil {
            return nil, err
        }
        return []Event{CardsWithdrawn{Game: gameID, Count: g.DeckSize() - before, DeckSize: g.DeckSize()}}, nil
    })
}

func (m *Manager) StartNextRound(ctx context.Context, gameID string) error {
    return m.update(ctx, gameID, "next_round", func(g *Game) ([]Event, error) {
        if err := g.StartNextRound(); err != nil {
            return nil, err
        }
        return []Event{g.roundStarted()}, nil
    })
}

// View returns the game as seen by viewerID.
func (m *Manager) View(ctx context.Context, gameID, viewerID string) (View, error) {
    m.gate.RLock()
    defer m.gate.RUnlock()
    l := m.acquire(gameID)
    defer m.release(gameID, l)
    l.RLock()
    defer l.RUnlock()
    g, err := m.repo.Load(ctx, gameID)
    if err != nil {
        return View{}, err
    }
    return g.View(viewerID), nil
}

// DeleteAll removes every game from the repository. It waits for actions in
// flight to finish, so none of them can save a game back afterwards.
func (m *Manager) DeleteAll(ctx context.Context) error {
    m.gate.Lock()
    defer m.gate.Unlock()
    if err := m.repo.DeleteAll(ctx); err != nil {
        return fmt.Errorf("delete games: %w", err)
    }
    log.Info().Msg("all games deleted")
    return nil
}
