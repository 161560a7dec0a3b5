// Package cards supplies the card sets games are created with.
package cards

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kiliankoe/dixit/internal/game"
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// Numbered returns n cards with ids 1..n and placeholder image names.
func Numbered(n int) []game.Card {
	out := make([]game.Card, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, game.Card{ID: i, Image: fmt.Sprintf("card-%03d.png", i)})
	}
	return out
}

// FromDir returns one card per image file in dir, numbered 1..n in file name order.
func FromDir(dir string) ([]game.Card, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read card dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no card images in %s", dir)
	}
	sort.Strings(names)
	out := make([]game.Card, 0, len(names))
	for i, name := range names {
		out = append(out, game.Card{ID: i + 1, Image: name})
	}
	return out, nil
}

// Source turns a fixed card set into a game.CardSource that hands out copies.
func Source(set []game.Card) game.CardSource {
	return func() ([]game.Card, error) {
		return append([]game.Card(nil), set...), nil
	}
}
