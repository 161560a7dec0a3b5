package game

import (
	"errors"
	"strings"
	"testing"
)

func TestCardEqualityByID(t *testing.T) {
	p := NewPlayer("p1", "Alice")
	if err := p.AddHand([]Card{{ID: 7, Image: "first.png"}}); err != nil {
		t.Fatalf("should be able to deal one card: %v", err)
	}
	if !p.HasCard(7) {
		t.Fatal("card 7 should be in hand")
	}
	c, err := p.PlayCard(7)
	if err != nil {
		t.Fatalf("should be able to play card 7: %v", err)
	}
	if c.Image != "first.png" {
		t.Fatalf("expected image first.png, got %s", c.Image)
	}
}

func TestPlayerAddHandSizes(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{name: "initial hand", size: InitialHandSize},
		{name: "round deal", size: RoundDealSize},
		{name: "empty", size: 0, wantErr: true},
		{name: "two cards", size: 2, wantErr: true},
		{name: "seven cards", size: 7, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlayer("p1", "Alice")
			batch := make([]Card, tt.size)
			for i := range batch {
				batch[i] = Card{ID: i + 1}
			}
			err := p.AddHand(batch)
			if tt.wantErr {
				if !errors.Is(err, ErrOperation) {
					t.Fatalf("expected operation error, got %v", err)
				}
				if p.HandSize() != 0 {
					t.Fatalf("rejected deal should not change the hand, got %d cards", p.HandSize())
				}
				return
			}
			if err != nil {
				t.Fatalf("should be able to deal %d cards: %v", tt.size, err)
			}
			if p.HandSize() != tt.size {
				t.Fatalf("expected %d cards in hand, got %d", tt.size, p.HandSize())
			}
		})
	}
}

func TestPlayerPlayCardNotInHand(t *testing.T) {
	p := NewPlayer("p1", "Alice")
	if _, err := p.PlayCard(3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPlayerHandIsACopy(t *testing.T) {
	p := NewPlayer("p1", "Alice")
	_ = p.AddHand([]Card{{ID: 9}})
	hand := p.Hand()
	hand[0].ID = 99
	if !p.HasCard(9) || p.HasCard(99) {
		t.Fatal("changing the returned hand should not change the player")
	}
}

func TestPlayerAddScore(t *testing.T) {
	p := NewPlayer("p1", "Alice")
	for _, bad := range []int{0, 4, -1, 5} {
		if err := p.AddScore(bad); !errors.Is(err, ErrOperation) {
			t.Fatalf("AddScore(%d) expected operation error, got %v", bad, err)
		}
	}
	for _, ok := range []int{BonusScore, NormalScore, CorrectScore} {
		if err := p.AddScore(ok); err != nil {
			t.Fatalf("AddScore(%d) should succeed: %v", ok, err)
		}
	}
	if p.Score() != 6 {
		t.Fatalf("expected score 6, got %d", p.Score())
	}
}

func TestPlayerEqual(t *testing.T) {
	a := NewPlayer("p1", "Alice")
	if !a.Equal(NewPlayer("p1", "Alice")) {
		t.Fatal("players with the same id and name should be equal")
	}
	if a.Equal(NewPlayer("p1", "Bob")) || a.Equal(NewPlayer("p2", "Alice")) {
		t.Fatal("players differing in id or name should not be equal")
	}
}

func TestNewGuessRejectsOwnCard(t *testing.T) {
	a := NewPlayer("a", "Alice")
	_, err := NewGuess(a, NewPlayCard(NewPlayer("a", "Alice"), Card{ID: 1}))
	if !errors.Is(err, ErrOperation) {
		t.Fatalf("expected operation error for self guess, got %v", err)
	}
	if _, err := NewGuess(a, NewPlayCard(NewPlayer("b", "Bob"), Card{ID: 1})); err != nil {
		t.Fatalf("should be able to guess someone else's card: %v", err)
	}
}

func TestNewStoryPhraseLength(t *testing.T) {
	told := NewPlayCard(NewPlayer("s", "Sam"), Card{ID: 1})
	if _, err := NewStory(strings.Repeat("x", MaxPhraseLength), told); err != nil {
		t.Fatalf("phrase of %d characters should be accepted: %v", MaxPhraseLength, err)
	}
	if _, err := NewStory(strings.Repeat("é", MaxPhraseLength), told); err != nil {
		t.Fatalf("length should count characters, not bytes: %v", err)
	}
	if _, err := NewStory(strings.Repeat("x", MaxPhraseLength+1), told); !errors.Is(err, ErrOperation) {
		t.Fatalf("expected operation error for long phrase, got %v", err)
	}
}

func TestVictoryCondition(t *testing.T) {
	if _, err := NewVictoryCondition(22); !errors.Is(err, ErrOperation) {
		t.Fatalf("expected operation error for 22, got %v", err)
	}
	v, err := NewVictoryCondition(30)
	if err != nil {
		t.Fatalf("should accept 30: %v", err)
	}
	p := NewPlayer("p1", "Alice")
	for p.Score() < 27 {
		_ = p.AddScore(CorrectScore)
	}
	if v.IsWinning(p) {
		t.Fatalf("score %d should not be winning", p.Score())
	}
	_ = p.AddScore(CorrectScore)
	if !v.IsWinning(p) {
		t.Fatalf("score %d should be winning", p.Score())
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(stateErr("x")) != KindState {
		t.Fatal("expected state kind")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("plain errors have no kind")
	}
	if errors.Is(opErr("x"), ErrState) {
		t.Fatal("operation error should not match ErrState")
	}
}
