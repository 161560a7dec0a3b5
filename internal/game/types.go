package game

import "unicode/utf8"

// Phase is the position of a round in its state machine.
type Phase string

const (
	PhaseStoryTelling   Phase = "STORY_TELLING"
	PhaseCardPlaying    Phase = "CARD_PLAYING"
	PhasePlayerGuessing Phase = "PLAYER_GUESSING"
	PhaseScoring        Phase = "SCORING"
	PhaseEnded          Phase = "ENDED"
)

// State is the lifecycle of a whole game.
type State string

const (
	StatePreparing State = "PREPARING"
	StateStarted   State = "STARTED"
	StateEnded     State = "ENDED"
)

const (
	MinPlayers = 4
	MaxPlayers = 6

	// InitialHandSize is dealt to every player when the game starts.
	InitialHandSize = 6
	// RoundDealSize is dealt to every player before each later round.
	RoundDealSize = 1

	MaxPhraseLength = 20

	BonusScore   = 1
	NormalScore  = 2
	CorrectScore = 3
)

// Card is identified by ID alone. Image is an opaque asset reference.
type Card struct {
	ID    int    `json:"id"`
	Image string `json:"image"`
}

// PlayCard records which player put which card on the table.
type PlayCard struct {
	player *Player
	card   Card
}

func NewPlayCard(p *Player, c Card) PlayCard {
	return PlayCard{player: p, card: c}
}

func (pc PlayCard) Player() *Player { return pc.player }
func (pc PlayCard) Card() Card      { return pc.card }
func (pc PlayCard) CardID() int     { return pc.card.ID }

// Guess is a guesser pointing at a card on the table.
type Guess struct {
	guesser *Player
	target  PlayCard
}

// NewGuess fails when the guesser points at their own card.
func NewGuess(guesser *Player, target PlayCard) (Guess, error) {
	if guesser.Equal(target.player) {
		return Guess{}, opErr("player %s cannot guess their own card", guesser.ID())
	}
	return Guess{guesser: guesser, target: target}, nil
}

func (g Guess) Guesser() *Player { return g.guesser }
func (g Guess) Target() PlayCard { return g.target }

// Story is the storyteller's phrase and the secret card it describes.
type Story struct {
	phrase string
	told   PlayCard
}

func NewStory(phrase string, told PlayCard) (Story, error) {
	if utf8.RuneCountInString(phrase) > MaxPhraseLength {
		return Story{}, opErr("story phrase longer than %d characters", MaxPhraseLength)
	}
	return Story{phrase: phrase, told: told}, nil
}

func (s Story) Phrase() string { return s.phrase }
func (s Story) Told() PlayCard { return s.told }

// VictoryCondition ends the game once any player reaches WinningScore.
type VictoryCondition struct {
	winningScore int
}

func NewVictoryCondition(winningScore int) (VictoryCondition, error) {
	switch winningScore {
	case 25, 30, 35:
		return VictoryCondition{winningScore: winningScore}, nil
	}
	return VictoryCondition{}, opErr("winning score must be 25, 30 or 35, got %d", winningScore)
}

func (v VictoryCondition) WinningScore() int { return v.winningScore }

func (v VictoryCondition) IsWinning(p *Player) bool {
	return p.Score() >= v.winningScore
}
