package game

import (
	"math/rand"
	"time"
)

// Game holds the roster, the shared deck and the rounds of one session.
// It is not safe for concurrent use; Manager serializes access per game id.
type Game struct {
	id      string
	victory VictoryCondition
	deck    []Card
	players []*Player
	rounds  []*Round
	cursor  int
	state   State
	winners []*Player

	// Every shuffle draws from seed+shuffles, so a reloaded game continues
	// the same sequence.
	seed     int64
	seeded   bool
	shuffles int
}

type Option func(*Game)

// WithSeed fixes the seed the deck is shuffled from.
func WithSeed(seed int64) Option {
	return func(g *Game) { g.seed, g.seeded = seed, true }
}

// New creates a game in PREPARING with the given cards as its deck.
func New(id string, victory VictoryCondition, cards []Card, opts ...Option) (*Game, error) {
	seen := make(map[int]bool, len(cards))
	for _, c := range cards {
		if seen[c.ID] {
			return nil, opErr("duplicate card id %d", c.ID)
		}
		seen[c.ID] = true
	}
	g := &Game{
		id:      id,
		victory: victory,
		deck:    append([]Card(nil), cards...),
		cursor:  -1,
		state:   StatePreparing,
	}
	g.apply(opts)
	return g, nil
}

func (g *Game) apply(opts []Option) {
	for _, o := range opts {
		o(g)
	}
	if !g.seeded {
		g.seed, g.seeded = time.Now().UnixNano(), true
	}
}

func (g *Game) ID() string                         { return g.id }
func (g *Game) State() State                       { return g.state }
func (g *Game) VictoryCondition() VictoryCondition { return g.victory }
func (g *Game) DeckSize() int                      { return len(g.deck) }
func (g *Game) RoundCount() int                    { return len(g.rounds) }
func (g *Game) Players() []*Player                 { return append([]*Player(nil), g.players...) }
func (g *Game) Winners() []*Player                 { return append([]*Player(nil), g.winners...) }

// CurrentRound returns nil before the game has started.
func (g *Game) CurrentRound() *Round {
	if len(g.rounds) == 0 {
		return nil
	}
	return g.rounds[len(g.rounds)-1]
}

func (g *Game) RoundPhase() Phase {
	if r := g.CurrentRound(); r != nil {
		return r.Phase()
	}
	return ""
}

func (g *Game) CurrentStoryteller() *Player {
	if r := g.CurrentRound(); r != nil {
		return r.Storyteller()
	}
	return nil
}

func (g *Game) CurrentGuessers() []*Player {
	if r := g.CurrentRound(); r != nil {
		return r.Guessers()
	}
	return nil
}

// Player looks up a joined player by id.
func (g *Game) Player(id string) (*Player, error) {
	for _, p := range g.players {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, notFound("player %s not found", id)
}

// FindPlayCard looks up a card on the current round's table.
func (g *Game) FindPlayCard(cardID int) (PlayCard, error) {
	r := g.CurrentRound()
	if r == nil {
		return PlayCard{}, notFound("card %d is not on the table", cardID)
	}
	return r.CardByCardID(cardID)
}

func (g *Game) Join(p *Player) error {
	if g.state != StatePreparing {
		return stateErr("cannot join a game in state %s", g.state)
	}
	if len(g.players) >= MaxPlayers {
		return opErr("game already has %d players", MaxPlayers)
	}
	for _, existing := range g.players {
		if existing.ID() == p.ID() {
			return opErr("player %s already joined", p.ID())
		}
	}
	g.players = append(g.players, p)
	return nil
}

// Start deals the initial hands and opens the first round.
func (g *Game) Start() error {
	if g.state != StatePreparing {
		return stateErr("cannot start a game in state %s", g.state)
	}
	if n := len(g.players); n < MinPlayers || n > MaxPlayers {
		return opErr("need %d to %d players to start, have %d", MinPlayers, MaxPlayers, n)
	}
	if err := g.checkDeal(InitialHandSize, len(g.deck)); err != nil {
		return err
	}
	g.shuffle()
	g.deal(InitialHandSize)
	g.state = StateStarted
	g.startRound()
	return nil
}

// StartNextRound returns the last round's cards to the deck if that has not
// happened yet, deals one card to everyone and opens a new round.
func (g *Game) StartNextRound() error {
	if g.state != StateStarted {
		return stateErr("cannot start a round in state %s", g.state)
	}
	r := g.CurrentRound()
	if r.Phase() != PhaseEnded {
		return stateErr("current round is still in phase %s", r.Phase())
	}
	available := len(g.deck)
	if !r.Withdrawn() {
		available += r.PlayCardCount() + 1
	}
	if err := g.checkDeal(RoundDealSize, available); err != nil {
		return err
	}
	if !r.Withdrawn() {
		if err := g.WithdrawCards(); err != nil {
			return err
		}
	}
	g.deal(RoundDealSize)
	g.startRound()
	return nil
}

func (g *Game) checkDeal(size, available int) error {
	if need := size * len(g.players); available < need {
		return opErr("deck has %d cards, need %d", available, need)
	}
	return nil
}

func (g *Game) deal(size int) {
	for _, p := range g.players {
		batch := append([]Card(nil), g.deck[:size]...)
		g.deck = g.deck[size:]
		// batch size is one of the accepted deal sizes
		_ = p.AddHand(batch)
	}
}

func (g *Game) shuffle() {
	rng := rand.New(rand.NewSource(g.seed + int64(g.shuffles)))
	g.shuffles++
	rng.Shuffle(len(g.deck), func(i, j int) { g.deck[i], g.deck[j] = g.deck[j], g.deck[i] })
}

func (g *Game) startRound() {
	g.shuffle()
	g.cursor++
	storyteller := g.players[g.cursor%len(g.players)]
	guessers := make([]*Player, 0, len(g.players)-1)
	for _, p := range g.players {
		if !p.Equal(storyteller) {
			guessers = append(guessers, p)
		}
	}
	g.rounds = append(g.rounds, NewRound(storyteller, guessers))
}

func (g *Game) activeRound() (*Round, error) {
	if g.state != StateStarted {
		return nil, stateErr("game is %s", g.state)
	}
	return g.CurrentRound(), nil
}

// TellStory takes the card from the storyteller's hand and sets the story.
func (g *Game) TellStory(playerID, phrase string, cardID int) error {
	r, err := g.activeRound()
	if err != nil {
		return err
	}
	p, err := g.Player(playerID)
	if err != nil {
		return err
	}
	if err := r.checkTellStory(p); err != nil {
		return err
	}
	card, ok := p.hand[cardID]
	if !ok {
		return notFound("card %d not in hand of player %s", cardID, p.ID())
	}
	story, err := NewStory(phrase, NewPlayCard(p, card))
	if err != nil {
		return err
	}
	if _, err := p.PlayCard(cardID); err != nil {
		return err
	}
	return r.TellStory(story)
}

// PlayCard takes the card from a guesser's hand and puts it on the table.
func (g *Game) PlayCard(playerID string, cardID int) error {
	r, err := g.activeRound()
	if err != nil {
		return err
	}
	p, err := g.Player(playerID)
	if err != nil {
		return err
	}
	card, ok := p.hand[cardID]
	if !ok {
		return notFound("card %d not in hand of player %s", cardID, p.ID())
	}
	if err := r.checkPlayCard(p, cardID); err != nil {
		return err
	}
	if _, err := p.PlayCard(cardID); err != nil {
		return err
	}
	return r.PlayCard(NewPlayCard(p, card))
}

// GuessStory records the guesser's pick among the cards on the table.
func (g *Game) GuessStory(guesserID string, cardID int) error {
	r, err := g.activeRound()
	if err != nil {
		return err
	}
	p, err := g.Player(guesserID)
	if err != nil {
		return err
	}
	if err := r.checkGuess(p); err != nil {
		return err
	}
	target, err := r.CardByCardID(cardID)
	if err != nil {
		return err
	}
	guess, err := NewGuess(p, target)
	if err != nil {
		return err
	}
	return r.GuessStory(guess)
}

// Score scores the current round and ends the game if anyone reached the winning score.
func (g *Game) Score() (map[string]int, error) {
	r, err := g.activeRound()
	if err != nil {
		return nil, err
	}
	gains, err := r.Score()
	if err != nil {
		return nil, err
	}
	var winners []*Player
	for _, p := range g.players {
		if g.victory.IsWinning(p) {
			winners = append(winners, p)
		}
	}
	if len(winners) > 0 {
		g.winners = winners
		g.state = StateEnded
	}
	return gains, nil
}

// WithdrawCards moves the ended round's cards back into the deck.
func (g *Game) WithdrawCards() error {
	r := g.CurrentRound()
	if r == nil {
		return stateErr("no round to withdraw cards from")
	}
	cards, err := r.WithdrawCards()
	if err != nil {
		return err
	}
	g.deck = append(g.deck, cards...)
	return nil
}
