package game

import "sort"

// Round is one storyteller rotation:
// STORY_TELLING -> CARD_PLAYING -> PLAYER_GUESSING -> SCORING -> ENDED.
//
// Every action validates fully before touching the round, so a rejected
// action leaves it exactly as it was.
type Round struct {
	storyteller *Player
	guessers    []*Player
	playCards   map[int]PlayCard
	guesses     map[string]Guess
	phase       Phase
	story       *Story
	withdrawn   bool
}

// NewRound starts a round in STORY_TELLING. guessers must not contain the storyteller.
func NewRound(storyteller *Player, guessers []*Player) *Round {
	return &Round{
		storyteller: storyteller,
		guessers:    append([]*Player(nil), guessers...),
		playCards:   make(map[int]PlayCard),
		guesses:     make(map[string]Guess),
		phase:       PhaseStoryTelling,
	}
}

func (r *Round) Phase() Phase         { return r.phase }
func (r *Round) Storyteller() *Player { return r.storyteller }
func (r *Round) Guessers() []*Player  { return append([]*Player(nil), r.guessers...) }
func (r *Round) PlayCardCount() int   { return len(r.playCards) }
func (r *Round) GuessCount() int      { return len(r.guesses) }
func (r *Round) Withdrawn() bool      { return r.withdrawn }
func (r *Round) Story() (Story, bool) {
	if r.story == nil {
		return Story{}, false
	}
	return *r.story, true
}

// PlayCards returns the guessers' cards ordered by card id.
func (r *Round) PlayCards() []PlayCard {
	out := make([]PlayCard, 0, len(r.playCards))
	for _, pc := range r.playCards {
		out = append(out, pc)
	}
	sortPlayCards(out)
	return out
}

func sortPlayCards(pcs []PlayCard) {
	sort.Slice(pcs, func(i, j int) bool { return pcs[i].CardID() < pcs[j].CardID() })
}

// Guesses returns the guesses in guesser seating order.
func (r *Round) Guesses() []Guess {
	out := make([]Guess, 0, len(r.guesses))
	for _, p := range r.guessers {
		if g, ok := r.guesses[p.ID()]; ok {
			out = append(out, g)
		}
	}
	return out
}

func (r *Round) isGuesser(p *Player) bool {
	for _, g := range r.guessers {
		if g.Equal(p) {
			return true
		}
	}
	return false
}

func (r *Round) checkTellStory(p *Player) error {
	if r.phase != PhaseStoryTelling || r.story != nil {
		return stateErr("cannot tell a story in phase %s", r.phase)
	}
	if !p.Equal(r.storyteller) {
		return opErr("player %s is not the storyteller", p.ID())
	}
	return nil
}

func (r *Round) TellStory(s Story) error {
	if err := r.checkTellStory(s.told.player); err != nil {
		return err
	}
	r.story = &s
	r.phase = PhaseCardPlaying
	return nil
}

func (r *Round) checkPlayCard(p *Player, cardID int) error {
	if r.phase != PhaseCardPlaying {
		return stateErr("cannot play a card in phase %s", r.phase)
	}
	if !r.isGuesser(p) {
		return opErr("player %s is not a guesser this round", p.ID())
	}
	for _, pc := range r.playCards {
		if pc.player.Equal(p) {
			return opErr("player %s already played a card", p.ID())
		}
	}
	if len(r.playCards) >= len(r.guessers) {
		return opErr("all cards have already been played")
	}
	if _, err := r.CardByCardID(cardID); err == nil {
		return opErr("card %d is already on the table", cardID)
	}
	return nil
}

// PlayCard puts a guesser's card on the table. The last card moves the round to PLAYER_GUESSING.
func (r *Round) PlayCard(pc PlayCard) error {
	if err := r.checkPlayCard(pc.player, pc.CardID()); err != nil {
		return err
	}
	r.playCards[pc.CardID()] = pc
	if len(r.playCards) == len(r.guessers) {
		r.phase = PhasePlayerGuessing
	}
	return nil
}

func (r *Round) checkGuess(p *Player) error {
	if r.phase != PhasePlayerGuessing {
		return stateErr("cannot guess in phase %s", r.phase)
	}
	if !r.isGuesser(p) {
		return opErr("player %s is not a guesser this round", p.ID())
	}
	if _, ok := r.guesses[p.ID()]; ok {
		return opErr("player %s already guessed", p.ID())
	}
	if len(r.guesses) >= len(r.guessers) {
		return opErr("all guesses have already been made")
	}
	return nil
}

// GuessStory records a guess. The last guess moves the round to SCORING.
func (r *Round) GuessStory(g Guess) error {
	if err := r.checkGuess(g.guesser); err != nil {
		return err
	}
	onTable, err := r.CardByCardID(g.target.CardID())
	if err != nil {
		return err
	}
	if !onTable.player.Equal(g.target.player) {
		return opErr("card %d was not played by %s", g.target.CardID(), g.target.player.ID())
	}
	r.guesses[g.guesser.ID()] = g
	if len(r.guesses) == len(r.guessers) {
		r.phase = PhaseScoring
	}
	return nil
}

type award struct {
	player *Player
	points int
}

// Score distributes points for the round and ends it. It returns the points
// gained per player id, including zero entries.
func (r *Round) Score() (map[string]int, error) {
	if r.phase != PhaseScoring {
		return nil, stateErr("cannot score in phase %s", r.phase)
	}
	guesses := r.Guesses()
	correct := 0
	for _, g := range guesses {
		if g.target.player.Equal(r.storyteller) {
			correct++
		}
	}

	var awards []award
	switch {
	case correct == len(r.guessers):
		for _, p := range r.guessers {
			awards = append(awards, award{p, NormalScore})
		}
	case correct == 0:
		for _, p := range r.guessers {
			awards = append(awards, award{p, NormalScore})
		}
		for _, g := range guesses {
			awards = append(awards, award{g.target.player, BonusScore})
		}
	default:
		awards = append(awards, award{r.storyteller, CorrectScore})
		for _, g := range guesses {
			if g.target.player.Equal(r.storyteller) {
				awards = append(awards, award{g.guesser, CorrectScore})
			} else {
				awards = append(awards, award{g.target.player, BonusScore})
			}
		}
	}

	gains := map[string]int{r.storyteller.ID(): 0}
	for _, p := range r.guessers {
		gains[p.ID()] = 0
	}
	for _, a := range awards {
		if err := a.player.AddScore(a.points); err != nil {
			return nil, err
		}
		gains[a.player.ID()] += a.points
	}
	r.phase = PhaseEnded
	return gains, nil
}

// WithdrawCards hands back the story card and every played card once the round has ended.
func (r *Round) WithdrawCards() ([]Card, error) {
	if r.phase != PhaseEnded {
		return nil, stateErr("cannot withdraw cards in phase %s", r.phase)
	}
	if r.withdrawn {
		return nil, stateErr("cards already withdrawn")
	}
	cards := make([]Card, 0, len(r.playCards)+1)
	if r.story != nil {
		cards = append(cards, r.story.told.card)
	}
	for _, pc := range r.PlayCards() {
		cards = append(cards, pc.card)
	}
	r.withdrawn = true
	return cards, nil
}

// CardByCardID finds the story card or a played card.
func (r *Round) CardByCardID(id int) (PlayCard, error) {
	if r.story != nil && r.story.told.CardID() == id {
		return r.story.told, nil
	}
	if pc, ok := r.playCards[id]; ok {
		return pc, nil
	}
	return PlayCard{}, notFound("card %d is not on the table", id)
}
