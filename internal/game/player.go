package game

import "sort"

// Player owns a hand of cards and a score. Only the engine mutates either.
type Player struct {
	id    string
	name  string
	hand  map[int]Card
	score int
}

func NewPlayer(id, name string) *Player {
	return &Player{id: id, name: name, hand: make(map[int]Card)}
}

func (p *Player) ID() string   { return p.id }
func (p *Player) Name() string { return p.name }
func (p *Player) Score() int   { return p.score }

// Equal compares players by id and name.
func (p *Player) Equal(o *Player) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.id == o.id && p.name == o.name
}

// AddHand deals a batch of cards. Only the initial deal or the per-round deal sizes are accepted.
func (p *Player) AddHand(cards []Card) error {
	if len(cards) != InitialHandSize && len(cards) != RoundDealSize {
		return opErr("cannot deal %d cards to player %s", len(cards), p.id)
	}
	for _, c := range cards {
		p.hand[c.ID] = c
	}
	return nil
}

// PlayCard removes the card from the hand and returns it.
func (p *Player) PlayCard(cardID int) (Card, error) {
	c, ok := p.hand[cardID]
	if !ok {
		return Card{}, notFound("card %d not in hand of player %s", cardID, p.id)
	}
	delete(p.hand, cardID)
	return c, nil
}

func (p *Player) HasCard(cardID int) bool {
	_, ok := p.hand[cardID]
	return ok
}

// AddScore accepts only the bonus, normal and correct-guess deltas.
func (p *Player) AddScore(delta int) error {
	switch delta {
	case BonusScore, NormalScore, CorrectScore:
		p.score += delta
		return nil
	}
	return opErr("invalid score delta %d", delta)
}

// Hand returns a copy of the hand ordered by card id.
func (p *Player) Hand() []Card {
	out := make([]Card, 0, len(p.hand))
	for _, c := range p.hand {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (p *Player) HandSize() int { return len(p.hand) }
