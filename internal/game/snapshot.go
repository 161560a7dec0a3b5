package game

// Snapshot is the complete, serializable state of a game. It never shares
// memory with the Game it was taken from.
type Snapshot struct {
	ID                string           `json:"id"`
	WinningScore      int              `json:"winningScore"`
	State             State            `json:"state"`
	StorytellerCursor int              `json:"storytellerCursor"`
	Deck              []Card           `json:"deck"`
	Players           []PlayerSnapshot `json:"players"`
	Rounds            []RoundSnapshot  `json:"rounds"`
	Winners           []string         `json:"winners,omitempty"`
	Seed              int64            `json:"seed"`
	Shuffles          int              `json:"shuffles"`
}

type PlayerSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Hand  []Card `json:"hand"`
}

type PlayCardSnapshot struct {
	PlayerID string `json:"playerId"`
	Card     Card   `json:"card"`
}

type StorySnapshot struct {
	Phrase string           `json:"phrase"`
	Told   PlayCardSnapshot `json:"told"`
}

type GuessSnapshot struct {
	GuesserID string `json:"guesserId"`
	CardID    int    `json:"cardId"`
}

type RoundSnapshot struct {
	StorytellerID string             `json:"storytellerId"`
	GuesserIDs    []string           `json:"guesserIds"`
	Phase         Phase              `json:"phase"`
	Story         *StorySnapshot     `json:"story,omitempty"`
	PlayCards     []PlayCardSnapshot `json:"playCards"`
	Guesses       []GuessSnapshot    `json:"guesses"`
	Withdrawn     bool               `json:"withdrawn"`
}

func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		ID:                g.id,
		WinningScore:      g.victory.WinningScore(),
		State:             g.state,
		StorytellerCursor: g.cursor,
		Deck:              append([]Card{}, g.deck...),
		Players:           make([]PlayerSnapshot, 0, len(g.players)),
		Rounds:            make([]RoundSnapshot, 0, len(g.rounds)),
		Seed:              g.seed,
		Shuffles:          g.shuffles,
	}
	for _, p := range g.players {
		s.Players = append(s.Players, PlayerSnapshot{ID: p.ID(), Name: p.Name(), Score: p.Score(), Hand: p.Hand()})
	}
	for _, r := range g.rounds {
		s.Rounds = append(s.Rounds, r.snapshot())
	}
	for _, w := range g.winners {
		s.Winners = append(s.Winners, w.ID())
	}
	return s
}

func (r *Round) snapshot() RoundSnapshot {
	rs := RoundSnapshot{
		StorytellerID: r.storyteller.ID(),
		Phase:         r.phase,
		PlayCards:     []PlayCardSnapshot{},
		Guesses:       []GuessSnapshot{},
		Withdrawn:     r.withdrawn,
	}
	for _, p := range r.guessers {
		rs.GuesserIDs = append(rs.GuesserIDs, p.ID())
	}
	if r.story != nil {
		rs.Story = &StorySnapshot{Phrase: r.story.phrase, Told: playCardSnapshot(r.story.told)}
	}
	for _, pc := range r.PlayCards() {
		rs.PlayCards = append(rs.PlayCards, playCardSnapshot(pc))
	}
	for _, gs := range r.Guesses() {
		rs.Guesses = append(rs.Guesses, GuessSnapshot{GuesserID: gs.guesser.ID(), CardID: gs.target.CardID()})
	}
	return rs
}

func playCardSnapshot(pc PlayCard) PlayCardSnapshot {
	return PlayCardSnapshot{PlayerID: pc.player.ID(), Card: pc.card}
}

// Restore rebuilds a game from a snapshot. Card ids must be unique across the
// deck, the hands and any table that has not been withdrawn. The restored game
// keeps the shuffle sequence of the one the snapshot was taken from.
func Restore(s Snapshot) (*Game, error) {
	victory, err := NewVictoryCondition(s.WinningScore)
	if err != nil {
		return nil, err
	}
	g := &Game{
		id:      s.ID,
		victory: victory,
		deck:    append([]Card(nil), s.Deck...),
		cursor:  s.StorytellerCursor,
		state:   s.State,

		seed:     s.Seed,
		seeded:   true,
		shuffles: s.Shuffles,
	}
	seen := make(map[int]bool)
	claim := func(c Card) error {
		if seen[c.ID] {
			return opErr("duplicate card id %d in game %s", c.ID, s.ID)
		}
		seen[c.ID] = true
		return nil
	}
	for _, c := range g.deck {
		if err := claim(c); err != nil {
			return nil, err
		}
	}
	for _, ps := range s.Players {
		p := NewPlayer(ps.ID, ps.Name)
		p.score = ps.Score
		for _, c := range ps.Hand {
			if err := claim(c); err != nil {
				return nil, err
			}
			p.hand[c.ID] = c
		}
		g.players = append(g.players, p)
	}
	for i, rs := range s.Rounds {
		r, err := g.restoreRound(rs)
		if err != nil {
			return nil, err
		}
		if i == len(s.Rounds)-1 && !r.withdrawn {
			if r.story != nil {
				if err := claim(r.story.told.card); err != nil {
					return nil, err
				}
			}
			for _, pc := range r.playCards {
				if err := claim(pc.card); err != nil {
					return nil, err
				}
			}
		}
		g.rounds = append(g.rounds, r)
	}
	for _, id := range s.Winners {
		p, err := g.Player(id)
		if err != nil {
			return nil, err
		}
		g.winners = append(g.winners, p)
	}
	return g, nil
}

func (g *Game) restoreRound(rs RoundSnapshot) (*Round, error) {
	storyteller, err := g.Player(rs.StorytellerID)
	if err != nil {
		return nil, err
	}
	guessers := make([]*Player, 0, len(rs.GuesserIDs))
	for _, id := range rs.GuesserIDs {
		p, err := g.Player(id)
		if err != nil {
			return nil, err
		}
		guessers = append(guessers, p)
	}
	r := NewRound(storyteller, guessers)
	r.phase = rs.Phase
	r.withdrawn = rs.Withdrawn
	if rs.Story != nil {
		teller, err := g.Player(rs.Story.Told.PlayerID)
		if err != nil {
			return nil, err
		}
		r.story = &Story{phrase: rs.Story.Phrase, told: NewPlayCard(teller, rs.Story.Told.Card)}
	}
	for _, pcs := range rs.PlayCards {
		p, err := g.Player(pcs.PlayerID)
		if err != nil {
			return nil, err
		}
		r.playCards[pcs.Card.ID] = NewPlayCard(p, pcs.Card)
	}
	for _, gs := range rs.Guesses {
		p, err := g.Player(gs.GuesserID)
		if err != nil {
			return nil, err
		}
		target, err := r.CardByCardID(gs.CardID)
		if err != nil {
			return nil, err
		}
		r.guesses[p.ID()] = Guess{guesser: p, target: target}
	}
	return r, nil
}
