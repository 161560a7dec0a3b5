package game

// View is what one viewer may see of a game. It is built from copies only,
// so handing it to a transport cannot reach back into the engine.
type View struct {
	GameID       string       `json:"gameId"`
	State        State        `json:"state"`
	WinningScore int          `json:"winningScore"`
	DeckSize     int          `json:"deckSize"`
	RoundCount   int          `json:"roundCount"`
	Players      []PlayerView `json:"players"`
	Winners      []string     `json:"winners,omitempty"`
	Round        *RoundView   `json:"round,omitempty"`
	You          *PlayerView  `json:"you,omitempty"`
}

type PlayerView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	HandSize int    `json:"handSize"`
	Hand     []Card `json:"hand,omitempty"`
}

// TableCard is a card on the table. PlayerID stays empty until the round has ended.
type TableCard struct {
	Card     Card   `json:"card"`
	PlayerID string `json:"playerId,omitempty"`
}

type GuessView struct {
	GuesserID string `json:"guesserId"`
	CardID    int    `json:"cardId"`
}

type RoundView struct {
	Number        int         `json:"number"`
	Phase         Phase       `json:"phase"`
	StorytellerID string      `json:"storytellerId"`
	GuesserIDs    []string    `json:"guesserIds"`
	Phrase        string      `json:"phrase,omitempty"`
	PlayedBy      []string    `json:"playedBy"`
	GuessedBy     []string    `json:"guessedBy"`
	Table         []TableCard `json:"table,omitempty"`
	Guesses       []GuessView `json:"guesses,omitempty"`
}

func playerView(p *Player) PlayerView {
	return PlayerView{ID: p.ID(), Name: p.Name(), Score: p.Score(), HandSize: p.HandSize()}
}

// View builds the read model for viewerID. An unknown or empty viewer gets the public view.
func (g *Game) View(viewerID string) View {
	v := View{
		GameID:       g.id,
		State:        g.state,
		WinningScore: g.victory.WinningScore(),
		DeckSize:     len(g.deck),
		RoundCount:   len(g.rounds),
		Players:      make([]PlayerView, 0, len(g.players)),
	}
	for _, p := range g.players {
		v.Players = append(v.Players, playerView(p))
		if p.ID() == viewerID {
			you := playerView(p)
			you.Hand = p.Hand()
			v.You = &you
		}
	}
	for _, w := range g.winners {
		v.Winners = append(v.Winners, w.ID())
	}
	if r := g.CurrentRound(); r != nil {
		rv := r.view()
		rv.Number = len(g.rounds)
		v.Round = &rv
	}
	return v
}

func (r *Round) view() RoundView {
	rv := RoundView{
		Phase:         r.phase,
		StorytellerID: r.storyteller.ID(),
		GuesserIDs:    []string{},
		PlayedBy:      []string{},
		GuessedBy:     []string{},
	}
	for _, p := range r.guessers {
		rv.GuesserIDs = append(rv.GuesserIDs, p.ID())
		for _, pc := range r.playCards {
			if pc.player.Equal(p) {
				rv.PlayedBy = append(rv.PlayedBy, p.ID())
			}
		}
		if _, ok := r.guesses[p.ID()]; ok {
			rv.GuessedBy = append(rv.GuessedBy, p.ID())
		}
	}
	if r.story != nil {
		rv.Phrase = r.story.phrase
	}
	if r.phase == PhaseStoryTelling || r.phase == PhaseCardPlaying {
		return rv
	}

	// Sorting the table by card id keeps the storyteller's card in no particular seat.
	table := r.PlayCards()
	if r.story != nil {
		table = append(table, r.story.told)
	}
	sortPlayCards(table)
	ended := r.phase == PhaseEnded
	for _, pc := range table {
		tc := TableCard{Card: pc.card}
		if ended {
			tc.PlayerID = pc.player.ID()
		}
		rv.Table = append(rv.Table, tc)
	}
	if ended {
		for _, gs := range r.Guesses() {
			rv.Guesses = append(rv.Guesses, GuessView{GuesserID: gs.guesser.ID(), CardID: gs.target.CardID()})
		}
	}
	return rv
}
