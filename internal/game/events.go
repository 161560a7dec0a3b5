package game

// Event is a notification about a state change. The set of events is closed;
// payloads carry copies only.
type Event interface {
	GameID() string
	isEvent()
}

type PlayerJoined struct {
	Game   string     `json:"gameId"`
	Player PlayerView `json:"player"`
}

type GameStarted struct {
	Game    string   `json:"gameId"`
	Players []string `json:"players"`
}

type RoundStarted struct {
	Game        string   `json:"gameId"`
	Number      int      `json:"number"`
	Storyteller string   `json:"storytellerId"`
	Guessers    []string `json:"guesserIds"`
}

type StoryTold struct {
	Game        string `json:"gameId"`
	Storyteller string `json:"storytellerId"`
	Phrase      string `json:"phrase"`
}

type CardPlayed struct {
	Game      string `json:"gameId"`
	Player    string `json:"playerId"`
	Remaining int    `json:"remaining"`
	Phase     Phase  `json:"phase"`
}

type StoryGuessed struct {
	Game      string `json:"gameId"`
	Guesser   string `json:"guesserId"`
	Remaining int    `json:"remaining"`
	Phase     Phase  `json:"phase"`
}

type RoundScored struct {
	Game   string         `json:"gameId"`
	Number int            `json:"number"`
	Gains  map[string]int `json:"gains"`
	Scores map[string]int `json:"scores"`
}

type CardsWithdrawn struct {
	Game     string `json:"gameId"`
	Count    int    `json:"count"`
	DeckSize int    `json:"deckSize"`
}

type GameEnded struct {
	Game    string   `json:"gameId"`
	Winners []string `json:"winners"`
}

func (e PlayerJoined) GameID() string   { return e.Game }
func (e GameStarted) GameID() string    { return e.Game }
func (e RoundStarted) GameID() string   { return e.Game }
func (e StoryTold) GameID() string      { return e.Game }
func (e CardPlayed) GameID() string     { return e.Game }
func (e StoryGuessed) GameID() string   { return e.Game }
func (e RoundScored) GameID() string    { return e.Game }
func (e CardsWithdrawn) GameID() string { return e.Game }
func (e GameEnded) GameID() string      { return e.Game }

func (PlayerJoined) isEvent()   {}
func (GameStarted) isEvent()    {}
func (RoundStarted) isEvent()   {}
func (StoryTold) isEvent()      {}
func (CardPlayed) isEvent()     {}
func (StoryGuessed) isEvent()   {}
func (RoundScored) isEvent()    {}
func (CardsWithdrawn) isEvent() {}
func (GameEnded) isEvent()      {}

func (g *Game) roundStarted() RoundStarted {
	r := g.CurrentRound()
	ev := RoundStarted{Game: g.id, Number: len(g.rounds), Storyteller: r.Storyteller().ID()}
	for _, p := range r.guessers {
		ev.Guessers = append(ev.Guessers, p.ID())
	}
	return ev
}

func (g *Game) scores() map[string]int {
	out := make(map[string]int, len(g.players))
	for _, p := range g.players {
		out[p.ID()] = p.Score()
	}
	return out
}
