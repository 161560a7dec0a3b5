package game

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ExportRound appends the result of the game's last scored round to a text file.
func ExportRound(g *Game, gains map[string]int, filename string) error {
	r := g.CurrentRound()
	if r == nil || r.Phase() != PhaseEnded {
		return fmt.Errorf("no scored round in game %s", g.ID())
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder

	// Header and roster only with the first round of a game
	if g.RoundCount() == 1 {
		sb.WriteString(fmt.Sprintf("Dixit Game Results - Game %s\n", g.ID()))
		sb.WriteString(fmt.Sprintf("Started: %s\n", time.Now().Format("2006-01-02 15:04:05")))
		sb.WriteString(strings.Repeat("=", 50) + "\n\n")
		sb.WriteString("Players:\n")
		for _, p := range g.players {
			sb.WriteString(fmt.Sprintf("- %s\n", p.Name()))
		}
		sb.WriteString("\n")
	}

	story, _ := r.Story()
	sb.WriteString(fmt.Sprintf("Round %d: %s tells \"%s\" with card %d\n", g.RoundCount(), r.Storyteller().Name(), story.Phrase(), story.Told().CardID()))
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	for _, pc := range r.PlayCards() {
		sb.WriteString(fmt.Sprintf("- %s played card %d\n", pc.Player().Name(), pc.CardID()))
	}

	sb.WriteString("\nGuesses:\n")
	var correct []string
	for _, gs := range r.Guesses() {
		sb.WriteString(fmt.Sprintf("- %s picked card %d (%s)\n", gs.Guesser().Name(), gs.Target().CardID(), gs.Target().Player().Name()))
		if gs.Target().Player().Equal(r.Storyteller()) {
			correct = append(correct, gs.Guesser().Name())
		}
	}
	if len(correct) > 0 {
		sb.WriteString(fmt.Sprintf("\nFound the storyteller's card: %s\n", strings.Join(correct, ", ")))
	}

	type playerScore struct {
		Name  string
		Gain  int
		Score int
	}
	scores := make([]playerScore, 0, len(g.players))
	for _, p := range g.players {
		scores = append(scores, playerScore{Name: p.Name(), Gain: gains[p.ID()], Score: p.Score()})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	sb.WriteString("\nScores after this round:\n")
	for _, ps := range scores {
		sb.WriteString(fmt.Sprintf("- %s: %d points (+%d)\n", ps.Name, ps.Score, ps.Gain))
	}
	sb.WriteString("\n")

	if g.State() == StateEnded {
		winners := make([]string, 0, len(g.winners))
		for _, w := range g.winners {
			winners = append(winners, w.Name())
		}
		sb.WriteString(fmt.Sprintf("Game ended at %s, won by %s\n", time.Now().Format("2006-01-02 15:04:05"), strings.Join(winners, ", ")))
		sb.WriteString(strings.Repeat("=", 50) + "\n")
	}

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
