package game

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type memRepo struct {
	mu    sync.Mutex
	games map[string]Snapshot
	saves int

	failSave error  // returned once by the next Save
	hold     func() // runs at the start of every Save
}

func newMemRepo() *memRepo {
	return &memRepo{games: make(map[string]Snapshot)}
}

func (r *memRepo) Load(ctx context.Context, id string) (*Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.games[id]
	if !ok {
		return nil, notFound("game %s not found", id)
	}
	return Restore(s)
}

func (r *memRepo) Save(ctx context.Context, g *Game) error {
	if r.hold != nil {
		r.hold()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failSave; err != nil {
		r.failSave = nil
		return err
	}
	r.games[g.ID()] = g.Snapshot()
	r.saves++
	return nil
}

func (r *memRepo) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games = make(map[string]Snapshot)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newTestManager(cards int) (*Manager, *memRepo, *recorder) {
	repo := newMemRepo()
	src := func() ([]Card, error) { return testCards(cards), nil }
	m := NewManager(repo, src, WithSeed(3))
	rec := &recorder{}
	m.SetNotifier(rec)
	return m, repo, rec
}

// startManagedGame creates a game with n players and starts it.
func startManagedGame(t *testing.T, m *Manager, n int) (string, []string) {
	t.Helper()
	ctx := context.Background()
	id, err := m.Create(ctx, 30)
	if err != nil {
		t.Fatalf("should be able to create game: %v", err)
	}
	var players []string
	for i := 0; i < n; i++ {
		pid, err := m.Join(ctx, id, "Player")
		if err != nil {
			t.Fatalf("should be able to join: %v", err)
		}
		players = append(players, pid)
	}
	if err := m.Start(ctx, id); err != nil {
		t.Fatalf("should be able to start: %v", err)
	}
	return id, players
}

func TestManagerCreate(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(84)

	if _, err := m.Create(ctx, 22); !errors.Is(err, ErrOperation) {
		t.Fatalf("expected operation error for winning score 22, got %v", err)
	}
	id, err := m.Create(ctx, 25)
	if err != nil {
		t.Fatalf("should be able to create game: %v", err)
	}
	v, err := m.View(ctx, id, "")
	if err != nil {
		t.Fatalf("should be able to view game: %v", err)
	}
	if v.State != StatePreparing || v.WinningScore != 25 || v.DeckSize != 84 {
		t.Fatalf("unexpected view %+v", v)
	}

	small, _, _ := newTestManager(20)
	if _, err := small.Create(ctx, 30); !errors.Is(err, ErrOperation) {
		t.Fatalf("expected operation error for a small card source, got %v", err)
	}

	failing := NewManager(newMemRepo(), func() ([]Card, error) { return nil, errors.New("disk gone") })
	if _, err := failing.Create(ctx, 30); err == nil || !strings.Contains(err.Error(), "disk gone") {
		t.Fatalf("expected card source error, got %v", err)
	}
}

func TestManagerUnknownGame(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(84)
	if _, err := m.Join(ctx, "missing", "Alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := m.View(ctx, "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestManagerJoin(t *testing.T) {
	ctx := context.Background()
	m, _, rec := newTestManager(84)
	id, _ := m.Create(ctx, 30)

	if _, err := m.Join(ctx, id, "   "); !errors.Is(err, ErrOperation) {
		t.Fatalf("expected operation error for empty name, got %v", err)
	}
	pid, err := m.Join(ctx, id, " Alice ")
	if err != nil {
		t.Fatalf("should be able to join: %v", err)
	}
	joined, ok := rec.last().(PlayerJoined)
	if !ok || joined.Player.ID != pid || joined.Player.Name != "Alice" || joined.GameID() != id {
		t.Fatalf("unexpected event %+v", rec.last())
	}
	v, _ := m.View(ctx, id, pid)
	if len(v.Players) != 1 || v.You == nil || v.You.Name != "Alice" {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestManagerRejectedActionIsNotSaved(t *testing.T) {
	ctx := context.Background()
	m, repo, rec := newTestManager(84)
	id, err := m.Create(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = m.Join(ctx, id, "Alice")
	saves, events := repo.saves, rec.count()

	if err := m.Start(ctx, id); !errors.Is(err, ErrOperation) {
		t.Fatalf("expected operation error starting with one player, got %v", err)
	}
	if repo.saves != saves || rec.count() != events {
		t.Fatal("rejected action should not be saved or published")
	}
}

func TestManagerFullRound(t *testing.T) {
	ctx := context.Background()
	m, _, rec := newTestManager(84)
	id, players := startManagedGame(t, m, 4)

	if _, ok := rec.last().(RoundStarted); !ok {
		t.Fatalf("expected RoundStarted after start, got %T", rec.last())
	}

	v, _ := m.View(ctx, id, "")
	teller := v.Round.StorytellerID
	if teller != players[0] {
		t.Fatalf("first storyteller should be the first player, got %s", teller)
	}
	tv, _ := m.View(ctx, id, teller)
	storyCard := tv.You.Hand[0].ID
	if err := m.TellStory(ctx, id, teller, "lighthouse", storyCard); err != nil {
		t.Fatalf("should be able to tell story: %v", err)
	}
	if told, ok := rec.last().(StoryTold); !ok || told.Phrase != "lighthouse" {
		t.Fatalf("expected StoryTold, got %+v", rec.last())
	}

	for i, pid := range v.Round.GuesserIDs {
		pv, _ := m.View(ctx, id, pid)
		if err := m.PlayCard(ctx, id, pid, pv.You.Hand[0].ID); err != nil {
			t.Fatalf("should be able to play card: %v", err)
		}
		played := rec.last().(CardPlayed)
		if played.Remaining != len(v.Round.GuesserIDs)-i-1 {
			t.Fatalf("expected %d remaining, got %d", len(v.Round.GuesserIDs)-i-1, played.Remaining)
		}
	}
	if last := rec.last().(CardPlayed); last.Phase != PhasePlayerGuessing {
		t.Fatalf("last card should open guessing, got %s", last.Phase)
	}

	for _, pid := range v.Round.GuesserIDs {
		if err := m.GuessStory(ctx, id, pid, storyCard); err != nil {
			t.Fatalf("should be able to guess: %v", err)
		}
	}
	gains, err := m.Score(ctx, id)
	if err != nil {
		t.Fatalf("should be able to score: %v", err)
	}
	if gains[teller] != 0 {
		t.Fatalf("storyteller should gain nothing when everyone finds the card, got %d", gains[teller])
	}
	scored, ok := rec.last().(RoundScored)
	if !ok || scored.Number != 1 || scored.Scores[players[1]] != 2 {
		t.Fatalf("unexpected RoundScored %+v", rec.last())
	}
	scored.Gains[teller] = 100
	if gains[teller] != 0 {
		t.Fatal("event gains should be a copy")
	}

	if err := m.WithdrawCards(ctx, id); err != nil {
		t.Fatalf("should be able to withdraw: %v", err)
	}
	if w := rec.last().(CardsWithdrawn); w.Count != 4 {
		t.Fatalf("expected 4 cards withdrawn, got %d", w.Count)
	}
	if err := m.StartNextRound(ctx, id); err != nil {
		t.Fatalf("should be able to start next round: %v", err)
	}
	next := rec.last().(RoundStarted)
	if next.Number != 2 || next.Storyteller != players[1] {
		t.Fatalf("unexpected RoundStarted %+v", next)
	}
}

func TestManagerSerializesConcurrentActions(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(84)
	id, _ := startManagedGame(t, m, 6)

	v, _ := m.View(ctx, id, "")
	tv, _ := m.View(ctx, id, v.Round.StorytellerID)
	if err := m.TellStory(ctx, id, v.Round.StorytellerID, "rush", tv.You.Hand[0].ID); err != nil {
		t.Fatal(err)
	}

	type attempt struct {
		player string
		card   int
	}
	var attempts []attempt
	for _, pid := range v.Round.GuesserIDs {
		pv, _ := m.View(ctx, id, pid)
		// every guesser tries to play two different cards at once
		attempts = append(attempts, attempt{pid, pv.You.Hand[0].ID}, attempt{pid, pv.You.Hand[1].ID})
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for _, a := range attempts {
		wg.Add(1)
		go func(a attempt) {
			defer wg.Done()
			if err := m.PlayCard(ctx, id, a.player, a.card); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}(a)
	}
	wg.Wait()

	if ok != len(v.Round.GuesserIDs) {
		t.Fatalf("expected exactly %d successful plays, got %d", len(v.Round.GuesserIDs), ok)
	}
	after, _ := m.View(ctx, id, "")
	if after.Round.Phase != PhasePlayerGuessing || len(after.Round.PlayedBy) != len(v.Round.GuesserIDs) {
		t.Fatalf("unexpected round after concurrent plays: %+v", after.Round)
	}
	for _, p := range after.Players {
		want := InitialHandSize - 1
		if p.HandSize != want {
			t.Fatalf("player %s holds %d cards, want %d", p.ID, p.HandSize, want)
		}
	}
}

func TestManagerExportsScoredRounds(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(84)
	file := filepath.Join(t.TempDir(), "out", "results.txt")
	m.SetExportFile(file)
	id, _ := startManagedGame(t, m, 4)

	v, _ := m.View(ctx, id, "")
	tv, _ := m.View(ctx, id, v.Round.StorytellerID)
	storyCard := tv.You.Hand[0].ID
	_ = m.TellStory(ctx, id, v.Round.StorytellerID, "harbor", storyCard)
	for _, pid := range v.Round.GuesserIDs {
		pv, _ := m.View(ctx, id, pid)
		_ = m.PlayCard(ctx, id, pid, pv.You.Hand[0].ID)
	}
	for _, pid := range v.Round.GuesserIDs {
		_ = m.GuessStory(ctx, id, pid, storyCard)
	}
	if _, err := m.Score(ctx, id); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("export file should exist: %v", err)
	}
	out := string(b)
	for _, want := range []string{"Dixit Game Results", "Round 1:", "\"harbor\"", "Scores after this round:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("export missing %q:\n%s", want, out)
		}
	}
}

func TestManagerDeleteAll(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(84)
	id, _ := m.Create(ctx, 30)
	if err := m.DeleteAll(ctx); err != nil {
		t.Fatalf("should be able to delete all: %v", err)
	}
	if _, err := m.View(ctx, id, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestManagerSeedMakesDealsRepeatable(t *testing.T) {
	ctx := context.Background()
	hands := func() [][]Card {
		m, _, _ := newTestManager(84)
		id, players := startManagedGame(t, m, 4)
		var out [][]Card
		for _, pid := range players {
			v, err := m.View(ctx, id, pid)
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, v.You.Hand)
		}
		return out
	}
	first, second := hands(), hands()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seed should deal the same hands:\n%v\n%v", first, second)
	}
}

// playManagedRound plays one round in which every guesser finds the story card.
func playManagedRound(t *testing.T, m *Manager, id string) {
	t.Helper()
	ctx := context.Background()
	v, _ := m.View(ctx, id, "")
	tv, _ := m.View(ctx, id, v.Round.StorytellerID)
	storyCard := tv.You.Hand[0].ID
	if err := m.TellStory(ctx, id, v.Round.StorytellerID, "harbor", storyCard); err != nil {
		t.Fatal(err)
	}
	for _, pid := range v.Round.GuesserIDs {
		pv, _ := m.View(ctx, id, pid)
		if err := m.PlayCard(ctx, id, pid, pv.You.Hand[0].ID); err != nil {
			t.Fatal(err)
		}
	}
	for _, pid := range v.Round.GuesserIDs {
		if err := m.GuessStory(ctx, id, pid, storyCard); err != nil {
			t.Fatal(err)
		}
	}
}

func TestManagerExportsOnlySavedRounds(t *testing.T) {
	ctx := context.Background()
	m, repo, rec := newTestManager(84)
	file := filepath.Join(t.TempDir(), "results.txt")
	m.SetExportFile(file)
	id, _ := startManagedGame(t, m, 4)
	playManagedRound(t, m, id)

	repo.failSave = errors.New("disk full")
	events := rec.count()
	if _, err := m.Score(ctx, id); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected save error, got %v", err)
	}
	if rec.count() != events {
		t.Fatal("unsaved score should not be published")
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Fatalf("unsaved round should not be exported, stat: %v", err)
	}

	if _, err := m.Score(ctx, id); err != nil {
		t.Fatalf("should be able to score after the failure: %v", err)
	}
	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(b), "Round 1:"); n != 1 {
		t.Fatalf("round 1 exported %d times:\n%s", n, b)
	}
}

func TestManagerReleasesGameLocks(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(84)
	for i := 0; i < 10; i++ {
		if _, err := m.View(ctx, fmt.Sprintf("nope-%d", i), ""); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	id, _ := startManagedGame(t, m, 4)
	_, _ = m.View(ctx, id, "")

	m.mu.Lock()
	n := len(m.locks)
	m.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected no locks once calls return, got %d", n)
	}
}

func TestManagerDeleteAllWaitsForActionsInFlight(t *testing.T) {
	ctx := context.Background()
	m, repo, _ := newTestManager(84)
	id, err := m.Create(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	repo.hold = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	joined := make(chan error, 1)
	go func() {
		_, err := m.Join(ctx, id, "Alice")
		joined <- err
	}()
	<-entered

	deleted := make(chan error, 1)
	go func() { deleted <- m.DeleteAll(ctx) }()
	select {
	case <-deleted:
		t.Fatal("DeleteAll should wait for the join in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-joined; err != nil {
		t.Fatalf("join should succeed: %v", err)
	}
	if err := <-deleted; err != nil {
		t.Fatalf("should be able to delete all: %v", err)
	}
	if _, err := m.View(ctx, id, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted game came back: %v", err)
	}
}
