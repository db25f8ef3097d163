package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"keyclue/internal/bus"
	"keyclue/internal/model"
)

type gameFixture struct {
	gameRepo   *fakeGameRepo
	roundRepo  *fakeRoundRepo
	pickRepo   *fakePickRepo
	playerRepo *fakePlayerRepo
	wordRepo   *fakeWordRepo
	gameCache  *fakeGameCache
	lb         *fakeLeaderboard
	sessions   *fakeSessions
	bus        *bus.Bus
	svc        *GameService

	mu        sync.Mutex
	scheduled []func()
}

func newGameFixture() *gameFixture {
	f := &gameFixture{
		gameRepo:   newFakeGameRepo(),
		roundRepo:  newFakeRoundRepo(),
		pickRepo:   newFakePickRepo(),
		playerRepo: newFakePlayerRepo(),
		wordRepo:   &fakeWordRepo{},
		gameCache:  newFakeGameCache(),
		lb:         newFakeLeaderboard(),
		sessions:   &fakeSessions{},
		bus:        bus.New(),
	}
	f.svc = NewGameService(
		f.gameRepo, f.roundRepo, f.playerRepo,
		NewWordService(f.wordRepo),
		f.gameCache, f.lb, f.sessions, f.bus,
		10*time.Minute,
	)
	f.svc.schedule = func(d time.Duration, fn func()) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.scheduled = append(f.scheduled, fn)
	}
	return f
}

func (f *gameFixture) fireScheduled() {
	f.mu.Lock()
	fns := f.scheduled
	f.scheduled = nil
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// seedGame installs a game in both the store and the cache
func (f *gameFixture) seedGame(code string, state model.GameState, settings model.GameSettings) {
	ctx := context.Background()
	game := &model.Game{Code: code, State: state, HostID: "host_abc", Settings: settings}
	f.gameRepo.Create(ctx, game)
	f.gameCache.SetMeta(ctx, code, &model.GameMeta{
		HostID:            "host_abc",
		State:             state,
		RevealIntervalSec: settings.RevealIntervalSec,
		Rounds:            settings.Rounds,
	})
}

func (f *gameFixture) seedPlayer(code, nickname string) *model.Player {
	player := &model.Player{GameCode: code, Nickname: nickname}
	f.playerRepo.Create(context.Background(), player)
	return player
}

func (f *gameFixture) seedWords(words ...*model.Word) {
	for _, w := range words {
		f.wordRepo.Create(context.Background(), w)
	}
}

func (f *gameFixture) gameState(t *testing.T, code string) model.GameState {
	t.Helper()
	game, err := f.gameRepo.GetByCode(context.Background(), code)
	if err != nil || game == nil {
		t.Fatalf("game %s not in store (err=%v)", code, err)
	}
	return game.State
}

func defaultSettings() model.GameSettings {
	return model.GameSettings{Rounds: 2, RevealIntervalSec: 3, GridSize: 5}
}

func TestCreateGameValidatesSettings(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()

	bad := []model.GameSettings{
		{Rounds: 0, RevealIntervalSec: 3, GridSize: 5},
		{Rounds: 2, RevealIntervalSec: 0, GridSize: 5},
		{Rounds: 2, RevealIntervalSec: 3, GridSize: 1},
	}
	for _, settings := range bad {
		if _, err := f.svc.CreateGame(ctx, "host_abc", settings); err == nil {
			t.Errorf("CreateGame accepted invalid settings %+v", settings)
		}
	}
}

func TestCreateGameCachesMetaAndSchedulesExpiry(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()

	game, err := f.svc.CreateGame(ctx, "host_abc", defaultSettings())
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if len(game.Code) != 6 {
		t.Errorf("game code %q, want 6 chars", game.Code)
	}
	if game.State != model.GameWaitingForPlayers {
		t.Errorf("new game state = %s", game.State)
	}

	meta, err := f.gameCache.GetMeta(ctx, game.Code)
	if err != nil || meta == nil {
		t.Fatalf("meta not cached (err=%v)", err)
	}
	if meta.HostID != "host_abc" || meta.Rounds != 2 {
		t.Errorf("cached meta = %+v", meta)
	}

	f.mu.Lock()
	pending := len(f.scheduled)
	f.mu.Unlock()
	if pending != 1 {
		t.Errorf("%d expiry timers scheduled, want 1", pending)
	}
}

func TestStartGameChecks(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	f.seedGame("ABC123", model.GameWaitingForPlayers, defaultSettings())

	if err := f.svc.StartGame(ctx, "NOPE", "host_abc"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("unknown game: err = %v, want ErrGameNotFound", err)
	}
	if err := f.svc.StartGame(ctx, "ABC123", "host_other"); !errors.Is(err, ErrNotHost) {
		t.Errorf("wrong host: err = %v, want ErrNotHost", err)
	}
	if err := f.svc.StartGame(ctx, "ABC123", "host_abc"); !errors.Is(err, ErrNoPlayers) {
		t.Errorf("empty lobby: err = %v, want ErrNoPlayers", err)
	}

	f.seedGame("XYZ789", model.GameRunning, defaultSettings())
	if err := f.svc.StartGame(ctx, "XYZ789", "host_abc"); !errors.Is(err, ErrGameNotStartable) {
		t.Errorf("already running: err = %v, want ErrGameNotStartable", err)
	}
}

func TestStartGameBeginsRoundOne(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	f.seedGame("ABC123", model.GameWaitingForPlayers, defaultSettings())
	f.seedPlayer("ABC123", "alice")
	f.seedWords(catalogWord("w1", "piano", 4), catalogWord("w2", "tiger", 4))

	sub := f.bus.Subscribe(bus.GameTopic("ABC123"))
	defer f.bus.Unsubscribe(sub)

	if err := f.svc.StartGame(ctx, "ABC123", "host_abc"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	if got := f.gameState(t, "ABC123"); got != model.GameRunning {
		t.Errorf("game state = %s, want game_running", got)
	}
	meta, _ := f.gameCache.GetMeta(ctx, "ABC123")
	if meta.State != model.GameRunning {
		t.Errorf("cached state = %s, want game_running", meta.State)
	}

	round, err := f.roundRepo.GetPlaying(ctx, "ABC123")
	if err != nil || round == nil {
		t.Fatalf("no playing round after start (err=%v)", err)
	}
	if round.Position != 1 || round.WordID != "w1" || len(round.KeywordIDs) != 4 {
		t.Errorf("round 1 = %+v", round)
	}

	f.sessions.mu.Lock()
	starts := append([]timerCall(nil), f.sessions.starts...)
	f.sessions.mu.Unlock()
	if len(starts) != 1 {
		t.Fatalf("%d timers started, want 1", len(starts))
	}
	if starts[0] != (timerCall{gameCode: "ABC123", roundID: round.ID, interval: 3}) {
		t.Errorf("timer started with %+v", starts[0])
	}

	types := drainEventTypes(sub)
	if !containsInOrder(types, model.EventGameStarted, model.EventRoundStarted) {
		t.Errorf("events = %v, want game_started then round_started", types)
	}
}

func TestAdvanceRoundMovesToNextRound(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	f.seedGame("ABC123", model.GameWaitingForPlayers, defaultSettings())
	f.seedPlayer("ABC123", "alice")
	f.seedWords(catalogWord("w1", "piano", 4), catalogWord("w2", "tiger", 4))

	if err := f.svc.StartGame(ctx, "ABC123", "host_abc"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	round1, _ := f.roundRepo.GetPlaying(ctx, "ABC123")

	if err := f.svc.AdvanceRound(ctx, "ABC123", round1.ID, false); err != nil {
		t.Fatalf("AdvanceRound: %v", err)
	}

	finished, _ := f.roundRepo.GetByID(ctx, round1.ID)
	if finished.State != model.RoundFinished || finished.EndedAt == nil {
		t.Errorf("round 1 after advance = %+v", finished)
	}

	round2, _ := f.roundRepo.GetPlaying(ctx, "ABC123")
	if round2 == nil || round2.Position != 2 {
		t.Fatalf("round 2 not playing: %+v", round2)
	}
	if round2.WordID != "w2" {
		t.Errorf("round 2 reused word %s", round2.WordID)
	}

	// advancing the finished round again is a silent no-op
	if err := f.svc.AdvanceRound(ctx, "ABC123", round1.ID, true); err != nil {
		t.Fatalf("second AdvanceRound: %v", err)
	}
	if again, _ := f.roundRepo.GetPlaying(ctx, "ABC123"); again == nil || again.ID != round2.ID {
		t.Errorf("idempotent advance changed the playing round: %+v", again)
	}
}

func TestAdvanceLastRoundFinishesGame(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	settings := defaultSettings()
	settings.Rounds = 1
	f.seedGame("ABC123", model.GameWaitingForPlayers, settings)
	f.seedPlayer("ABC123", "alice")
	f.seedWords(catalogWord("w1", "piano", 4))

	if err := f.svc.StartGame(ctx, "ABC123", "host_abc"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	round, _ := f.roundRepo.GetPlaying(ctx, "ABC123")

	sub := f.bus.Subscribe(bus.GameTopic("ABC123"))
	defer f.bus.Unsubscribe(sub)

	if err := f.svc.AdvanceRound(ctx, "ABC123", round.ID, true); err != nil {
		t.Fatalf("AdvanceRound: %v", err)
	}

	if got := f.gameState(t, "ABC123"); got != model.GameOver {
		t.Errorf("game state = %s, want game_over", got)
	}
	if n := f.sessions.terminateCount("ABC123"); n != 1 {
		t.Errorf("session terminated %d times, want 1", n)
	}

	types := drainEventTypes(sub)
	if !containsInOrder(types, model.EventRoundFinished, model.EventGameOver) {
		t.Errorf("events = %v, want round_finished then game_over", types)
	}
}

func TestEndGameRequiresHost(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	f.seedGame("ABC123", model.GameRunning, defaultSettings())

	if err := f.svc.EndGame(ctx, "ABC123", "host_other"); !errors.Is(err, ErrNotHost) {
		t.Errorf("wrong host: err = %v, want ErrNotHost", err)
	}
	if err := f.svc.EndGame(ctx, "ABC123", "host_abc"); err != nil {
		t.Fatalf("EndGame: %v", err)
	}
	if got := f.gameState(t, "ABC123"); got != model.GameOver {
		t.Errorf("game state = %s, want game_over", got)
	}

	// ending a finished game is a no-op
	if err := f.svc.EndGame(ctx, "ABC123", "host_abc"); err != nil {
		t.Errorf("EndGame on terminal game: %v", err)
	}
}

func TestCleanupOnHostDisconnect(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	f.seedGame("ABC123", model.GameRunning, defaultSettings())

	sub := f.bus.Subscribe(bus.GameTopic("ABC123"))
	defer f.bus.Unsubscribe(sub)

	if err := f.svc.CleanupGameOnHostDisconnect(ctx, "ABC123"); err != nil {
		t.Fatalf("CleanupGameOnHostDisconnect: %v", err)
	}

	if got := f.gameState(t, "ABC123"); got != model.GameHostDisconnected {
		t.Errorf("game state = %s, want host_disconnected", got)
	}
	if n := f.sessions.terminateCount("ABC123"); n != 1 {
		t.Errorf("session terminated %d times, want 1", n)
	}

	types := drainEventTypes(sub)
	if !containsInOrder(types, model.EventGameEnded) {
		t.Errorf("events = %v, want game_ended", types)
	}

	// second call must not touch the already-terminated game
	if err := f.svc.CleanupGameOnHostDisconnect(ctx, "ABC123"); err != nil {
		t.Fatalf("second cleanup: %v", err)
	}
	if got := f.gameState(t, "ABC123"); got != model.GameHostDisconnected {
		t.Errorf("second cleanup changed state to %s", got)
	}
	if n := f.sessions.terminateCount("ABC123"); n != 1 {
		t.Errorf("second cleanup terminated the session again (%d)", n)
	}
}

func TestCleanupUnknownGameIsNoOp(t *testing.T) {
	f := newGameFixture()
	if err := f.svc.CleanupGameOnHostDisconnect(context.Background(), "NOPE"); err != nil {
		t.Errorf("cleanup of unknown game: %v", err)
	}
}

func TestLobbyExpiry(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()

	game, err := f.svc.CreateGame(ctx, "host_abc", defaultSettings())
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	f.fireScheduled()

	if got := f.gameState(t, game.Code); got != model.GameLobbyTimeout {
		t.Errorf("stale lobby state = %s, want lobby_timeout", got)
	}
}

func TestLobbyExpirySkipsStartedGame(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()

	game, err := f.svc.CreateGame(ctx, "host_abc", defaultSettings())
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	f.seedPlayer(game.Code, "alice")
	f.seedWords(catalogWord("w1", "piano", 4), catalogWord("w2", "tiger", 4))
	if err := f.svc.StartGame(ctx, game.Code, "host_abc"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	f.fireScheduled()

	if got := f.gameState(t, game.Code); got != model.GameRunning {
		t.Errorf("running game expired to %s", got)
	}
}

func TestSessionStateReportsRoundProgress(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	f.seedGame("ABC123", model.GameWaitingForPlayers, defaultSettings())
	f.seedPlayer("ABC123", "alice")
	f.seedWords(catalogWord("w1", "piano", 4), catalogWord("w2", "tiger", 4))

	if err := f.svc.StartGame(ctx, "ABC123", "host_abc"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	report, err := f.svc.SessionState(ctx, "ABC123")
	if err != nil {
		t.Fatalf("SessionState: %v", err)
	}
	if report.RoundsPlayed != 1 {
		t.Errorf("RoundsPlayed = %d after round 1 start, want 1", report.RoundsPlayed)
	}

	round1, _ := f.roundRepo.GetPlaying(ctx, "ABC123")
	if err := f.svc.AdvanceRound(ctx, "ABC123", round1.ID, false); err != nil {
		t.Fatalf("AdvanceRound: %v", err)
	}

	report, err = f.svc.SessionState(ctx, "ABC123")
	if err != nil {
		t.Fatalf("SessionState after advance: %v", err)
	}
	if report.RoundsPlayed != 2 {
		t.Errorf("RoundsPlayed = %d after round 2 start, want 2", report.RoundsPlayed)
	}
}

func TestLeaderboardResolvesNicknames(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()

	alice := f.seedPlayer("ABC123", "alice")
	bob := f.seedPlayer("ABC123", "bob")
	f.lb.AddScore(ctx, "ABC123", alice.ID, 150)
	f.lb.AddScore(ctx, "ABC123", bob.ID, 300)

	entries, err := f.svc.Leaderboard(ctx, "ABC123", 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("%d entries, want 2", len(entries))
	}
	if entries[0].Nickname != "bob" || entries[0].Score != 300 || entries[0].Rank != 1 {
		t.Errorf("top entry = %+v", entries[0])
	}
	if entries[1].Nickname != "alice" {
		t.Errorf("second entry = %+v", entries[1])
	}
}

func TestRoundTimeoutEventAdvancesRound(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	f.seedGame("ABC123", model.GameWaitingForPlayers, defaultSettings())
	f.seedPlayer("ABC123", "alice")
	f.seedWords(catalogWord("w1", "piano", 4), catalogWord("w2", "tiger", 4))

	if err := f.svc.StartGame(ctx, "ABC123", "host_abc"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	round1, _ := f.roundRepo.GetPlaying(ctx, "ABC123")

	// emit the timeout the session process would publish
	f.bus.Publish(bus.GameTopic("ABC123"), bus.Event{
		Type:    model.EventRoundTimeout,
		Payload: model.RoundTimeoutPayload{RoundID: round1.ID},
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r, _ := f.roundRepo.GetByID(ctx, round1.ID); r != nil && r.State == model.RoundFinished {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	finished, _ := f.roundRepo.GetByID(ctx, round1.ID)
	if finished.State != model.RoundFinished {
		t.Fatalf("round not finished after timeout event: %+v", finished)
	}
	round2, _ := f.roundRepo.GetPlaying(ctx, "ABC123")
	if round2 == nil || round2.Position != 2 {
		t.Errorf("round 2 not started after timeout: %+v", round2)
	}
}

// drainEventTypes empties a subscription buffer and returns the event types
// in publish order.
func drainEventTypes(sub *bus.Subscription) []string {
	var types []string
	for {
		select {
		case evt := <-sub.C:
			types = append(types, evt.Type)
		default:
			return types
		}
	}
}

func containsInOrder(types []string, want ...string) bool {
	i := 0
	for _, typ := range types {
		if i < len(want) && typ == want[i] {
			i++
		}
	}
	return i == len(want)
}
