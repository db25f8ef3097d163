package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"keyclue/internal/cache"
	"keyclue/internal/model"
	"keyclue/internal/repository"
	"keyclue/internal/session"
)

// In-memory fakes for the store, cache, and session surfaces. Each fake
// mirrors the error contract of the real implementation (nil,nil on not
// found; ErrDuplicatePick on a second guess).

type fakeGameRepo struct {
	mu    sync.Mutex
	games map[string]*model.Game
}

func newFakeGameRepo() *fakeGameRepo {
	return &fakeGameRepo{games: make(map[string]*model.Game)}
}

func (r *fakeGameRepo) Create(ctx context.Context, game *model.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if game.CreatedAt.IsZero() {
		game.CreatedAt = time.Now()
	}
	cp := *game
	r.games[game.Code] = &cp
	return nil
}

func (r *fakeGameRepo) GetByCode(ctx context.Context, code string) (*model.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	game, ok := r.games[code]
	if !ok {
		return nil, nil
	}
	cp := *game
	return &cp, nil
}

func (r *fakeGameRepo) Update(ctx context.Context, game *model.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *game
	r.games[game.Code] = &cp
	return nil
}

func (r *fakeGameRepo) SetState(ctx context.Context, code string, state model.GameState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	game, ok := r.games[code]
	if !ok {
		return fmt.Errorf("game %s not found", code)
	}
	game.State = state
	if state.Terminal() {
		now := time.Now()
		game.EndedAt = &now
	}
	return nil
}

func (r *fakeGameRepo) Delete(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, code)
	return nil
}

type fakeRoundRepo struct {
	mu     sync.Mutex
	rounds map[string]*model.Round
	seq    int
}

func newFakeRoundRepo() *fakeRoundRepo {
	return &fakeRoundRepo{rounds: make(map[string]*model.Round)}
}

func (r *fakeRoundRepo) Create(ctx context.Context, round *model.Round) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if round.ID == "" {
		r.seq++
		round.ID = fmt.Sprintf("round-%d", r.seq)
	}
	cp := *round
	r.rounds[round.ID] = &cp
	return nil
}

func (r *fakeRoundRepo) GetByID(ctx context.Context, id string) (*model.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	round, ok := r.rounds[id]
	if !ok {
		return nil, nil
	}
	cp := *round
	return &cp, nil
}

func (r *fakeRoundRepo) GetPlaying(ctx context.Context, gameCode string) (*model.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, round := range r.rounds {
		if round.GameCode == gameCode && round.State == model.RoundPlaying {
			cp := *round
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRoundRepo) Update(ctx context.Context, round *model.Round) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *round
	r.rounds[round.ID] = &cp
	return nil
}

func (r *fakeRoundRepo) ListByGame(ctx context.Context, gameCode string) ([]*model.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Round
	for _, round := range r.rounds {
		if round.GameCode == gameCode {
			cp := *round
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *fakeRoundRepo) CountByGame(ctx context.Context, gameCode string) (int64, error) {
	rounds, _ := r.ListByGame(ctx, gameCode)
	return int64(len(rounds)), nil
}

type fakePickRepo struct {
	mu    sync.Mutex
	picks map[string]*model.Pick // keyed by roundID|playerID
	seq   int
}

func newFakePickRepo() *fakePickRepo {
	return &fakePickRepo{picks: make(map[string]*model.Pick)}
}

func (r *fakePickRepo) Create(ctx context.Context, pick *model.Pick) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pick.RoundID + "|" + pick.PlayerID
	if _, ok := r.picks[key]; ok {
		return repository.ErrDuplicatePick
	}
	r.seq++
	pick.ID = fmt.Sprintf("pick-%d", r.seq)
	pick.CreatedAt = time.Now()
	cp := *pick
	r.picks[key] = &cp
	return nil
}

func (r *fakePickRepo) ListByRound(ctx context.Context, roundID string) ([]*model.Pick, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Pick
	for _, pick := range r.picks {
		if pick.RoundID == roundID {
			cp := *pick
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePickRepo) CountByRound(ctx context.Context, roundID string) (int64, error) {
	picks, _ := r.ListByRound(ctx, roundID)
	return int64(len(picks)), nil
}

func (r *fakePickRepo) EnsureIndexes(ctx context.Context) error { return nil }

type fakePlayerRepo struct {
	mu      sync.Mutex
	players map[string]*model.Player
	seq     int
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{players: make(map[string]*model.Player)}
}

func (r *fakePlayerRepo) Create(ctx context.Context, player *model.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if player.ID == "" {
		r.seq++
		player.ID = fmt.Sprintf("player-%d", r.seq)
	}
	player.JoinedAt = time.Now()
	cp := *player
	r.players[player.ID] = &cp
	return nil
}

func (r *fakePlayerRepo) GetByID(ctx context.Context, id string) (*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[id]
	if !ok {
		return nil, nil
	}
	cp := *player
	return &cp, nil
}

func (r *fakePlayerRepo) ListByGame(ctx context.Context, gameCode string) ([]*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Player
	for _, player := range r.players {
		if player.GameCode == gameCode {
			cp := *player
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePlayerRepo) CountByGame(ctx context.Context, gameCode string) (int64, error) {
	players, _ := r.ListByGame(ctx, gameCode)
	return int64(len(players)), nil
}

func (r *fakePlayerRepo) AddScore(ctx context.Context, id string, points int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[id]
	if !ok {
		return fmt.Errorf("player %s not found", id)
	}
	player.Score += points
	return nil
}

type fakeWordRepo struct {
	mu    sync.Mutex
	words []*model.Word
}

func (r *fakeWordRepo) Create(ctx context.Context, word *model.Word) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if word.Length == 0 {
		word.Length = len([]rune(word.Text))
	}
	cp := *word
	r.words = append(r.words, &cp)
	return nil
}

func (r *fakeWordRepo) GetByID(ctx context.Context, id string) (*model.Word, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, word := range r.words {
		if word.ID == id {
			cp := *word
			return &cp, nil
		}
	}
	return nil, nil
}

// Random is deterministic: the first catalog entry of the right length not
// yet excluded.
func (r *fakeWordRepo) Random(ctx context.Context, length int, excludeIDs []string) (*model.Word, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	for _, word := range r.words {
		if word.Length == length && !excluded[word.ID] {
			cp := *word
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeWordRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.words)), nil
}

type fakeGameCache struct {
	mu    sync.Mutex
	metas map[string]*model.GameMeta
}

func newFakeGameCache() *fakeGameCache {
	return &fakeGameCache{metas: make(map[string]*model.GameMeta)}
}

func (c *fakeGameCache) SetMeta(ctx context.Context, code string, meta *model.GameMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *meta
	c.metas[code] = &cp
	return nil
}

func (c *fakeGameCache) GetMeta(ctx context.Context, code string) (*model.GameMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.metas[code]
	if !ok {
		return nil, nil
	}
	cp := *meta
	return &cp, nil
}

func (c *fakeGameCache) SetState(ctx context.Context, code string, state model.GameState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.metas[code]
	if !ok {
		return fmt.Errorf("game %s not cached", code)
	}
	meta.State = state
	return nil
}

func (c *fakeGameCache) Delete(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.metas, code)
	return nil
}

func (c *fakeGameCache) Exists(ctx context.Context, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.metas[code]
	return ok, nil
}

type fakeLeaderboard struct {
	mu     sync.Mutex
	scores map[string]map[string]int // gameCode -> playerID -> score
}

func newFakeLeaderboard() *fakeLeaderboard {
	return &fakeLeaderboard{scores: make(map[string]map[string]int)}
}

func (c *fakeLeaderboard) AddScore(ctx context.Context, gameCode, playerID string, points int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scores[gameCode] == nil {
		c.scores[gameCode] = make(map[string]int)
	}
	c.scores[gameCode][playerID] += points
	return nil
}

func (c *fakeLeaderboard) GetTop(ctx context.Context, gameCode string, limit int) ([]cache.LeaderboardEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]cache.LeaderboardEntry, 0, len(c.scores[gameCode]))
	for playerID, score := range c.scores[gameCode] {
		entries = append(entries, cache.LeaderboardEntry{PlayerID: playerID, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (c *fakeLeaderboard) GetRank(ctx context.Context, gameCode, playerID string) (int64, error) {
	top, _ := c.GetTop(ctx, gameCode, 1<<30)
	for _, e := range top {
		if e.PlayerID == playerID {
			return int64(e.Rank), nil
		}
	}
	return -1, nil
}

func (c *fakeLeaderboard) Delete(ctx context.Context, gameCode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scores, gameCode)
	return nil
}

type timerCall struct {
	gameCode string
	roundID  string
	interval int
}

type fakeSessions struct {
	mu         sync.Mutex
	snap       session.Snapshot
	startErr   error
	starts     []timerCall
	stops      []string
	pauses     []string
	terminated []string
}

func (f *fakeSessions) StartRoundTimer(ctx context.Context, gameCode, roundID string, intervalSec int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts = append(f.starts, timerCall{gameCode: gameCode, roundID: roundID, interval: intervalSec})
	return nil
}

func (f *fakeSessions) StopRoundTimer(gameCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, gameCode)
	return nil
}

func (f *fakeSessions) PauseTimer(gameCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses = append(f.pauses, gameCode)
	return nil
}

func (f *fakeSessions) State(gameCode string) (session.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, nil
}

func (f *fakeSessions) Terminate(gameCode string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = append(f.terminated, gameCode)
}

func (f *fakeSessions) setSnapshot(snap session.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
}

func (f *fakeSessions) terminateCount(gameCode string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, code := range f.terminated {
		if code == gameCode {
			n++
		}
	}
	return n
}

func catalogWord(id, text string, keywords int) *model.Word {
	kws := make([]model.Keyword, keywords)
	for i := range kws {
		kws[i] = model.Keyword{ID: fmt.Sprintf("%s-%d", id, i+1), Text: fmt.Sprintf("clue %d", i+1)}
	}
	return &model.Word{ID: id, Text: text, Length: len([]rune(text)), Keywords: kws}
}
