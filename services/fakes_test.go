package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tcg-arena/events"
	"github.com/Dosada05/tcg-arena/models"
	"github.com/Dosada05/tcg-arena/repositories"
	"github.com/Dosada05/tcg-arena/storage"
)

// memStore is the shared backing state of the in-memory repositories.
// Methods return copies, like the SQL implementations return fresh rows.
type memStore struct {
	mu           sync.Mutex
	tournaments  map[int]*models.Tournament
	participants map[int]*models.Participant
	rounds       map[int]*models.Round
	matches      map[int]*models.Match
	pairs        map[int][]models.PairKey
	disputes     map[int]*models.Dispute
	nextID       int
}

func newMemStore() *memStore {
	return &memStore{
		tournaments:  make(map[int]*models.Tournament),
		participants: make(map[int]*models.Participant),
		rounds:       make(map[int]*models.Round),
		matches:      make(map[int]*models.Match),
		pairs:        make(map[int][]models.PairKey),
		disputes:     make(map[int]*models.Dispute),
		nextID:       1,
	}
}

func (s *memStore) id() int {
	v := s.nextID
	s.nextID++
	return v
}

type memTournamentRepo struct{ store *memStore }

func (r *memTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.tournaments {
		if existing.OrganizerID == t.OrganizerID && existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	t.ID = r.store.id()
	t.CreatedAt = time.Now()
	stored := *t
	stored.Participants = nil
	stored.Rounds = nil
	r.store.tournaments[t.ID] = &stored
	return nil
}

func (r *memTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *memTournamentRepo) List(_ context.Context, status *models.TournamentStatus, limit, offset int) ([]models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var list []models.Tournament
	for _, t := range r.store.tournaments {
		if status != nil && t.Status != *status {
			continue
		}
		list = append(list, *t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	if offset >= len(list) {
		return nil, nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

func (r *memTournamentRepo) UpdateState(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus, currentRound int, resolvedEarly bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	t.CurrentRound = currentRound
	t.ResolvedEarly = resolvedEarly
	return nil
}

type memParticipantRepo struct{ store *memStore }

func (r *memParticipantRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.Participant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p.ID = r.store.id()
	stored := *p
	r.store.participants[p.ID] = &stored
	return nil
}

func (r *memParticipantRepo) ListByTournament(_ context.Context, tournamentID int, onlyActive bool) ([]*models.Participant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var list []*models.Participant
	for _, p := range r.store.participants {
		if p.TournamentID != tournamentID {
			continue
		}
		if onlyActive && !p.Active {
			continue
		}
		clone := *p
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Seed < list[j].Seed })
	return list, nil
}

func (r *memParticipantRepo) SetActive(_ context.Context, _ repositories.SQLExecutor, participantID int, active bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.participants[participantID]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Active = active
	return nil
}

type memRoundRepo struct{ store *memStore }

func (r *memRoundRepo) Create(_ context.Context, _ repositories.SQLExecutor, round *models.Round) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	round.ID = r.store.id()
	stored := *round
	stored.Matches = nil
	r.store.rounds[round.ID] = &stored
	return nil
}

func (r *memRoundRepo) GetByID(_ context.Context, roundID int) (*models.Round, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	round, ok := r.store.rounds[roundID]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	clone := *round
	return &clone, nil
}

func (r *memRoundRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.Round, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var list []*models.Round
	for _, round := range r.store.rounds {
		if round.TournamentID != tournamentID {
			continue
		}
		clone := *round
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Number < list[j].Number })
	return list, nil
}

func (r *memRoundRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, roundID int, status models.RoundStatus, completedAt *time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	round, ok := r.store.rounds[roundID]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	round.Status = status
	round.CompletedAt = completedAt
	return nil
}

type memMatchRepo struct{ store *memStore }

func (r *memMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match.ID = r.store.id()
	match.CreatedAt = time.Now()
	stored := *match
	r.store.matches[match.ID] = &stored
	return nil
}

func (r *memMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	clone := *match
	return &clone, nil
}

func (r *memMatchRepo) ListByRound(_ context.Context, roundID int) ([]*models.Match, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var list []*models.Match
	for _, match := range r.store.matches {
		if match.RoundID != roundID {
			continue
		}
		clone := *match
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].OrderInRound < list[j].OrderInRound })
	return list, nil
}

func (r *memMatchRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.Match, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var list []*models.Match
	for _, match := range r.store.matches {
		if match.TournamentID != tournamentID {
			continue
		}
		clone := *match
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].RoundID != list[j].RoundID {
			return list[i].RoundID < list[j].RoundID
		}
		return list[i].OrderInRound < list[j].OrderInRound
	})
	return list, nil
}

func (r *memMatchRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, matchID int, update repositories.MatchResultUpdate, expectedVersion int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if match.Version != expectedVersion {
		return repositories.ErrMatchVersionConflict
	}
	match.WinnerID = update.WinnerID
	match.Draw = update.Draw
	match.P1Games = update.P1Games
	match.P2Games = update.P2Games
	match.Verification = update.Verification
	match.ReportedBy = update.ReportedBy
	match.Version++
	return nil
}

func (r *memMatchRepo) SetVerification(_ context.Context, _ repositories.SQLExecutor, matchID int, verification models.MatchVerification) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Verification = verification
	match.Version++
	return nil
}

type memPairingHistoryRepo struct{ store *memStore }

func (r *memPairingHistoryRepo) Append(_ context.Context, _ repositories.SQLExecutor, tournamentID int, pairs []models.PairKey) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.pairs[tournamentID] = append(r.store.pairs[tournamentID], pairs...)
	return nil
}

func (r *memPairingHistoryRepo) ListByTournament(_ context.Context, tournamentID int) ([]models.PairKey, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]models.PairKey(nil), r.store.pairs[tournamentID]...), nil
}

type memDisputeRepo struct{ store *memStore }

func (r *memDisputeRepo) Create(_ context.Context, _ repositories.SQLExecutor, dispute *models.Dispute) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	dispute.ID = r.store.id()
	dispute.CreatedAt = time.Now()
	stored := *dispute
	r.store.disputes[dispute.ID] = &stored
	return nil
}

func (r *memDisputeRepo) GetByID(_ context.Context, id int) (*models.Dispute, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	dispute, ok := r.store.disputes[id]
	if !ok {
		return nil, repositories.ErrDisputeNotFound
	}
	clone := *dispute
	return &clone, nil
}

func (r *memDisputeRepo) GetOpenByMatch(_ context.Context, matchID int) (*models.Dispute, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, dispute := range r.store.disputes {
		if dispute.MatchID == matchID && dispute.Status == models.DisputeOpen {
			clone := *dispute
			return &clone, nil
		}
	}
	return nil, repositories.ErrDisputeNotFound
}

func (r *memDisputeRepo) Resolve(_ context.Context, _ repositories.SQLExecutor, disputeID int, winnerID int, resolvedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	dispute, ok := r.store.disputes[disputeID]
	if !ok {
		return repositories.ErrDisputeNotFound
	}
	dispute.Status = models.DisputeResolved
	dispute.ResolvedWinnerID = &winnerID
	dispute.ResolvedAt = &resolvedAt
	return nil
}

func (r *memDisputeRepo) ListOpenByTournament(_ context.Context, tournamentID int) ([]*models.Dispute, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var list []*models.Dispute
	for _, dispute := range r.store.disputes {
		if dispute.TournamentID == tournamentID && dispute.Status == models.DisputeOpen {
			clone := *dispute
			list = append(list, &clone)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// recordingBroadcaster captures emitted events for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBroadcaster) Emit(_ int, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) types() []events.Type {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]events.Type, len(b.events))
	for i, e := range b.events {
		types[i] = e.EventType()
	}
	return types
}

func (b *recordingBroadcaster) countOf(eventType events.Type) int {
	count := 0
	for _, et := range b.types() {
		if et == eventType {
			count++
		}
	}
	return count
}

func (b *recordingBroadcaster) last(eventType events.Type) events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].EventType() == eventType {
			return b.events[i]
		}
	}
	return nil
}

// testEnv wires the full service graph over the in-memory repositories.
// Transactions run against a sqlmock connection: the fakes apply writes
// directly, the mock only supplies Begin/Commit/Rollback.
type testEnv struct {
	store       *memStore
	db          *sql.DB
	locks       *LockRegistry
	broadcaster *recordingBroadcaster
	engine      *RoundEngine
	tournaments TournamentService
	results     ResultService
	standings   StandingsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 64; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}

	store := newMemStore()
	tournamentRepo := &memTournamentRepo{store: store}
	participantRepo := &memParticipantRepo{store: store}
	roundRepo := &memRoundRepo{store: store}
	matchRepo := &memMatchRepo{store: store}
	historyRepo := &memPairingHistoryRepo{store: store}
	disputeRepo := &memDisputeRepo{store: store}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locks := NewLockRegistry(2 * time.Second)
	broadcaster := &recordingBroadcaster{}

	engine := NewRoundEngine(db, tournamentRepo, participantRepo, roundRepo, matchRepo, historyRepo, locks, broadcaster, storage.NoopArchiver{}, logger)

	return &testEnv{
		store:       store,
		db:          db,
		locks:       locks,
		broadcaster: broadcaster,
		engine:      engine,
		tournaments: NewTournamentService(db, tournamentRepo, participantRepo, roundRepo, matchRepo, engine, locks, logger),
		results:     NewResultService(db, tournamentRepo, participantRepo, roundRepo, matchRepo, disputeRepo, engine, broadcaster, logger),
		standings:   NewStandingsService(tournamentRepo, participantRepo, roundRepo, matchRepo),
	}
}

func (env *testEnv) createTournament(t *testing.T, format models.TournamentFormat, organizerID, players int) *models.Tournament {
	t.Helper()
	entries := make([]ParticipantEntry, 0, players)
	for i := 1; i <= players; i++ {
		entries = append(entries, ParticipantEntry{UserID: 1000 + i, DisplayName: "player-" + string(rune('a'+i-1))})
	}
	tournament, err := env.tournaments.Create(context.Background(), CreateTournamentParams{
		Name:         "Friday Showdown",
		Format:       format,
		OrganizerID:  organizerID,
		Participants: entries,
	})
	require.NoError(t, err)
	return tournament
}

// activeMatches returns the unresolved matches of the currently active
// round, in board order.
func (env *testEnv) activeMatches(t *testing.T, tournamentID int) []*models.Match {
	t.Helper()
	env.store.mu.Lock()
	defer env.store.mu.Unlock()

	var activeRoundID int
	for _, round := range env.store.rounds {
		if round.TournamentID == tournamentID && round.Status == models.RoundActive {
			activeRoundID = round.ID
		}
	}
	require.NotZero(t, activeRoundID, "no active round")

	var list []*models.Match
	for _, match := range env.store.matches {
		if match.RoundID == activeRoundID && !match.Completed() {
			clone := *match
			list = append(list, &clone)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].OrderInRound < list[j].OrderInRound })
	return list
}

// reporterFor returns the user id of the participant occupying slot one.
func (env *testEnv) reporterFor(t *testing.T, match *models.Match) int {
	t.Helper()
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	p, ok := env.store.participants[match.P1ID]
	require.True(t, ok, "participant %d missing", match.P1ID)
	return p.UserID
}

// opponentUserFor returns the user id of the match slot the reporter
// does not occupy.
func (env *testEnv) opponentUserFor(t *testing.T, match *models.Match, reporterUserID int) int {
	t.Helper()
	require.NotNil(t, match.P2ID, "bye has no opponent")
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	for _, pid := range []int{match.P1ID, *match.P2ID} {
		p, ok := env.store.participants[pid]
		require.True(t, ok, "participant %d missing", pid)
		if p.UserID != reporterUserID {
			return p.UserID
		}
	}
	t.Fatalf("no opponent for user %d in match %d", reporterUserID, match.ID)
	return 0
}

func (env *testEnv) match(t *testing.T, id int) *models.Match {
	t.Helper()
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	match, ok := env.store.matches[id]
	require.True(t, ok)
	clone := *match
	return &clone
}

func (env *testEnv) tournament(t *testing.T, id int) *models.Tournament {
	t.Helper()
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	tournament, ok := env.store.tournaments[id]
	require.True(t, ok)
	clone := *tournament
	return &clone
}
