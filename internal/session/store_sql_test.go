package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jiglearn/playcode/internal/audit"
	"github.com/jiglearn/playcode/internal/db"
	"github.com/jiglearn/playcode/internal/jig"
	"github.com/jiglearn/playcode/internal/scoring"
)

var testDBSeq int

func newTestStore(t *testing.T, reg jig.Registry, maxBytes int64) *SQLStore {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:sessions_test_%d?mode=memory&cache=shared", testDBSeq)
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	if reg == nil {
		reg = &jig.StaticRegistry{Jigs: map[uuid.UUID]jig.StaticJig{}}
	}
	return NewSQLStore(dbh, scoring.NewEngine(), reg, audit.NewLog(dbh), maxBytes)
}

var (
	moduleID   = uuid.MustParse("11111111-2222-4333-8444-555555555555")
	testCodeID = uuid.MustParse("aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee")
	started    = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func quizSummary(tries ...uint16) scoring.PlaySummary {
	rounds := make([]scoring.CardRound, len(tries))
	for i, n := range tries {
		rounds[i] = scoring.CardRound{CardIndex: uint32(i), FailedTries: n}
	}
	return scoring.PlaySummary{
		Modules: []scoring.ModuleSummary{{
			Kind:     scoring.KindCardQuiz,
			CardQuiz: &scoring.CardQuiz{StableModuleID: moduleID, Rounds: rounds},
		}},
		Visited: []uuid.UUID{},
	}
}

func completion(jigID uuid.UUID, summary scoring.PlaySummary) Completion {
	return Completion{
		CodeID:      testCodeID,
		CodeIndex:   4217,
		Jig:         jigID,
		Nonce:       uuid.New(),
		PlayersName: "sasha",
		StartedAt:   started,
		FinishedAt:  started.Add(5 * time.Minute),
		Summary:     summary,
	}
}

func TestPersistCompletionScoresAndStores(t *testing.T) {
	store := newTestStore(t, nil, 64<<10)
	ctx := context.Background()

	sess, err := store.PersistCompletion(ctx, completion(uuid.New(), quizSummary(0, 0)))
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if sess.Score != (scoring.Points{Available: 2, Earned: 2}) {
		t.Errorf("score = %+v, want 2/2", sess.Score)
	}

	list, err := store.ListByCode(ctx, testCodeID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d sessions, want 1", len(list))
	}
	got := list[0]
	if got.ID != sess.ID || got.PlayersName != "sasha" || got.Nonce != sess.Nonce {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.StartedAt != started || got.FinishedAt != started.Add(5*time.Minute) {
		t.Errorf("timestamps mangled: %v .. %v", got.StartedAt, got.FinishedAt)
	}
	// Stored score must equal the engine applied fresh to the stored summary.
	if got.Score != scoring.NewEngine().Score(got.Summary) {
		t.Errorf("stored score %+v does not match re-derived score", got.Score)
	}
}

func TestPersistCompletionIsIdempotent(t *testing.T) {
	store := newTestStore(t, nil, 64<<10)
	ctx := context.Background()

	c := completion(uuid.New(), quizSummary(0, 1, 3))
	first, err := store.PersistCompletion(ctx, c)
	if err != nil {
		t.Fatalf("first persist: %v", err)
	}
	second, err := store.PersistCompletion(ctx, c)
	if err != nil {
		t.Fatalf("retry persist: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("retry returned a different session: %s != %s", second.ID, first.ID)
	}
	if second.Score != first.Score {
		t.Errorf("retry changed the score: %+v != %+v", second.Score, first.Score)
	}
	list, _ := store.ListByCode(ctx, c.CodeID)
	if len(list) != 1 {
		t.Errorf("duplicate completion left %d rows, want 1", len(list))
	}
}

func TestDistinctNoncesBothStored(t *testing.T) {
	store := newTestStore(t, nil, 64<<10)
	ctx := context.Background()
	jigID := uuid.New()

	a := completion(jigID, quizSummary(0))
	b := completion(jigID, quizSummary(1))
	b.StartedAt = started.Add(time.Hour)
	b.FinishedAt = started.Add(time.Hour)

	if _, err := store.PersistCompletion(ctx, a); err != nil {
		t.Fatal(err)
	}
	if _, err := store.PersistCompletion(ctx, b); err != nil {
		t.Fatal(err)
	}
	list, _ := store.ListByCode(ctx, testCodeID)
	if len(list) != 2 {
		t.Fatalf("got %d sessions, want 2", len(list))
	}
	if !list[0].StartedAt.Before(list[1].StartedAt) {
		t.Error("sessions not ordered by started_at ascending")
	}
	if list[0].Nonce == list[1].Nonce {
		t.Error("two sessions under one code share a nonce")
	}
}

func TestListByCodeScopedToOneCode(t *testing.T) {
	store := newTestStore(t, nil, 64<<10)
	ctx := context.Background()

	// Two codes that held the same index at different times. Sessions under
	// the earlier code must stay invisible when listing the later one.
	old := completion(uuid.New(), quizSummary(0))
	old.PlayersName = "early player"
	if _, err := store.PersistCompletion(ctx, old); err != nil {
		t.Fatal(err)
	}

	recycledID := uuid.New()
	fresh := completion(uuid.New(), quizSummary(1))
	fresh.CodeID = recycledID
	if _, err := store.PersistCompletion(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	list, err := store.ListByCode(ctx, recycledID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d sessions, want 1", len(list))
	}
	if list[0].CodeID != recycledID || list[0].PlayersName == "early player" {
		t.Errorf("listing leaked a session from the earlier code: %+v", list[0])
	}

	prior, err := store.ListByCode(ctx, testCodeID)
	if err != nil {
		t.Fatalf("list prior: %v", err)
	}
	if len(prior) != 1 || prior[0].PlayersName != "early player" {
		t.Errorf("earlier code lost its own session: %+v", prior)
	}
}

func TestClockSkewRejected(t *testing.T) {
	store := newTestStore(t, nil, 64<<10)
	ctx := context.Background()

	// finished == started is fine.
	c := completion(uuid.New(), quizSummary(0))
	c.FinishedAt = c.StartedAt
	if _, err := store.PersistCompletion(ctx, c); err != nil {
		t.Errorf("finished == started: %v", err)
	}

	// Slightly behind is inside tolerance.
	c = completion(uuid.New(), quizSummary(0))
	c.FinishedAt = c.StartedAt.Add(-time.Second)
	if _, err := store.PersistCompletion(ctx, c); err != nil {
		t.Errorf("inside tolerance: %v", err)
	}

	c = completion(uuid.New(), quizSummary(0))
	c.FinishedAt = c.StartedAt.Add(-time.Minute)
	if _, err := store.PersistCompletion(ctx, c); !errors.Is(err, ErrClockSkew) {
		t.Errorf("finished well before started: got %v, want ErrClockSkew", err)
	}
}

func TestPayloadCeiling(t *testing.T) {
	store := newTestStore(t, nil, 256)
	tries := make([]uint16, 64)
	_, err := store.PersistCompletion(context.Background(), completion(uuid.New(), quizSummary(tries...)))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("oversized summary: got %v, want ErrPayloadTooLarge", err)
	}
}

func TestModuleMembershipCheck(t *testing.T) {
	jigID := uuid.New()
	reg := &jig.StaticRegistry{Jigs: map[uuid.UUID]jig.StaticJig{
		jigID: {Author: uuid.New(), Modules: []uuid.UUID{moduleID}},
	}}
	store := newTestStore(t, reg, 64<<10)
	ctx := context.Background()

	// Scored module inside the published set: accepted.
	if _, err := store.PersistCompletion(ctx, completion(jigID, quizSummary(0))); err != nil {
		t.Errorf("known module: %v", err)
	}

	// Scored module outside the set: rejected.
	bad := quizSummary(0)
	bad.Modules[0].CardQuiz.StableModuleID = uuid.New()
	if _, err := store.PersistCompletion(ctx, completion(jigID, bad)); !errors.Is(err, ErrJigMismatch) {
		t.Errorf("foreign module: got %v, want ErrJigMismatch", err)
	}

	// Unknown ids in visited are fine: visited but unscored.
	ok := quizSummary(0)
	ok.Visited = []uuid.UUID{uuid.New()}
	if _, err := store.PersistCompletion(ctx, completion(jigID, ok)); err != nil {
		t.Errorf("unknown visited id: %v", err)
	}

	// Registry without a module set skips the check entirely.
	noSet := newTestStore(t, nil, 64<<10)
	if _, err := noSet.PersistCompletion(ctx, completion(uuid.New(), bad)); err != nil {
		t.Errorf("no module set: %v", err)
	}
}

func TestEmptySummaryAccepted(t *testing.T) {
	store := newTestStore(t, nil, 64<<10)
	c := completion(uuid.New(), scoring.PlaySummary{Visited: []uuid.UUID{}})
	sess, err := store.PersistCompletion(context.Background(), c)
	if err != nil {
		t.Fatalf("empty summary: %v", err)
	}
	if sess.Score != (scoring.Points{}) {
		t.Errorf("empty summary score = %+v, want zero", sess.Score)
	}
}
