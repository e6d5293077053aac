package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jiglearn/playcode/internal/audit"
	"github.com/jiglearn/playcode/internal/jig"
	"github.com/jiglearn/playcode/internal/scoring"
)

// Completions from mobile clients arrive with imperfect clocks; allow this
// much of finished-before-started before calling it skew.
const skewTolerance = 2 * time.Second

type SQLStore struct {
	db       *sql.DB
	engine   *scoring.Engine
	registry jig.Registry
	events   *audit.Log
	maxBytes int64
}

func NewSQLStore(db *sql.DB, engine *scoring.Engine, registry jig.Registry, events *audit.Log, maxBytes int64) *SQLStore {
	return &SQLStore{db: db, engine: engine, registry: registry, events: events, maxBytes: maxBytes}
}

func (s *SQLStore) PersistCompletion(ctx context.Context, c Completion) (Session, error) {
	if c.FinishedAt.Add(skewTolerance).Before(c.StartedAt) {
		return Session{}, ErrClockSkew
	}
	summaryJSON, err := json.Marshal(c.Summary)
	if err != nil {
		return Session{}, err
	}
	if int64(len(summaryJSON)) > s.maxBytes {
		return Session{}, ErrPayloadTooLarge
	}
	if err := s.checkModules(ctx, c); err != nil {
		return Session{}, err
	}

	sess := Session{
		ID:          uuid.New(),
		CodeID:      c.CodeID,
		CodeIndex:   c.CodeIndex,
		Jig:         c.Jig,
		PlayersName: c.PlayersName,
		StartedAt:   c.StartedAt,
		FinishedAt:  c.FinishedAt,
		Summary:     c.Summary,
		Score:       s.engine.Score(c.Summary),
		Nonce:       c.Nonce,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id,code_id,code_idx,jig_id,players_name,started_at,finished_at,summary_json,score_available,score_earned,nonce)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (code_idx, nonce) DO NOTHING`,
		sess.ID.String(), sess.CodeID.String(), sess.CodeIndex, sess.Jig.String(), nullIfEmpty(sess.PlayersName),
		sess.StartedAt.Unix(), sess.FinishedAt.Unix(), string(summaryJSON),
		sess.Score.Available, sess.Score.Earned, sess.Nonce.String())
	if err != nil {
		return Session{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Session{}, err
	}
	if n == 0 {
		// Duplicate completion: the nonce was already consumed. Release the
		// transaction before reading so sqlite's table lock cannot stall the
		// lookup, then return the original row verbatim without re-scoring.
		_ = tx.Rollback()
		return s.getByNonce(ctx, c.CodeIndex, c.Nonce)
	}

	if err := s.events.AppendTx(ctx, tx, audit.Event{
		Type: audit.SessionCompleted,
		Key:  sess.ID.String(),
		Data: completedEvent{CodeIndex: sess.CodeIndex, Jig: sess.Jig, Score: sess.Score},
	}); err != nil {
		return Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return Session{}, err
	}
	return sess, nil
}

type completedEvent struct {
	CodeIndex int32          `json:"code_index"`
	Jig       uuid.UUID      `json:"jig"`
	Score     scoring.Points `json:"score"`
}

// checkModules rejects scored modules that name ids outside the jig's
// published module set. Best-effort: when the registry cannot supply a set
// the check is skipped, and visited-only ids are never checked.
func (s *SQLStore) checkModules(ctx context.Context, c Completion) error {
	ids, ok, err := s.registry.ModuleIDs(ctx, c.Jig)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	known := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	for _, m := range c.Summary.Modules {
		if !known[m.StableID()] {
			return ErrJigMismatch
		}
	}
	return nil
}

func (s *SQLStore) ListByCode(ctx context.Context, codeID uuid.UUID) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,code_id,code_idx,jig_id,players_name,started_at,finished_at,summary_json,score_available,score_earned,nonce
		 FROM sessions WHERE code_id=$1 ORDER BY started_at ASC, id ASC`, codeID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLStore) getByNonce(ctx context.Context, codeIndex int32, nonce uuid.UUID) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,code_id,code_idx,jig_id,players_name,started_at,finished_at,summary_json,score_available,score_earned,nonce
		 FROM sessions WHERE code_idx=$1 AND nonce=$2`, codeIndex, nonce.String())
	return scanSession(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (Session, error) {
	var (
		sess                Session
		id, codeID          string
		jigID, nonce        string
		playersName         sql.NullString
		startedAt, finished int64
		summaryJSON         string
	)
	if err := r.Scan(&id, &codeID, &sess.CodeIndex, &jigID, &playersName, &startedAt, &finished,
		&summaryJSON, &sess.Score.Available, &sess.Score.Earned, &nonce); err != nil {
		return Session{}, err
	}
	var err error
	if sess.ID, err = uuid.Parse(id); err != nil {
		return Session{}, err
	}
	if sess.CodeID, err = uuid.Parse(codeID); err != nil {
		return Session{}, err
	}
	if sess.Jig, err = uuid.Parse(jigID); err != nil {
		return Session{}, err
	}
	if sess.Nonce, err = uuid.Parse(nonce); err != nil {
		return Session{}, err
	}
	if err := json.Unmarshal([]byte(summaryJSON), &sess.Summary); err != nil {
		return Session{}, err
	}
	sess.PlayersName = playersName.String
	sess.StartedAt = time.Unix(startedAt, 0).UTC()
	sess.FinishedAt = time.Unix(finished, 0).UTC()
	return sess, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*SQLStore)(nil)
