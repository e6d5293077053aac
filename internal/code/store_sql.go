package code

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jiglearn/playcode/internal/jig"
)

// Allocation parameters: randomAttempts bounds the random-draw phase, and
// probeWindow sizes the batches of the linear-probe fallback.
const (
	randomAttempts = 16
	probeWindow    = 512
)

type SQLStore struct {
	db       *sql.DB
	registry jig.Registry
	maxIndex int32
	validity time.Duration
	now      func() time.Time
}

func NewSQLStore(db *sql.DB, registry jig.Registry, maxIndex int32, validity time.Duration) *SQLStore {
	return &SQLStore{db: db, registry: registry, maxIndex: maxIndex, validity: validity, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (s *SQLStore) WithClock(now func() time.Time) *SQLStore {
	s.now = now
	return s
}

func (s *SQLStore) Create(ctx context.Context, jigID uuid.UUID, settings PlayerSettings, displayName string, createdBy uuid.UUID) (Code, error) {
	known, err := s.registry.Exists(ctx, jigID)
	if err != nil {
		return Code{}, err
	}
	if !known {
		return Code{}, ErrJigNotFound
	}
	owns, err := s.registry.IsAuthor(ctx, jigID, createdBy)
	if err != nil {
		return Code{}, err
	}
	if !owns {
		return Code{}, ErrNotAuthor
	}

	now := s.now()
	c := Code{
		ID:          uuid.New(),
		Jig:         jigID,
		DisplayName: displayName,
		Settings:    settings,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.validity),
		Status:      StatusActive,
	}

	// Phase one: uniform random draws. The partial unique index on active
	// rows decides races; a loser just draws again.
	for attempt := 0; attempt < randomAttempts; attempt++ {
		c.Index = rand.Int31n(s.maxIndex)
		err := s.insert(ctx, c)
		if err == nil {
			return c, nil
		}
		if !isUniqueViolation(err) {
			return Code{}, err
		}
	}

	// Phase two: linear probe from a random offset so worst-case latency
	// stays bounded when the namespace runs hot. A concurrent winner on the
	// probed slot just means probing again.
	for attempt := 0; attempt < randomAttempts; attempt++ {
		idx, err := s.probeFree(ctx, rand.Int31n(s.maxIndex))
		if err != nil {
			return Code{}, err
		}
		c.Index = idx
		err = s.insert(ctx, c)
		if err == nil {
			return c, nil
		}
		if !isUniqueViolation(err) {
			return Code{}, err
		}
	}
	return Code{}, ErrSpaceExhausted
}

func (s *SQLStore) insert(ctx context.Context, c Code) error {
	sj, err := json.Marshal(c.Settings)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO codes (id,idx,jig_id,display_name,settings_json,created_by,created_at,expires_at,status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID.String(), c.Index, c.Jig.String(), c.DisplayName, string(sj),
		c.CreatedBy.String(), c.CreatedAt.Unix(), c.ExpiresAt.Unix(), string(c.Status))
	return err
}

// probeFree sweeps the namespace in windows starting at offset and returns
// the first index with no active holder. A full sweep with no gap means the
// namespace is exhausted.
func (s *SQLStore) probeFree(ctx context.Context, offset int32) (int32, error) {
	for swept := int32(0); swept < s.maxIndex; {
		start := (offset + swept) % s.maxIndex
		end := start + probeWindow
		// Truncate at the namespace edge; the wrapped remainder is covered by
		// the following iterations.
		if end > s.maxIndex {
			end = s.maxIndex
		}
		if remaining := s.maxIndex - swept; end-start > remaining {
			end = start + remaining
		}
		swept += end - start
		taken := map[int32]bool{}
		rows, err := s.db.QueryContext(ctx,
			`SELECT idx FROM codes WHERE status='active' AND idx >= $1 AND idx < $2`, start, end)
		if err != nil {
			return 0, err
		}
		for rows.Next() {
			var idx int32
			if err := rows.Scan(&idx); err != nil {
				rows.Close()
				return 0, err
			}
			taken[idx] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return 0, err
		}
		rows.Close()
		for idx := start; idx < end; idx++ {
			if !taken[idx] {
				return idx, nil
			}
		}
	}
	return 0, ErrSpaceExhausted
}

func (s *SQLStore) LookupActive(ctx context.Context, index int32) (Code, error) {
	c, err := s.getByIndex(ctx, index, StatusActive)
	if err != nil {
		return Code{}, err
	}
	// Expiry is authoritative on the clock, not on the stored status: the
	// reaper may not have swept yet.
	if !s.now().Before(c.ExpiresAt) {
		return Code{}, ErrCodeExpired
	}
	return c, nil
}

func (s *SQLStore) Latest(ctx context.Context, index int32) (Code, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,idx,jig_id,display_name,settings_json,created_by,created_at,expires_at,status
		 FROM codes WHERE idx=$1 ORDER BY created_at DESC LIMIT 1`, index)
	c, err := scanCode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Code{}, ErrCodeNotFound
	}
	return c, err
}

func (s *SQLStore) Update(ctx context.Context, index int32, opts UpdateOpts, caller uuid.UUID) (Code, error) {
	c, err := s.getByIndex(ctx, index, StatusActive)
	if err != nil {
		return Code{}, err
	}
	if !s.now().Before(c.ExpiresAt) {
		return Code{}, ErrCodeExpired
	}
	if c.CreatedBy != caller {
		return Code{}, ErrNotAuthor
	}
	if opts.DisplayName != nil {
		c.DisplayName = *opts.DisplayName
	}
	if opts.Settings != nil {
		c.Settings = *opts.Settings
	}
	sj, err := json.Marshal(c.Settings)
	if err != nil {
		return Code{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE codes SET display_name=$1, settings_json=$2 WHERE id=$3`,
		c.DisplayName, string(sj), c.ID.String())
	if err != nil {
		return Code{}, err
	}
	return c, nil
}

func (s *SQLStore) ForAuthor(ctx context.Context, caller uuid.UUID, jigFilter *uuid.UUID) ([]Code, error) {
	q := `SELECT id,idx,jig_id,display_name,settings_json,created_by,created_at,expires_at,status
	      FROM codes WHERE created_by=$1`
	args := []any{caller.String()}
	if jigFilter != nil {
		q += ` AND jig_id=$2`
		args = append(args, jigFilter.String())
	}
	q += ` ORDER BY created_at DESC, idx DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Code
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) JigsWithCodes(ctx context.Context, caller uuid.UUID) ([]JigCodes, error) {
	codes, err := s.ForAuthor(ctx, caller, nil)
	if err != nil {
		return nil, err
	}
	byJig := map[uuid.UUID]int{}
	var out []JigCodes
	for _, c := range codes {
		i, ok := byJig[c.Jig]
		if !ok {
			i = len(out)
			byJig[c.Jig] = i
			out = append(out, JigCodes{Jig: c.Jig})
		}
		out[i].Codes = append(out[i].Codes, c)
	}
	return out, nil
}

func (s *SQLStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE codes SET status='expired' WHERE status='active' AND expires_at <= $1`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLStore) getByIndex(ctx context.Context, index int32, status Status) (Code, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,idx,jig_id,display_name,settings_json,created_by,created_at,expires_at,status
		 FROM codes WHERE idx=$1 AND status=$2`, index, string(status))
	c, err := scanCode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Code{}, ErrCodeNotFound
	}
	return c, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCode(r rowScanner) (Code, error) {
	var (
		c                  Code
		id, jigID, author  string
		displayName        sql.NullString
		settingsJSON       string
		createdAt, expires int64
		status             string
	)
	if err := r.Scan(&id, &c.Index, &jigID, &displayName, &settingsJSON, &author, &createdAt, &expires, &status); err != nil {
		return Code{}, err
	}
	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return Code{}, err
	}
	if c.Jig, err = uuid.Parse(jigID); err != nil {
		return Code{}, err
	}
	if c.CreatedBy, err = uuid.Parse(author); err != nil {
		return Code{}, err
	}
	if err := json.Unmarshal([]byte(settingsJSON), &c.Settings); err != nil {
		return Code{}, err
	}
	c.DisplayName = displayName.String
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.ExpiresAt = time.Unix(expires, 0).UTC()
	c.Status = Status(status)
	return c, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") || // postgres
		strings.Contains(msg, "sqlstate 23505")
}

var _ Store = (*SQLStore)(nil)

// ActiveCount reports how many codes currently hold an index. Exposed for
// capacity monitoring; not on the Store interface.
func (s *SQLStore) ActiveCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM codes WHERE status='active'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active codes: %w", err)
	}
	return n, nil
}
