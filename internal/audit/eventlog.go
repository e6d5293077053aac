// Package audit keeps an append-only event log of notable state changes,
// written in the same transaction as the change itself.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	SessionCompleted = "SessionCompleted"
	CodesReaped      = "CodesReaped"
)

type Event struct {
	Type string
	Key  string // natural key, e.g. session id
	Data any    // JSON-encoded payload
}

type Log struct {
	db  *sql.DB
	now func() time.Time
}

func NewLog(db *sql.DB) *Log { return &Log{db: db, now: time.Now} }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Append writes an event outside any transaction.
func (l *Log) Append(ctx context.Context, e Event) error {
	return l.append(ctx, l.db, e)
}

// AppendTx writes an event inside the caller's transaction so the event and
// the change it records commit or roll back together.
func (l *Log) AppendTx(ctx context.Context, tx *sql.Tx, e Event) error {
	return l.append(ctx, tx, e)
}

func (l *Log) append(ctx context.Context, db execer, e Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		e.Type, e.Key, string(data), l.now().Unix())
	return err
}
