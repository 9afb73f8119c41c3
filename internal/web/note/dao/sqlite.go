package dao

import (
	"context"
	"database/sql"
	"regexp"
	"strconv"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/knote/internal/web/note/model"
)

var (
	_ Store = (*Sqlite)(nil)

	regexpTableName = regexp.MustCompile(`^[a-zA-Z0-9_]{1,64}$`)
)

// Sqlite stores notes in a sql table, written for sqlite3
type Sqlite struct {
	opt *sqliteOption
	db  *sql.DB
}

type sqliteOption struct {
	tableName string
}

// SqliteOption configures the sqlite store
type SqliteOption func(*sqliteOption) error

// WithTableName set the table name, default to `notes`
func WithTableName(tableName string) SqliteOption {
	return func(o *sqliteOption) error {
		if !regexpTableName.MatchString(tableName) {
			return errors.Errorf("invalid table name: %s", tableName)
		}

		o.tableName = tableName
		return nil
	}
}

// NewSqlite create the sqlite store and its table if missing
func NewSqlite(ctx context.Context, db *sql.DB, opts ...SqliteOption) (*Sqlite, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	opt := &sqliteOption{tableName: colNotes}
	for _, f := range opts {
		if err := f(opt); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	s := &Sqlite{opt: opt, db: db}
	if err := s.setup(ctx); err != nil {
		return nil, errors.Wrap(err, "setup sqlite store")
	}

	return s, nil
}

func (s *Sqlite) setup(ctx context.Context) error {
	stmt := `
CREATE TABLE IF NOT EXISTS ` + s.opt.tableName + ` (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  description TEXT NOT NULL,
  rendered BOOLEAN NOT NULL DEFAULT 0,
  created_at TIMESTAMP NOT NULL
)`

	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "create notes table")
	}

	return nil
}

// Insert saves note, the id is the row id
func (s *Sqlite) Insert(ctx context.Context, note *model.Note) error {
	stmt := `INSERT INTO ` + s.opt.tableName + ` (description, rendered, created_at) VALUES ($1, $2, $3)`
	res, err := s.db.ExecContext(ctx, stmt, note.Description, note.Rendered, note.CreatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "insert note")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "get inserted id")
	}

	note.ID = strconv.FormatInt(id, 10)
	return nil
}

// FindAll loads all notes ordered by row id
func (s *Sqlite) FindAll(ctx context.Context) ([]*model.Note, error) {
	stmt := `SELECT id, description, rendered, created_at FROM ` + s.opt.tableName + ` ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, errors.Wrap(err, "query notes")
	}
	defer rows.Close() // nolint: errcheck

	notes := []*model.Note{}
	for rows.Next() {
		var (
			id   int64
			note = new(model.Note)
		)
		if err = rows.Scan(&id, &note.Description, &note.Rendered, &note.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan note")
		}

		note.ID = strconv.FormatInt(id, 10)
		notes = append(notes, note)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate notes")
	}

	return notes, nil
}
