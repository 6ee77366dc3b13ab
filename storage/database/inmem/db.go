// Package inmemdb holds in-memory repositories used in tests and local tooling.
package inmemdb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pkg/errors"

	"github.com/darasalearn/darasa/core"
	"github.com/darasalearn/darasa/core/card"
	"github.com/darasalearn/darasa/core/course"
	"github.com/darasalearn/darasa/core/user"
	"github.com/darasalearn/darasa/core/violation"
)

type (
	DB struct {
		mutex sync.RWMutex

		users      map[string]*user.User
		courses    map[string]*course.Course
		modules    map[string]*course.Module
		lessons    map[string]*course.Lesson
		subjects   map[string]*course.Subject
		cards      map[string]*card.Flashcard
		violations map[string]*violation.Violation
	}
)

var (
	_ core.DB           = (*DB)(nil)
	_ core.DBTransactor = (*noopTx)(nil)

	errNoSQL = errors.New("in-memory database does not speak SQL")
)

func Open() (*DB, error) {
	return &DB{
		users:      make(map[string]*user.User),
		courses:    make(map[string]*course.Course),
		modules:    make(map[string]*course.Module),
		lessons:    make(map[string]*course.Lesson),
		subjects:   make(map[string]*course.Subject),
		cards:      make(map[string]*card.Flashcard),
		violations: make(map[string]*violation.Violation),
	}, nil
}

func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}

func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row { return nil }

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (db *DB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (core.DBTransactor, error) {
	return &noopTx{db: db}, nil
}

// Reset empties every table; tests call it between cases.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.users = make(map[string]*user.User)
	db.courses = make(map[string]*course.Course)
	db.modules = make(map[string]*course.Module)
	db.lessons = make(map[string]*course.Lesson)
	db.subjects = make(map[string]*course.Subject)
	db.cards = make(map[string]*card.Flashcard)
	db.violations = make(map[string]*violation.Violation)
}

// noopTx satisfies core.DBTransactor; the in-memory tables mutate immediately
// so commit and rollback are no-ops.
type noopTx struct {
	db *DB
}

func (tx *noopTx) Exec(query string, args ...interface{}) (sql.Result, error) { return nil, errNoSQL }

func (tx *noopTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}

func (tx *noopTx) Query(query string, args ...interface{}) (*sql.Rows, error) { return nil, errNoSQL }

func (tx *noopTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (tx *noopTx) QueryRow(query string, args ...interface{}) *sql.Row { return nil }

func (tx *noopTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (tx *noopTx) Commit() error   { return nil }
func (tx *noopTx) Rollback() error { return nil }
