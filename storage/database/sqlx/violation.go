package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasalearn/darasa/core"
	"github.com/darasalearn/darasa/core/violation"
)

type violationRepository struct {
	db *sqlx.DB
}

var _ violation.Repository = (*violationRepository)(nil) // interface compliance check

func NewViolationRepository(db *sqlx.DB) *violationRepository {
	return &violationRepository{db: db}
}

type violationRow struct {
	ID        string      `db:"id"`
	UserID    null.String `db:"user_id"`
	Kind      string      `db:"kind"`
	Detail    string      `db:"detail"`
	SourceIP  string      `db:"source_ip"`
	CreatedAt time.Time   `db:"created_at"`
}

func (repo violationRepository) unrow(row violationRow) violation.Violation {
	return violation.Violation{
		ID:        row.ID,
		UserID:    row.UserID.String,
		Kind:      row.Kind,
		Detail:    row.Detail,
		SourceIP:  row.SourceIP,
		CreatedAt: row.CreatedAt,
	}
}

func (repo violationRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return violation.ErrViolationNotFound
	}
	return errors.Wrap(err, msg)
}

const violationColumns = `id, user_id, kind, detail, source_ip, created_at`

func (repo violationRepository) InsertViolation(ctx context.Context, v violation.Violation, exec ...core.DBExecutor) (violation.Violation, error) {
	e := ext(repo.db, exec)
	v.ID = uuid.New().String()

	q := e.Rebind(`INSERT INTO violation (` + violationColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := e.ExecContext(ctx, q,
		v.ID, null.NewString(v.UserID, v.UserID != ""), v.Kind, v.Detail, v.SourceIP, v.CreatedAt.UTC(),
	); err != nil {
		return violation.Violation{}, errors.Wrap(err, "inserting violation")
	}
	return v, nil
}

func (repo violationRepository) QueryViolations(ctx context.Context, filter *violation.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]violation.Violation, error) {
	e := ext(repo.db, exec)

	q := `SELECT ` + violationColumns + ` FROM violation`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Kind != "" {
			conds = append(conds, "kind = ?")
			args = append(args, filter.Kind)
		}
		if filter.UserID != "" {
			conds = append(conds, "user_id = ?")
			args = append(args, filter.UserID)
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= ?")
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= ?")
			args = append(args, filter.CreatedTo.UTC())
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering)

	var rows []violationRow
	if err := sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying violations")
	}
	violations := make([]violation.Violation, 0, len(rows))
	for _, row := range rows {
		violations = append(violations, repo.unrow(row))
	}
	return violations, nil
}

func (repo violationRepository) GetViolation(ctx context.Context, id string, exec ...core.DBExecutor) (violation.Violation, error) {
	e := ext(repo.db, exec)

	var row violationRow
	q := e.Rebind(`SELECT ` + violationColumns + ` FROM violation WHERE id = ?`)
	if err := sqlx.GetContext(ctx, e, &row, q, id); err != nil {
		return violation.Violation{}, repo.trapNoRowsErr(err, "finding violation")
	}
	return repo.unrow(row), nil
}

func (repo violationRepository) DeleteViolationsBefore(ctx context.Context, cutoff time.Time, exec ...core.DBExecutor) (int, error) {
	e := ext(repo.db, exec)

	res, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM violation WHERE created_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "purging violations")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
