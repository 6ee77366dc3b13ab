package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasalearn/darasa/core"
	"github.com/darasalearn/darasa/core/card"
)

type cardRepository struct {
	db *sqlx.DB
}

var _ card.Repository = (*cardRepository)(nil) // interface compliance check

func NewCardRepository(db *sqlx.DB) *cardRepository {
	return &cardRepository{db: db}
}

type cardRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	Front     string    `db:"front"`
	Back      string    `db:"back"`
	Position  int       `db:"position"`
	CreatedAt null.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"`
}

func (repo cardRepository) unrow(row cardRow) card.Flashcard {
	return card.Flashcard{
		ID:        row.ID,
		CourseID:  row.CourseID,
		Front:     row.Front,
		Back:      row.Back,
		Position:  row.Position,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func (repo cardRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return card.ErrCardNotFound
	}
	return errors.Wrap(err, msg)
}

const cardColumns = `id, course_id, front, back, position, created_at, updated_at`

func (repo cardRepository) QueryCardsByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]card.Flashcard, error) {
	e := ext(repo.db, exec)

	var rows []cardRow
	q := e.Rebind(`SELECT ` + cardColumns + ` FROM flashcard WHERE course_id = ? ORDER BY position ASC`)
	if err := sqlx.SelectContext(ctx, e, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying flashcards")
	}
	cards := make([]card.Flashcard, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, repo.unrow(row))
	}
	return cards, nil
}

func (repo cardRepository) GetCard(ctx context.Context, id string, exec ...core.DBExecutor) (card.Flashcard, error) {
	e := ext(repo.db, exec)

	var row cardRow
	q := e.Rebind(`SELECT ` + cardColumns + ` FROM flashcard WHERE id = ?`)
	if err := sqlx.GetContext(ctx, e, &row, q, id); err != nil {
		return card.Flashcard{}, repo.trapNoRowsErr(err, "finding flashcard")
	}
	return repo.unrow(row), nil
}

func (repo cardRepository) InsertCard(ctx context.Context, fc card.Flashcard, exec ...core.DBExecutor) (card.Flashcard, error) {
	e := ext(repo.db, exec)
	fc.ID = uuid.New().String()

	q := e.Rebind(`INSERT INTO flashcard (` + cardColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := e.ExecContext(ctx, q,
		fc.ID, fc.CourseID, fc.Front, fc.Back, fc.Position,
		null.TimeFrom(fc.CreatedAt.UTC()), null.TimeFrom(fc.UpdatedAt.UTC()),
	); err != nil {
		return card.Flashcard{}, errors.Wrap(err, "inserting flashcard")
	}
	return fc, nil
}

func (repo cardRepository) UpdateCard(ctx context.Context, id string, uc card.UpdateCard, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)

	q := e.Rebind(`UPDATE flashcard SET front = ?, back = ?, updated_at = NOW() WHERE id = ?`)
	res, err := e.ExecContext(ctx, q, uc.Front, uc.Back, id)
	if err != nil {
		return errors.Wrap(err, "updating flashcard")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return card.ErrCardNotFound
	}
	return nil
}

func (repo cardRepository) UpdateCardPosition(ctx context.Context, id string, position int, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)

	res, err := e.ExecContext(ctx, e.Rebind(`UPDATE flashcard SET position = ? WHERE id = ?`), position, id)
	if err != nil {
		return errors.Wrap(err, "updating flashcard position")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return card.ErrCardNotFound
	}
	return nil
}

func (repo cardRepository) DeleteCard(ctx context.Context, id string, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)
	if _, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM flashcard WHERE id = ?`), id); err != nil {
		return errors.Wrap(err, "deleting flashcard")
	}
	return nil
}
