package card

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasalearn/darasa/core"
)

var (
	ErrCardNotFound = errors.New("flashcard not found")

	_ CardService = (*Service)(nil)
)

type (
	Repository interface {
		// QueryCardsByCourse returns the course's cards ordered by position.
		QueryCardsByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Flashcard, error)
		GetCard(ctx context.Context, id string, exec ...core.DBExecutor) (Flashcard, error)
		InsertCard(ctx context.Context, fc Flashcard, exec ...core.DBExecutor) (Flashcard, error)
		UpdateCard(ctx context.Context, id string, uc UpdateCard, exec ...core.DBExecutor) error
		UpdateCardPosition(ctx context.Context, id string, position int, exec ...core.DBExecutor) error
		DeleteCard(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	CardService interface {
		Query(ctx context.Context, courseID string) ([]Flashcard, error)
		Create(ctx context.Context, nc NewCard) (Flashcard, error)
		Update(ctx context.Context, id string, uc UpdateCard) (Flashcard, error)
		Delete(ctx context.Context, id string) error
		Reorder(ctx context.Context, courseID string, src, dst int) ([]Flashcard, error)
	}

	Service struct {
		db   core.DB
		repo Repository
	}
)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (svc *Service) Query(ctx context.Context, courseID string) ([]Flashcard, error) {
	return svc.repo.QueryCardsByCourse(ctx, courseID)
}

// Create appends the card at the end of the course's deck.
func (svc *Service) Create(ctx context.Context, nc NewCard) (Flashcard, error) {
	cards, err := svc.repo.QueryCardsByCourse(ctx, nc.CourseID)
	if err != nil {
		return Flashcard{}, err
	}

	now := time.Now().UTC()
	fc := Flashcard{
		CourseID:  nc.CourseID,
		Front:     nc.Front,
		Back:      nc.Back,
		Position:  len(cards) + 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.InsertCard(ctx, fc)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCard) (Flashcard, error) {
	if err := svc.repo.UpdateCard(ctx, id, uc); err != nil {
		return Flashcard{}, err
	}
	return svc.repo.GetCard(ctx, id)
}

// Delete removes the card and renumbers the remaining deck so positions stay
// dense. The updates run in one transaction.
func (svc *Service) Delete(ctx context.Context, id string) error {
	fc, err := svc.repo.GetCard(ctx, id)
	if err != nil {
		return err
	}

	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	if err = svc.repo.DeleteCard(ctx, id, tx); err != nil {
		return err
	}
	cards, err := svc.repo.QueryCardsByCourse(ctx, fc.CourseID, tx)
	if err != nil {
		return err
	}
	for i, c := range cards {
		if c.Position == i+1 {
			continue
		}
		if err = svc.repo.UpdateCardPosition(ctx, c.ID, i+1, tx); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Reorder moves the card at src to dst (0-based deck indexes) and renumbers
// the whole deck, moved card first.
func (svc *Service) Reorder(ctx context.Context, courseID string, src, dst int) ([]Flashcard, error) {
	cards, err := svc.repo.QueryCardsByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if src < 0 || src >= len(cards) || src == dst {
		return cards, nil
	}

	moved := cards[src]
	cards = append(cards[:src], cards[src+1:]...)
	if dst < 0 {
		dst = 0
	} else if dst > len(cards) {
		dst = len(cards)
	}
	cards = append(cards, Flashcard{})
	copy(cards[dst+1:], cards[dst:])
	cards[dst] = moved
	for i := range cards {
		cards[i].Position = i + 1
	}

	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	if err = svc.repo.UpdateCardPosition(ctx, moved.ID, cards[dst].Position, tx); err != nil {
		return nil, err
	}
	for _, c := range cards {
		if c.ID == moved.ID {
			continue
		}
		if err = svc.repo.UpdateCardPosition(ctx, c.ID, c.Position, tx); err != nil {
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return cards, nil
}
