package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasalearn/darasa/core"
	"github.com/darasalearn/darasa/core/card"
)

type cardRepository struct {
	db *DB
}

var _ card.Repository = (*cardRepository)(nil) // interface compliance check

func NewCardRepository(db *DB) *cardRepository {
	return &cardRepository{db: db}
}

func (repo *cardRepository) QueryCardsByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]card.Flashcard, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cards := make([]card.Flashcard, 0)
	for _, fc := range repo.db.cards {
		if fc.CourseID == courseID {
			cards = append(cards, *fc)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Position < cards[j].Position })
	return cards, nil
}

func (repo *cardRepository) GetCard(ctx context.Context, id string, exec ...core.DBExecutor) (card.Flashcard, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if fc, ok := repo.db.cards[id]; ok {
		return *fc, nil
	}
	return card.Flashcard{}, card.ErrCardNotFound
}

func (repo *cardRepository) InsertCard(ctx context.Context, fc card.Flashcard, exec ...core.DBExecutor) (card.Flashcard, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	fc.ID = uuid.New().String()
	stored := fc
	repo.db.cards[fc.ID] = &stored
	return fc, nil
}

func (repo *cardRepository) UpdateCard(ctx context.Context, id string, uc card.UpdateCard, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	fc, ok := repo.db.cards[id]
	if !ok {
		return card.ErrCardNotFound
	}
	fc.Front = uc.Front
	fc.Back = uc.Back
	return nil
}

func (repo *cardRepository) UpdateCardPosition(ctx context.Context, id string, position int, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	fc, ok := repo.db.cards[id]
	if !ok {
		return card.ErrCardNotFound
	}
	fc.Position = position
	return nil
}

func (repo *cardRepository) DeleteCard(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.cards, id)
	return nil
}
