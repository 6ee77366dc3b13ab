package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/darasalearn/darasa/core"
	"github.com/darasalearn/darasa/core/violation"
)

type violationRepository struct {
	db *DB
}

var _ violation.Repository = (*violationRepository)(nil) // interface compliance check

func NewViolationRepository(db *DB) *violationRepository {
	return &violationRepository{db: db}
}

func (repo *violationRepository) InsertViolation(ctx context.Context, v violation.Violation, exec ...core.DBExecutor) (violation.Violation, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	v.ID = uuid.New().String()
	stored := v
	repo.db.violations[v.ID] = &stored
	return v, nil
}

func (repo *violationRepository) QueryViolations(ctx context.Context, filter *violation.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]violation.Violation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	violations := make([]violation.Violation, 0, len(repo.db.violations))
	for _, v := range repo.db.violations {
		if filter != nil {
			if filter.Kind != "" && v.Kind != filter.Kind {
				continue
			}
			if filter.UserID != "" && v.UserID != filter.UserID {
				continue
			}
			if !filter.CreatedFrom.IsZero() && v.CreatedAt.Before(filter.CreatedFrom) {
				continue
			}
			if !filter.CreatedTo.IsZero() && v.CreatedAt.After(filter.CreatedTo) {
				continue
			}
		}
		violations = append(violations, *v)
	}
	sort.Slice(violations, func(i, j int) bool { return violations[i].CreatedAt.After(violations[j].CreatedAt) })
	return violations, nil
}

func (repo *violationRepository) GetViolation(ctx context.Context, id string, exec ...core.DBExecutor) (violation.Violation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.violations[id]; ok {
		return *v, nil
	}
	return violation.Violation{}, violation.ErrViolationNotFound
}

func (repo *violationRepository) DeleteViolationsBefore(ctx context.Context, cutoff time.Time, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for id, v := range repo.db.violations {
		if v.CreatedAt.Before(cutoff) {
			delete(repo.db.violations, id)
			cnt++
		}
	}
	return cnt, nil
}
