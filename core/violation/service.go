package violation

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasalearn/darasa/core"
)

var ErrViolationNotFound = errors.New("violation not found")

type (
	Repository interface {
		InsertViolation(ctx context.Context, v Violation, exec ...core.DBExecutor) (Violation, error)
		QueryViolations(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Violation, error)
		GetViolation(ctx context.Context, id string, exec ...core.DBExecutor) (Violation, error)
		// DeleteViolationsBefore purges records older than the cutoff and
		// returns how many were removed.
		DeleteViolationsBefore(ctx context.Context, cutoff time.Time, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record persists one violation and reports it so on-call sees it without
// polling the dashboard.
func (svc *Service) Record(ctx context.Context, nv NewViolation) (Violation, error) {
	v := Violation{
		UserID:    nv.UserID,
		Kind:      nv.Kind,
		Detail:    nv.Detail,
		SourceIP:  nv.SourceIP,
		CreatedAt: time.Now().UTC(),
	}
	v, err := svc.repo.InsertViolation(ctx, v)
	if err != nil {
		return Violation{}, err
	}
	svc.logger.Warn("policy violation recorded: "+v.Kind, v)
	return v, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Violation, error) {
	return svc.repo.QueryViolations(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Violation, error) {
	return svc.repo.GetViolation(ctx, id)
}

// Purge removes violations older than the retention window.
func (svc *Service) Purge(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)
	return svc.repo.DeleteViolationsBefore(ctx, cutoff)
}
