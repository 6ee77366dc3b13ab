package user

import (
	"context"
	"time"

	"github.com/darasalearn/darasa/core"
)

// DecisionStatus is the tri-state outcome of an admin access resolution.
type DecisionStatus string

const (
	DecisionUnknown  DecisionStatus = "unknown" // still resolving / timed out
	DecisionAdmin    DecisionStatus = "admin"
	DecisionNotAdmin DecisionStatus = "not_admin"
)

type (
	// Decision is the result of resolving a principal's admin access.
	// A fresh Decision is produced on every Resolve call.
	Decision struct {
		Status     DecisionStatus `json:"status"`
		TimedOut   bool           `json:"timed_out"`
		Diagnostic *Diagnostic    `json:"diagnostic,omitempty"`
	}

	// Diagnostic carries principal info surfaced on timeout to aid manual troubleshooting.
	Diagnostic struct {
		UserID   string   `json:"user_id"`
		Email    string   `json:"email"`
		Metadata Metadata `json:"metadata,omitempty"`
	}

	// ProfileStore fetches the authoritative profile record's admin flag.
	ProfileStore interface {
		GetAdminFlag(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
	}

	// AdminCheckFunc is the last-resort "is this user an admin" remote procedure.
	AdminCheckFunc func(ctx context.Context, id string) (bool, error)

	// AdminResolver decides whether a principal may use the admin back-office.
	// It runs an ordered cascade of increasingly expensive checks, short-circuiting
	// on the first success:
	//   1. primary metadata flag
	//   2. legacy metadata flag
	//   3. directly-attached admin boolean
	//   4. profile record admin flag (errors fall through)
	//   5. remote admin-check procedure (its result, or error -> NotAdmin, is final)
	// Checks 1-3 are free and run synchronously; 4-5 hit the store and race a hard
	// timeout. The timeout is a UX safety valve against an indefinite spinner, not
	// a security boundary: the cascade fails closed either way.
	AdminResolver struct {
		profiles ProfileStore
		check    AdminCheckFunc
		timeout  time.Duration
		logger   core.Logger
	}
)

func NewAdminResolver(profiles ProfileStore, check AdminCheckFunc, conf *core.Config, logger core.Logger) *AdminResolver {
	timeout := conf.AdminResolveTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &AdminResolver{
		profiles: profiles,
		check:    check,
		timeout:  timeout,
		logger:   logger,
	}
}

// Resolve runs the cascade for usr. A nil usr (no signed-in principal) is NotAdmin.
func (r *AdminResolver) Resolve(ctx context.Context, usr *User) Decision {
	if usr == nil {
		return Decision{Status: DecisionNotAdmin}
	}

	// free checks first; the common case resolves without any network call
	if usr.Metadata.Truthy(MetadataAdminKey) {
		return Decision{Status: DecisionAdmin}
	}
	if usr.Metadata.Truthy(MetadataLegacyAdminKey) {
		return Decision{Status: DecisionAdmin}
	}
	if usr.IsAdmin() {
		return Decision{Status: DecisionAdmin}
	}

	// metadata can lag the authoritative store after an out-of-band promotion;
	// fall back to the profile record, then the remote procedure
	done := make(chan Decision, 1)
	go func() {
		done <- r.resolveRemote(ctx, usr)
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case d := <-done:
		return d
	case <-timer.C:
	case <-ctx.Done():
	}
	return Decision{
		Status:   DecisionUnknown,
		TimedOut: true,
		Diagnostic: &Diagnostic{
			UserID:   usr.ID,
			Email:    usr.Email,
			Metadata: usr.Metadata,
		},
	}
}

func (r *AdminResolver) resolveRemote(ctx context.Context, usr *User) Decision {
	if flag, err := r.profiles.GetAdminFlag(ctx, usr.ID); err != nil {
		// fall through to the remote procedure rather than failing immediately
		r.logger.Warn("admin resolution: profile lookup failed", err, *usr)
	} else if flag {
		return Decision{Status: DecisionAdmin}
	}

	ok, err := r.check(ctx, usr.ID)
	if err != nil {
		// fail closed; no automatic retry
		r.logger.Warn("admin resolution: remote check failed", err, *usr)
		return Decision{Status: DecisionNotAdmin}
	}
	if ok {
		return Decision{Status: DecisionAdmin}
	}
	return Decision{Status: DecisionNotAdmin}
}
