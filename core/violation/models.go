package violation

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasalearn/darasa/core"
)

// known violation kinds
const (
	KindUnauthorizedAdmin = "unauthorized_admin_access"
	KindContentAbuse      = "content_abuse"
	KindRateAbuse         = "rate_abuse"
)

var AllKinds = []string{KindUnauthorizedAdmin, KindContentAbuse, KindRateAbuse}

type (
	// Violation is one recorded policy violation. UserID is empty when the
	// actor could not be identified.
	Violation struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id,omitempty"`
		Kind      string    `json:"kind"`
		Detail    string    `json:"detail"`
		SourceIP  string    `json:"source_ip,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}

	NewViolation struct {
		UserID   string `json:"user_id"`
		Kind     string `json:"kind" validate:"required,violationkind"`
		Detail   string `json:"detail" validate:"required,max=2000"`
		SourceIP string `json:"source_ip"`
	}

	QueryFilter struct {
		Kind        string    `query:"kind"`
		UserID      string    `query:"user_id"`
		CreatedFrom time.Time `query:"created_from"`
		CreatedTo   time.Time `query:"created_to"`
	}
)

func (nv *NewViolation) Validate(validate *validator.Validate) error {
	nv.Detail = core.CleanString(nv.Detail)
	return validate.Struct(nv)
}
