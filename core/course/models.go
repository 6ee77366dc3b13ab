package course

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasalearn/darasa/core"
)

// Course statuses
const (
	StatusDraft      = "draft"
	StatusComingSoon = "coming_soon"
	StatusPublished  = "published"
	StatusArchived   = "archived"
)

var AllStatuses = []string{StatusDraft, StatusComingSoon, StatusPublished, StatusArchived}

// tempIDPrefix marks client-generated identifiers of transient (unsaved) entities.
const tempIDPrefix = "tmp-"

// IsTempID reports whether id is a client-generated temporary identifier.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

type Course struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Status             string    `json:"status"`
	Description        string    `json:"description"`
	LongDescription    string    `json:"long_description"`
	Featured           bool      `json:"featured"`
	AccessDurationDays int       `json:"access_duration_days"`
	LearningObjectives []string  `json:"learning_objectives"`
	SubjectIDs         []string  `json:"subject_ids"`
	CreatedAt          time.Time `json:"created_at"` // UTC
	UpdatedAt          time.Time `json:"updated_at"` // UTC
}

// Module belongs to exactly one Course. Position is 1-based and dense within
// the course: after any structural change the course's module positions are
// exactly {1..N}. Expanded and Editing are UI state, never persisted.
type Module struct {
	ID       string   `json:"id"`
	CourseID string   `json:"course_id"`
	Title    string   `json:"title"`
	Position int      `json:"position"`
	IsNew    bool     `json:"is_new,omitempty"` // transient: not yet in the store
	Expanded bool     `json:"expanded"`
	Editing  bool     `json:"editing"`
	Lessons  []Lesson `json:"lessons"`
}

// Lesson belongs to exactly one Module; same dense-position invariant as
// Module, scoped to its parent.
type Lesson struct {
	ID       string `json:"id"`
	ModuleID string `json:"module_id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Position int    `json:"position"`
	Content  string `json:"content"`
	VideoURL string `json:"video_url,omitempty"`
	IsNew    bool   `json:"is_new,omitempty"`
	Editing  bool   `json:"editing"`
}

// Subject is a course tag; courses and subjects are many-to-many.
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title              string   `json:"title" validate:"required"`
	Status             string   `json:"status" validate:"omitempty,coursestatus"`
	Description        string   `json:"description"`
	LongDescription    string   `json:"long_description"`
	Featured           bool     `json:"featured"`
	AccessDurationDays int      `json:"access_duration_days" validate:"omitempty,min=1"`
	LearningObjectives []string `json:"learning_objectives"`
	SubjectIDs         []string `json:"subject_ids"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	if nc.Status == "" {
		nc.Status = StatusDraft
	}
	return validate.Struct(nc)
}

// CourseMetadata defines the descriptive fields replaced by UpdateCourseMetadata.
// The subject association set is reconciled separately from the row update.
type CourseMetadata struct {
	Title              string   `json:"title" validate:"required"`
	Status             string   `json:"status" validate:"required,coursestatus"`
	Description        string   `json:"description"`
	LongDescription    string   `json:"long_description"`
	Featured           bool     `json:"featured"`
	AccessDurationDays int      `json:"access_duration_days" validate:"omitempty,min=1"`
	LearningObjectives []string `json:"learning_objectives"`
	SubjectIDs         []string `json:"subject_ids"`
}

func (cm *CourseMetadata) Validate(validate *validator.Validate) error {
	cm.Title = core.CleanString(cm.Title)
	return validate.Struct(cm)
}

type QueryFilter struct {
	Search   string `query:"search"`
	Status   string `query:"status"`
	Featured *bool  `query:"featured"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.Featured == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
