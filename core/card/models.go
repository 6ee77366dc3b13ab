package card

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasalearn/darasa/core"
)

type (
	// Flashcard is one front/back study card attached to a course. Position is
	// 1-based and dense within the course.
	Flashcard struct {
		ID        string    `json:"id"`
		CourseID  string    `json:"course_id"`
		Front     string    `json:"front"`
		Back      string    `json:"back"`
		Position  int       `json:"position"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	NewCard struct {
		CourseID string `json:"course_id" validate:"required"`
		Front    string `json:"front" validate:"required,max=500"`
		Back     string `json:"back" validate:"required,max=2000"`
	}

	UpdateCard struct {
		Front string `json:"front" validate:"required,max=500"`
		Back  string `json:"back" validate:"required,max=2000"`
	}
)

func (nc *NewCard) Validate(validate *validator.Validate) error {
	nc.CourseID = core.CleanString(nc.CourseID)
	nc.Front = core.CleanString(nc.Front)
	nc.Back = core.CleanString(nc.Back)
	return validate.Struct(nc)
}

func (uc *UpdateCard) Validate(validate *validator.Validate) error {
	uc.Front = core.CleanString(uc.Front)
	uc.Back = core.CleanString(uc.Back)
	return validate.Struct(uc)
}
