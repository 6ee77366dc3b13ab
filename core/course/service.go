package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasalearn/darasa/core"
)

var (
	// errors
	ErrCourseNotFound  = errors.New("course not found")
	ErrModuleNotFound  = errors.New("module not found")
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrSubjectNotFound = errors.New("subject not found")
)

type (
	// Store is the narrow remote-store contract the content Editor consumes.
	// The store never returns nested shapes; the Editor assembles the tree.
	Store interface {
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		// QueryModulesByCourse returns the course's modules ordered by position.
		QueryModulesByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Module, error)
		// QueryLessonsByModules returns all lessons of the given modules ordered by position.
		QueryLessonsByModules(ctx context.Context, moduleIDs []string, exec ...core.DBExecutor) ([]Lesson, error)

		InsertModule(ctx context.Context, mod Module, exec ...core.DBExecutor) (Module, error)
		UpdateModuleTitle(ctx context.Context, id, title string, exec ...core.DBExecutor) error
		UpdateModulePosition(ctx context.Context, id string, position int, exec ...core.DBExecutor) error
		DeleteModule(ctx context.Context, id string, exec ...core.DBExecutor) error

		InsertLesson(ctx context.Context, les Lesson, exec ...core.DBExecutor) (Lesson, error)
		UpdateLessonTitle(ctx context.Context, id, title string, exec ...core.DBExecutor) error
		UpdateLessonPosition(ctx context.Context, id string, position int, exec ...core.DBExecutor) error
		// MoveLesson reassigns a lesson to a new parent module at the given position.
		MoveLesson(ctx context.Context, id, moduleID string, position int, exec ...core.DBExecutor) error
		DeleteLesson(ctx context.Context, id string, exec ...core.DBExecutor) error
		DeleteLessonsByModule(ctx context.Context, moduleID string, exec ...core.DBExecutor) error

		UpdateCourse(ctx context.Context, id string, meta CourseMetadata, exec ...core.DBExecutor) (Course, error)
		// ReplaceCourseSubjects reconciles the course's subject association set.
		ReplaceCourseSubjects(ctx context.Context, courseID string, subjectIDs []string, exec ...core.DBExecutor) error
	}

	// Repository extends Store with the course-catalog operations of the admin screens.
	Repository interface {
		Store

		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
		DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error
		QuerySubjects(ctx context.Context, exec ...core.DBExecutor) ([]Subject, error)
	}

	Service struct {
		db   core.DB
		repo Repository
	}
)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (svc *Service) Repo() Repository { return svc.repo }

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:              nc.Title,
		Status:             nc.Status,
		Description:        nc.Description,
		LongDescription:    nc.LongDescription,
		Featured:           nc.Featured,
		AccessDurationDays: nc.AccessDurationDays,
		LearningObjectives: nc.LearningObjectives,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return Course{}, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	if crs, err = svc.repo.CreateCourse(ctx, crs, tx); err != nil {
		return Course{}, err
	}
	if len(nc.SubjectIDs) > 0 {
		if err = svc.repo.ReplaceCourseSubjects(ctx, crs.ID, nc.SubjectIDs, tx); err != nil {
			return Course{}, errors.Wrap(err, "linking subjects")
		}
		crs.SubjectIDs = nc.SubjectIDs
	}
	if err = tx.Commit(); err != nil {
		return Course{}, errors.Wrap(err, "committing course")
	}
	return crs, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *Service) QuerySubjects(ctx context.Context) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx)
}
