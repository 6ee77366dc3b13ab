package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasalearn/darasa/core"
	"github.com/darasalearn/darasa/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID                 string         `db:"id"`
	Title              string         `db:"title"`
	Status             string         `db:"status"`
	Description        string         `db:"description"`
	LongDescription    string         `db:"long_description"`
	Featured           bool           `db:"featured"`
	AccessDurationDays int            `db:"access_duration_days"`
	LearningObjectives pq.StringArray `db:"learning_objectives"`
	CreatedAt          null.Time      `db:"created_at"`
	UpdatedAt          null.Time      `db:"updated_at"`
}

func (repo courseRepository) unrow(row courseRow) course.Course {
	return course.Course{
		ID:                 row.ID,
		Title:              row.Title,
		Status:             row.Status,
		Description:        row.Description,
		LongDescription:    row.LongDescription,
		Featured:           row.Featured,
		AccessDurationDays: row.AccessDurationDays,
		LearningObjectives: row.LearningObjectives,
		CreatedAt:          row.CreatedAt.Time,
		UpdatedAt:          row.UpdatedAt.Time,
	}
}

func (repo courseRepository) trapNoRowsErr(err error, notFound, msg string) error {
	if err == sql.ErrNoRows {
		switch notFound {
		case "course":
			return course.ErrCourseNotFound
		case "module":
			return course.ErrModuleNotFound
		case "lesson":
			return course.ErrLessonNotFound
		}
	}
	return errors.Wrap(err, msg)
}

const courseColumns = `id, title, status, description, long_description, featured, access_duration_days, learning_objectives, created_at, updated_at`

func (repo courseRepository) loadSubjectIDs(ctx context.Context, e sqlx.ExtContext, crs *course.Course) error {
	q := e.Rebind(`SELECT subject_id FROM course_subject WHERE course_id = ? ORDER BY subject_id`)
	var ids []string
	if err := sqlx.SelectContext(ctx, e, &ids, q, crs.ID); err != nil {
		return errors.Wrap(err, "fetching course subjects")
	}
	crs.SubjectIDs = ids
	return nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	e := ext(repo.db, exec)

	var row courseRow
	q := e.Rebind(`SELECT ` + courseColumns + ` FROM course WHERE id = ?`)
	if err := sqlx.GetContext(ctx, e, &row, q, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "course", "finding course")
	}
	crs := repo.unrow(row)
	if err := repo.loadSubjectIDs(ctx, e, &crs); err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	e := ext(repo.db, exec)
	crs.ID = uuid.New().String()

	q := e.Rebind(`INSERT INTO course (` + courseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := e.ExecContext(ctx, q,
		crs.ID, crs.Title, crs.Status, crs.Description, crs.LongDescription,
		crs.Featured, crs.AccessDurationDays, pq.StringArray(crs.LearningObjectives),
		null.TimeFrom(crs.CreatedAt.UTC()), null.TimeFrom(crs.UpdatedAt.UTC()),
	); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	e := ext(repo.db, exec)

	q := `SELECT ` + courseColumns + ` FROM course`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			conds = append(conds, "(title ILIKE ? OR description ILIKE ?)")
			args = append(args, val, val)
		}
		if filter.Status != "" {
			conds = append(conds, "status = ?")
			args = append(args, filter.Status)
		}
		if filter.Featured != nil {
			conds = append(conds, "featured = ?")
			args = append(args, *filter.Featured)
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering)

	var rows []courseRow
	if err := sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		crs := repo.unrow(row)
		if err := repo.loadSubjectIDs(ctx, e, &crs); err != nil {
			return nil, err
		}
		courses = append(courses, crs)
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, id string, meta course.CourseMetadata, exec ...core.DBExecutor) (course.Course, error) {
	e := ext(repo.db, exec)

	q := e.Rebind(`
		UPDATE course SET
			title = ?,
			status = ?,
			description = ?,
			long_description = ?,
			featured = ?,
			access_duration_days = ?,
			learning_objectives = ?,
			updated_at = NOW()
		WHERE id = ?`)
	res, err := e.ExecContext(ctx, q,
		meta.Title, meta.Status, meta.Description, meta.LongDescription,
		meta.Featured, meta.AccessDurationDays, pq.StringArray(meta.LearningObjectives), id,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return course.Course{}, course.ErrCourseNotFound
	}
	return repo.GetCourse(ctx, id, exec...)
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)
	if _, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM course WHERE id = ?`), id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}

// ReplaceCourseSubjects reconciles the association set in one transaction when
// no outer one was provided.
func (repo courseRepository) ReplaceCourseSubjects(ctx context.Context, courseID string, subjectIDs []string, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)

	run := func(e sqlx.ExtContext) error {
		if _, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM course_subject WHERE course_id = ?`), courseID); err != nil {
			return errors.Wrap(err, "clearing course subjects")
		}
		q := e.Rebind(`INSERT INTO course_subject (course_id, subject_id) VALUES (?, ?)`)
		for _, sid := range subjectIDs {
			if _, err := e.ExecContext(ctx, q, courseID, sid); err != nil {
				if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
					return course.ErrSubjectNotFound
				}
				return errors.Wrap(err, "linking course subject")
			}
		}
		return nil
	}

	if len(exec) > 0 {
		return run(e)
	}
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()
	if err = run(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "replacing course subjects")
}

func (repo courseRepository) QuerySubjects(ctx context.Context, exec ...core.DBExecutor) ([]course.Subject, error) {
	e := ext(repo.db, exec)

	var subjects []course.Subject
	q := `SELECT id, name FROM subject ORDER BY name ASC`
	if err := sqlx.SelectContext(ctx, e, &subjects, q); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

type moduleRow struct {
	ID       string `db:"id"`
	CourseID string `db:"course_id"`
	Title    string `db:"title"`
	Position int    `db:"position"`
}

type lessonRow struct {
	ID       string `db:"id"`
	ModuleID string `db:"module_id"`
	Title    string `db:"title"`
	Status   string `db:"status"`
	Position int    `db:"position"`
	Content  string `db:"content"`
	VideoURL string `db:"video_url"`
}

func (repo courseRepository) QueryModulesByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Module, error) {
	e := ext(repo.db, exec)

	var rows []moduleRow
	q := e.Rebind(`SELECT id, course_id, title, position FROM module WHERE course_id = ? ORDER BY position ASC`)
	if err := sqlx.SelectContext(ctx, e, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	mods := make([]course.Module, 0, len(rows))
	for _, row := range rows {
		mods = append(mods, course.Module{
			ID:       row.ID,
			CourseID: row.CourseID,
			Title:    row.Title,
			Position: row.Position,
		})
	}
	return mods, nil
}

func (repo courseRepository) InsertModule(ctx context.Context, mod course.Module, exec ...core.DBExecutor) (course.Module, error) {
	e := ext(repo.db, exec)
	mod.ID = uuid.New().String()

	q := e.Rebind(`INSERT INTO module (id, course_id, title, position) VALUES (?, ?, ?, ?)`)
	if _, err := e.ExecContext(ctx, q, mod.ID, mod.CourseID, mod.Title, mod.Position); err != nil {
		return course.Module{}, errors.Wrap(err, "inserting module")
	}
	return mod, nil
}

func (repo courseRepository) UpdateModuleTitle(ctx context.Context, id, title string, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)
	res, err := e.ExecContext(ctx, e.Rebind(`UPDATE module SET title = ? WHERE id = ?`), title, id)
	if err != nil {
		return errors.Wrap(err, "updating module title")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return course.ErrModuleNotFound
	}
	return nil
}

func (repo courseRepository) UpdateModulePosition(ctx context.Context, id string, position int, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)
	res, err := e.ExecContext(ctx, e.Rebind(`UPDATE module SET position = ? WHERE id = ?`), position, id)
	if err != nil {
		return errors.Wrap(err, "updating module position")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return course.ErrModuleNotFound
	}
	return nil
}

func (repo courseRepository) DeleteModule(ctx context.Context, id string, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)
	if _, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM module WHERE id = ?`), id); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return nil
}

func (repo courseRepository) QueryLessonsByModules(ctx context.Context, moduleIDs []string, exec ...core.DBExecutor) ([]course.Lesson, error) {
	e := ext(repo.db, exec)
	if len(moduleIDs) == 0 {
		return nil, nil
	}

	q, args, err := sqlx.In(`SELECT id, module_id, title, status, position, content, video_url FROM lesson WHERE module_id IN (?) ORDER BY module_id, position ASC`, moduleIDs)
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	var rows []lessonRow
	if err = sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]course.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, course.Lesson{
			ID:       row.ID,
			ModuleID: row.ModuleID,
			Title:    row.Title,
			Status:   row.Status,
			Position: row.Position,
			Content:  row.Content,
			VideoURL: row.VideoURL,
		})
	}
	return lessons, nil
}

func (repo courseRepository) InsertLesson(ctx context.Context, les course.Lesson, exec ...core.DBExecutor) (course.Lesson, error) {
	e := ext(repo.db, exec)
	les.ID = uuid.New().String()

	q := e.Rebind(`INSERT INTO lesson (id, module_id, title, status, position, content, video_url) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := e.ExecContext(ctx, q, les.ID, les.ModuleID, les.Title, les.Status, les.Position, les.Content, les.VideoURL); err != nil {
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return les, nil
}

func (repo courseRepository) UpdateLessonTitle(ctx context.Context, id, title string, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)
	res, err := e.ExecContext(ctx, e.Rebind(`UPDATE lesson SET title = ? WHERE id = ?`), title, id)
	if err != nil {
		return errors.Wrap(err, "updating lesson title")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return course.ErrLessonNotFound
	}
	return nil
}

func (repo courseRepository) UpdateLessonPosition(ctx context.Context, id string, position int, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)
	res, err := e.ExecContext(ctx, e.Rebind(`UPDATE lesson SET position = ? WHERE id = ?`), position, id)
	if err != nil {
		return errors.Wrap(err, "updating lesson position")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return course.ErrLessonNotFound
	}
	return nil
}

func (repo courseRepository) MoveLesson(ctx context.Context, id, moduleID string, position int, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)
	res, err := e.ExecContext(ctx, e.Rebind(`UPDATE lesson SET module_id = ?, position = ? WHERE id = ?`), moduleID, position, id)
	if err != nil {
		return errors.Wrap(err, "moving lesson")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return course.ErrLessonNotFound
	}
	return nil
}

func (repo courseRepository) DeleteLesson(ctx context.Context, id string, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)
	if _, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM lesson WHERE id = ?`), id); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return nil
}

func (repo courseRepository) DeleteLessonsByModule(ctx context.Context, moduleID string, exec ...core.DBExecutor) error {
	e := ext(repo.db, exec)
	if _, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM lesson WHERE module_id = ?`), moduleID); err != nil {
		return errors.Wrap(err, "deleting module lessons")
	}
	return nil
}
