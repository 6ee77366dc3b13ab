package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/darasalearn/darasa/core"
	"github.com/darasalearn/darasa/core/course"
)

type courseRepository struct {
	db *DB

	subjectLinks map[string][]string // course id -> subject ids
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db, subjectLinks: make(map[string][]string)}
}

// AddSubject seeds a subject for tests.
func (repo *courseRepository) AddSubject(sub course.Subject) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.subjects[sub.ID] = &sub
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	crs, ok := repo.db.courses[id]
	if !ok {
		return course.Course{}, course.ErrCourseNotFound
	}
	out := *crs
	out.SubjectIDs = append([]string(nil), repo.subjectLinks[id]...)
	return out, nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs.ID = uuid.New().String()
	stored := crs
	stored.SubjectIDs = nil
	repo.db.courses[crs.ID] = &stored
	return crs, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		if filter != nil {
			if filter.Search != "" {
				s := strings.ToLower(filter.Search)
				if !strings.Contains(strings.ToLower(crs.Title), s) &&
					!strings.Contains(strings.ToLower(crs.Description), s) {
					continue
				}
			}
			if filter.Status != "" && crs.Status != filter.Status {
				continue
			}
			if filter.Featured != nil && crs.Featured != *filter.Featured {
				continue
			}
		}
		out := *crs
		out.SubjectIDs = append([]string(nil), repo.subjectLinks[crs.ID]...)
		courses = append(courses, out)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.Before(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, id string, meta course.CourseMetadata, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs, ok := repo.db.courses[id]
	if !ok {
		return course.Course{}, course.ErrCourseNotFound
	}
	crs.Title = meta.Title
	crs.Status = meta.Status
	crs.Description = meta.Description
	crs.LongDescription = meta.LongDescription
	crs.Featured = meta.Featured
	crs.AccessDurationDays = meta.AccessDurationDays
	crs.LearningObjectives = meta.LearningObjectives

	out := *crs
	out.SubjectIDs = append([]string(nil), repo.subjectLinks[id]...)
	return out, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.courses, id)
	delete(repo.subjectLinks, id)
	for mid, mod := range repo.db.modules {
		if mod.CourseID == id {
			for lid, les := range repo.db.lessons {
				if les.ModuleID == mid {
					delete(repo.db.lessons, lid)
				}
			}
			delete(repo.db.modules, mid)
		}
	}
	return nil
}

func (repo *courseRepository) ReplaceCourseSubjects(ctx context.Context, courseID string, subjectIDs []string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.subjectLinks[courseID] = append([]string(nil), subjectIDs...)
	return nil
}

func (repo *courseRepository) QuerySubjects(ctx context.Context, exec ...core.DBExecutor) ([]course.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subjects := make([]course.Subject, 0, len(repo.db.subjects))
	for _, sub := range repo.db.subjects {
		subjects = append(subjects, *sub)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *courseRepository) QueryModulesByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	mods := make([]course.Module, 0)
	for _, mod := range repo.db.modules {
		if mod.CourseID == courseID {
			out := *mod
			out.Lessons = nil
			mods = append(mods, out)
		}
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Position < mods[j].Position })
	return mods, nil
}

func (repo *courseRepository) InsertModule(ctx context.Context, mod course.Module, exec ...core.DBExecutor) (course.Module, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	mod.ID = uuid.New().String()
	stored := mod
	stored.Lessons = nil
	repo.db.modules[mod.ID] = &stored
	return mod, nil
}

func (repo *courseRepository) UpdateModuleTitle(ctx context.Context, id, title string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	mod, ok := repo.db.modules[id]
	if !ok {
		return course.ErrModuleNotFound
	}
	mod.Title = title
	return nil
}

func (repo *courseRepository) UpdateModulePosition(ctx context.Context, id string, position int, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	mod, ok := repo.db.modules[id]
	if !ok {
		return course.ErrModuleNotFound
	}
	mod.Position = position
	return nil
}

func (repo *courseRepository) DeleteModule(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.modules, id)
	return nil
}

func (repo *courseRepository) QueryLessonsByModules(ctx context.Context, moduleIDs []string, exec ...core.DBExecutor) ([]course.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	wanted := make(map[string]int, len(moduleIDs)) // module id -> rank
	for i, id := range moduleIDs {
		wanted[id] = i
	}

	lessons := make([]course.Lesson, 0)
	for _, les := range repo.db.lessons {
		if _, ok := wanted[les.ModuleID]; ok {
			lessons = append(lessons, *les)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].ModuleID != lessons[j].ModuleID {
			return wanted[lessons[i].ModuleID] < wanted[lessons[j].ModuleID]
		}
		return lessons[i].Position < lessons[j].Position
	})
	return lessons, nil
}

func (repo *courseRepository) InsertLesson(ctx context.Context, les course.Lesson, exec ...core.DBExecutor) (course.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	les.ID = uuid.New().String()
	stored := les
	repo.db.lessons[les.ID] = &stored
	return les, nil
}

func (repo *courseRepository) UpdateLessonTitle(ctx context.Context, id, title string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	les, ok := repo.db.lessons[id]
	if !ok {
		return course.ErrLessonNotFound
	}
	les.Title = title
	return nil
}

func (repo *courseRepository) UpdateLessonPosition(ctx context.Context, id string, position int, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	les, ok := repo.db.lessons[id]
	if !ok {
		return course.ErrLessonNotFound
	}
	les.Position = position
	return nil
}

func (repo *courseRepository) MoveLesson(ctx context.Context, id, moduleID string, position int, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	les, ok := repo.db.lessons[id]
	if !ok {
		return course.ErrLessonNotFound
	}
	les.ModuleID = moduleID
	les.Position = position
	return nil
}

func (repo *courseRepository) DeleteLesson(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.lessons, id)
	return nil
}

func (repo *courseRepository) DeleteLessonsByModule(ctx context.Context, moduleID string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, les := range repo.db.lessons {
		if les.ModuleID == moduleID {
			delete(repo.db.lessons, id)
		}
	}
	return nil
}
