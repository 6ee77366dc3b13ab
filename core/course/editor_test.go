package course

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasalearn/darasa/core"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

// fakeStore records every mutation call in order and can be told to fail
// specific methods.
type fakeStore struct {
	course  Course
	modules []Module
	lessons []Lesson

	calls []string
	fail  map[string]error
}

var _ Store = (*fakeStore)(nil)

func (s *fakeStore) record(format string, args ...interface{}) error {
	call := fmt.Sprintf(format, args...)
	s.calls = append(s.calls, call)
	for method, err := range s.fail {
		if len(call) >= len(method) && call[:len(method)] == method {
			return err
		}
	}
	return nil
}

func (s *fakeStore) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error) {
	if err := s.record("GetCourse(%s)", id); err != nil {
		return Course{}, err
	}
	if s.course.ID != id {
		return Course{}, ErrCourseNotFound
	}
	return s.course, nil
}

func (s *fakeStore) QueryModulesByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Module, error) {
	if err := s.record("QueryModulesByCourse(%s)", courseID); err != nil {
		return nil, err
	}
	mods := make([]Module, len(s.modules))
	copy(mods, s.modules)
	return mods, nil
}

func (s *fakeStore) QueryLessonsByModules(ctx context.Context, moduleIDs []string, exec ...core.DBExecutor) ([]Lesson, error) {
	if err := s.record("QueryLessonsByModules(%v)", moduleIDs); err != nil {
		return nil, err
	}
	var lessons []Lesson
	for _, id := range moduleIDs {
		for _, les := range s.lessons {
			if les.ModuleID == id {
				lessons = append(lessons, les)
			}
		}
	}
	return lessons, nil
}

func (s *fakeStore) InsertModule(ctx context.Context, mod Module, exec ...core.DBExecutor) (Module, error) {
	if err := s.record("InsertModule(%s,%d)", mod.Title, mod.Position); err != nil {
		return Module{}, err
	}
	mod.ID = fmt.Sprintf("mod-%d", len(s.calls))
	return mod, nil
}

func (s *fakeStore) UpdateModuleTitle(ctx context.Context, id, title string, exec ...core.DBExecutor) error {
	return s.record("UpdateModuleTitle(%s,%s)", id, title)
}

func (s *fakeStore) UpdateModulePosition(ctx context.Context, id string, position int, exec ...core.DBExecutor) error {
	return s.record("UpdateModulePosition(%s,%d)", id, position)
}

func (s *fakeStore) DeleteModule(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return s.record("DeleteModule(%s)", id)
}

func (s *fakeStore) InsertLesson(ctx context.Context, les Lesson, exec ...core.DBExecutor) (Lesson, error) {
	if err := s.record("InsertLesson(%s,%s,%d)", les.ModuleID, les.Title, les.Position); err != nil {
		return Lesson{}, err
	}
	les.ID = fmt.Sprintf("les-%d", len(s.calls))
	return les, nil
}

func (s *fakeStore) UpdateLessonTitle(ctx context.Context, id, title string, exec ...core.DBExecutor) error {
	return s.record("UpdateLessonTitle(%s,%s)", id, title)
}

func (s *fakeStore) UpdateLessonPosition(ctx context.Context, id string, position int, exec ...core.DBExecutor) error {
	return s.record("UpdateLessonPosition(%s,%d)", id, position)
}

func (s *fakeStore) MoveLesson(ctx context.Context, id, moduleID string, position int, exec ...core.DBExecutor) error {
	return s.record("MoveLesson(%s,%s,%d)", id, moduleID, position)
}

func (s *fakeStore) DeleteLesson(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return s.record("DeleteLesson(%s)", id)
}

func (s *fakeStore) DeleteLessonsByModule(ctx context.Context, moduleID string, exec ...core.DBExecutor) error {
	return s.record("DeleteLessonsByModule(%s)", moduleID)
}

func (s *fakeStore) UpdateCourse(ctx context.Context, id string, meta CourseMetadata, exec ...core.DBExecutor) (Course, error) {
	if err := s.record("UpdateCourse(%s,%s)", id, meta.Title); err != nil {
		return Course{}, err
	}
	crs := s.course
	crs.Title = meta.Title
	crs.Description = meta.Description
	return crs, nil
}

func (s *fakeStore) ReplaceCourseSubjects(ctx context.Context, courseID string, subjectIDs []string, exec ...core.DBExecutor) error {
	return s.record("ReplaceCourseSubjects(%s,%v)", courseID, subjectIDs)
}

func (s *fakeStore) reset() { s.calls = nil }

// seededStore returns a course with three modules; the first holds two lessons
// and the second holds one.
func seededStore() *fakeStore {
	return &fakeStore{
		course: Course{ID: "c1", Title: "Algebra I", Status: StatusPublished},
		modules: []Module{
			{ID: "m1", CourseID: "c1", Title: "Linear Equations", Position: 1},
			{ID: "m2", CourseID: "c1", Title: "Quadratics", Position: 2},
			{ID: "m3", CourseID: "c1", Title: "Polynomials", Position: 3},
		},
		lessons: []Lesson{
			{ID: "l1", ModuleID: "m1", Title: "Slope", Status: StatusPublished, Position: 1},
			{ID: "l2", ModuleID: "m1", Title: "Intercepts", Status: StatusDraft, Position: 2},
			{ID: "l3", ModuleID: "m2", Title: "Factoring", Status: StatusDraft, Position: 1},
		},
		fail: make(map[string]error),
	}
}

func loadedEditor(t *testing.T) (*Editor, *fakeStore, *[]string) {
	t.Helper()
	store := seededStore()
	alerts := new([]string)
	ed := NewEditor(store, nopLogger{}, func(msg string) { *alerts = append(*alerts, msg) })
	require.NoError(t, ed.Load(context.Background(), "c1"))
	store.reset()
	return ed, store, alerts
}

func assertDensePositions(t *testing.T, tree []Module) {
	t.Helper()
	for i, mod := range tree {
		assert.Equalf(t, i+1, mod.Position, "module %s position", mod.ID)
		for j, les := range mod.Lessons {
			assert.Equalf(t, j+1, les.Position, "lesson %s position", les.ID)
		}
	}
}

func TestEditorLoad(t *testing.T) {
	ed, _, _ := loadedEditor(t)

	tree := ed.Tree()
	require.Len(t, tree, 3)
	assert.Equal(t, []string{"l1", "l2"}, lessonIDs(tree[0]))
	assert.Equal(t, []string{"l3"}, lessonIDs(tree[1]))
	assert.Empty(t, tree[2].Lessons)
	for _, mod := range tree {
		assert.True(t, mod.Expanded)
		assert.False(t, mod.Editing)
	}
	assertDensePositions(t, tree)
}

func TestEditorModuleInline(t *testing.T) {
	ctx := context.Background()

	t.Run("add then cancel restores the tree", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)
		before := ed.Tree()

		mod, err := ed.AddModuleInline()
		require.NoError(t, err)
		assert.True(t, mod.IsNew)
		assert.True(t, mod.Editing)
		assert.Equal(t, 4, mod.Position)
		require.Len(t, ed.Tree(), 4)

		ed.CancelModuleInline(mod.ID)
		assert.Equal(t, before, ed.Tree())
		assert.Empty(t, store.calls)
	})

	t.Run("blank save is a no-op", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)
		mod, err := ed.AddModuleInline()
		require.NoError(t, err)

		require.NoError(t, ed.SaveModuleInline(ctx, mod.ID, "   "))
		assert.Empty(t, store.calls)
		tree := ed.Tree()
		assert.True(t, tree[3].Editing)
	})

	t.Run("saving a transient module issues exactly one create", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)
		mod, err := ed.AddModuleInline()
		require.NoError(t, err)

		require.NoError(t, ed.SaveModuleInline(ctx, mod.ID, "Inequalities"))
		assert.Equal(t, []string{"InsertModule(Inequalities,4)"}, store.calls)

		tree := ed.Tree()
		saved := tree[3]
		assert.False(t, saved.IsNew)
		assert.False(t, saved.Editing)
		assert.False(t, IsTempID(saved.ID))
		assert.Equal(t, "Inequalities", saved.Title)
		assert.Equal(t, 4, saved.Position)
	})

	t.Run("saving a permanent module issues a title update", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)
		require.NoError(t, ed.SaveModuleInline(ctx, "m2", "Quadratics II"))
		assert.Equal(t, []string{"UpdateModuleTitle(m2,Quadratics II)"}, store.calls)
		assert.Equal(t, "Quadratics II", ed.Tree()[1].Title)
	})

	t.Run("cancel on a permanent module only exits edit mode", func(t *testing.T) {
		ed, _, _ := loadedEditor(t)
		require.NoError(t, ed.SaveModuleInline(ctx, "m1", "Lines")) // leave edit state clean
		ed.CancelModuleInline("m1")
		require.Len(t, ed.Tree(), 3)
		assert.False(t, ed.Tree()[0].Editing)
	})
}

func TestEditorLessonInline(t *testing.T) {
	ctx := context.Background()

	t.Run("add on a transient parent is rejected", func(t *testing.T) {
		ed, _, _ := loadedEditor(t)
		mod, err := ed.AddModuleInline()
		require.NoError(t, err)

		_, err = ed.AddLessonInline(mod.ID)
		require.Error(t, err)
		var vErr *core.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("add then cancel restores the tree", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)
		before := ed.Tree()

		les, err := ed.AddLessonInline("m1")
		require.NoError(t, err)
		assert.True(t, les.IsNew)
		assert.True(t, les.Editing)
		assert.Equal(t, 3, les.Position)

		ed.CancelLessonInline(les.ID)
		assert.Equal(t, before, ed.Tree())
		assert.Empty(t, store.calls)
	})

	t.Run("saving a transient lesson issues exactly one create", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)
		les, err := ed.AddLessonInline("m2")
		require.NoError(t, err)

		require.NoError(t, ed.SaveLessonInline(ctx, les.ID, "Completing the Square"))
		assert.Equal(t, []string{"InsertLesson(m2,Completing the Square,2)"}, store.calls)

		saved := ed.Tree()[1].Lessons[1]
		assert.False(t, saved.IsNew)
		assert.False(t, saved.Editing)
		assert.False(t, IsTempID(saved.ID))
		assert.Equal(t, StatusDraft, saved.Status)
	})

	t.Run("saving a permanent lesson issues a title update", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)
		require.NoError(t, ed.SaveLessonInline(ctx, "l3", "Factoring Trinomials"))
		assert.Equal(t, []string{"UpdateLessonTitle(l3,Factoring Trinomials)"}, store.calls)
	})
}

func TestEditorReorderModules(t *testing.T) {
	ctx := context.Background()

	t.Run("moved module persists first, then every sibling", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)

		err := ed.Reorder(ctx, ReorderRequest{
			Kind:        ReorderModule,
			Source:      DragLocation{ContainerID: "c1", Index: 0},
			Destination: &DragLocation{ContainerID: "c1", Index: 2},
		})
		require.NoError(t, err)

		tree := ed.Tree()
		assert.Equal(t, []string{"m2", "m3", "m1"}, moduleIDs(tree))
		assertDensePositions(t, tree)
		assert.Equal(t, []string{
			"UpdateModulePosition(m1,3)",
			"UpdateModulePosition(m2,1)",
			"UpdateModulePosition(m3,2)",
		}, store.calls)
	})

	t.Run("cancelled drag is a no-op", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)
		err := ed.Reorder(ctx, ReorderRequest{
			Kind:   ReorderModule,
			Source: DragLocation{ContainerID: "c1", Index: 0},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"m1", "m2", "m3"}, moduleIDs(ed.Tree()))
		assert.Empty(t, store.calls)
	})

	t.Run("dragging a transient module is a no-op", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)
		_, err := ed.AddModuleInline()
		require.NoError(t, err)

		err = ed.Reorder(ctx, ReorderRequest{
			Kind:        ReorderModule,
			Source:      DragLocation{ContainerID: "c1", Index: 3},
			Destination: &DragLocation{ContainerID: "c1", Index: 0},
		})
		require.NoError(t, err)
		assert.Empty(t, store.calls)
	})
}

func TestEditorReorderLessons(t *testing.T) {
	ctx := context.Background()

	t.Run("within one module", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)

		err := ed.Reorder(ctx, ReorderRequest{
			Kind:        ReorderLesson,
			Source:      DragLocation{ContainerID: "m1", Index: 1},
			Destination: &DragLocation{ContainerID: "m1", Index: 0},
		})
		require.NoError(t, err)

		tree := ed.Tree()
		assert.Equal(t, []string{"l2", "l1"}, lessonIDs(tree[0]))
		assertDensePositions(t, tree)
		assert.Equal(t, []string{
			"UpdateLessonPosition(l2,1)",
			"UpdateLessonPosition(l1,2)",
		}, store.calls)
	})

	t.Run("across modules: move first, then source, then destination", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)

		err := ed.Reorder(ctx, ReorderRequest{
			Kind:        ReorderLesson,
			Source:      DragLocation{ContainerID: "m1", Index: 0},
			Destination: &DragLocation{ContainerID: "m2", Index: 0},
		})
		require.NoError(t, err)

		tree := ed.Tree()
		assert.Equal(t, []string{"l2"}, lessonIDs(tree[0]))
		assert.Equal(t, []string{"l1", "l3"}, lessonIDs(tree[1]))
		assert.Equal(t, "m2", tree[1].Lessons[0].ModuleID)
		assertDensePositions(t, tree)
		assert.Equal(t, []string{
			"MoveLesson(l1,m2,1)",
			"UpdateLessonPosition(l2,1)",
			"UpdateLessonPosition(l3,2)",
		}, store.calls)
	})

	t.Run("blocked while any module is mid-rename", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)
		_, err := ed.AddModuleInline() // a module in edit mode
		require.NoError(t, err)

		err = ed.Reorder(ctx, ReorderRequest{
			Kind:        ReorderLesson,
			Source:      DragLocation{ContainerID: "m1", Index: 0},
			Destination: &DragLocation{ContainerID: "m1", Index: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"l1", "l2"}, lessonIDs(ed.Tree()[0]))
		assert.Empty(t, store.calls)
	})

	t.Run("destination in a transient module is a no-op", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)
		mod, err := ed.AddModuleInline()
		require.NoError(t, err)
		require.NoError(t, ed.SaveModuleInline(ctx, mod.ID, "Inequalities"))
		newMod, err := ed.AddModuleInline()
		require.NoError(t, err)
		store.reset()

		err = ed.Reorder(ctx, ReorderRequest{
			Kind:        ReorderLesson,
			Source:      DragLocation{ContainerID: "m1", Index: 0},
			Destination: &DragLocation{ContainerID: newMod.ID, Index: 0},
		})
		require.NoError(t, err)
		assert.Empty(t, store.calls)
	})
}

func TestEditorReorderPersistFailure(t *testing.T) {
	ed, store, alerts := loadedEditor(t)
	store.fail["UpdateModulePosition"] = fmt.Errorf("network down")

	err := ed.Reorder(context.Background(), ReorderRequest{
		Kind:        ReorderModule,
		Source:      DragLocation{ContainerID: "c1", Index: 2},
		Destination: &DragLocation{ContainerID: "c1", Index: 0},
	})
	require.Error(t, err)

	// local order stands even though persistence failed
	assert.Equal(t, []string{"m3", "m1", "m2"}, moduleIDs(ed.Tree()))
	assertDensePositions(t, ed.Tree())
	require.Len(t, *alerts, 1)
	assert.Contains(t, (*alerts)[0], "refresh")
}

func TestEditorDeleteModule(t *testing.T) {
	ctx := context.Background()

	t.Run("lessons are deleted before the module", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)

		require.NoError(t, ed.DeleteModule(ctx, "m1"))
		tree := ed.Tree()
		assert.Equal(t, []string{"m2", "m3"}, moduleIDs(tree))
		assertDensePositions(t, tree)
		assert.Equal(t, []string{
			"DeleteLessonsByModule(m1)",
			"DeleteModule(m1)",
			"UpdateModulePosition(m2,1)",
			"UpdateModulePosition(m3,2)",
		}, store.calls)
	})

	t.Run("remote failure aborts before local removal", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)
		store.fail["DeleteModule"] = fmt.Errorf("boom")

		err := ed.DeleteModule(ctx, "m1")
		require.Error(t, err)
		assert.Equal(t, []string{"m1", "m2", "m3"}, moduleIDs(ed.Tree()))
	})

	t.Run("transient module is removed locally only", func(t *testing.T) {
		ed, store, _ := loadedEditor(t)
		mod, err := ed.AddModuleInline()
		require.NoError(t, err)

		require.NoError(t, ed.DeleteModule(ctx, mod.ID))
		assert.Equal(t, []string{"m1", "m2", "m3"}, moduleIDs(ed.Tree()))
		assert.Equal(t, []string{
			"UpdateModulePosition(m1,1)",
			"UpdateModulePosition(m2,2)",
			"UpdateModulePosition(m3,3)",
		}, store.calls)
	})
}

func TestEditorDeleteLesson(t *testing.T) {
	ed, store, _ := loadedEditor(t)

	require.NoError(t, ed.DeleteLesson(context.Background(), "l1"))
	tree := ed.Tree()
	assert.Equal(t, []string{"l2"}, lessonIDs(tree[0]))
	assertDensePositions(t, tree)
	assert.Equal(t, []string{
		"DeleteLesson(l1)",
		"UpdateLessonPosition(l2,1)",
	}, store.calls)
}

func TestEditorUpdateCourseMetadata(t *testing.T) {
	ed, store, _ := loadedEditor(t)

	meta := CourseMetadata{
		Title:       "Algebra I (Revised)",
		Status:      StatusPublished,
		Description: "Linear and quadratic equations.",
		SubjectIDs:  []string{"s1", "s2"},
	}
	require.NoError(t, ed.UpdateCourseMetadata(context.Background(), meta))

	assert.Equal(t, []string{
		"UpdateCourse(c1,Algebra I (Revised))",
		"ReplaceCourseSubjects(c1,[s1 s2])",
	}, store.calls)
	assert.Equal(t, "Algebra I (Revised)", ed.Course().Title)
	assert.Equal(t, []string{"s1", "s2"}, ed.Course().SubjectIDs)
}

func moduleIDs(mods []Module) []string {
	ids := make([]string, len(mods))
	for i, m := range mods {
		ids[i] = m.ID
	}
	return ids
}

func lessonIDs(mod Module) []string {
	ids := make([]string, 0, len(mod.Lessons))
	for _, les := range mod.Lessons {
		ids = append(ids, les.ID)
	}
	return ids
}
