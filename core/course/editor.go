package course

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasalearn/darasa/core"
)

// ReorderKind selects which sibling list a completed drag gesture targets.
type ReorderKind string

const (
	ReorderModule ReorderKind = "module"
	ReorderLesson ReorderKind = "lesson"
)

type (
	// DragLocation identifies one end of a drag gesture: the containing list
	// (the course for modules, a module for lessons) and a 0-based array index.
	DragLocation struct {
		ContainerID string `json:"container_id"`
		Index       int    `json:"index"`
	}

	// ReorderRequest describes one completed drag gesture.
	// A nil Destination means the drag was cancelled.
	ReorderRequest struct {
		Kind        ReorderKind   `json:"kind"`
		Source      DragLocation  `json:"source"`
		Destination *DragLocation `json:"destination"`
	}

	// AlertFunc surfaces a blocking operator alert. Reorder persistence failures
	// go through it because silently losing an ordering is higher-severity than
	// other mutation failures. Injected explicitly so tests can capture alerts.
	AlertFunc func(msg string)

	// Editor manages the in-memory Module/Lesson tree of one course and keeps
	// the store eventually consistent with local edits. Structural edits are
	// applied locally first (optimistic) and persisted sequentially; a failed
	// persistence call is surfaced but the local tree is NOT rolled back — the
	// operator is told to refresh instead.
	//
	// An Editor instance is owned by a single operator session and is not safe
	// for concurrent use.
	Editor struct {
		store  Store
		logger core.Logger
		alert  AlertFunc

		course  Course
		modules []Module
		loaded  bool
	}
)

var errNotLoaded = errors.New("no course loaded")

func NewEditor(store Store, logger core.Logger, alert AlertFunc) *Editor {
	return &Editor{
		store:  store,
		logger: logger,
		alert:  alert,
	}
}

func newTempID() string {
	return tempIDPrefix + uuid.New().String()
}

// Load fetches the course, its modules ordered by position and their lessons
// ordered by position, and assembles the nested tree (the store has no native
// nested fetch for this shape). All modules start expanded.
func (ed *Editor) Load(ctx context.Context, courseID string) error {
	crs, err := ed.store.GetCourse(ctx, courseID)
	if err != nil {
		return errors.Wrap(err, "fetching course")
	}

	mods, err := ed.store.QueryModulesByCourse(ctx, courseID)
	if err != nil {
		return errors.Wrap(err, "fetching modules")
	}

	modIDs := make([]string, 0, len(mods))
	for _, m := range mods {
		modIDs = append(modIDs, m.ID)
	}
	var lessons []Lesson
	if len(modIDs) > 0 {
		if lessons, err = ed.store.QueryLessonsByModules(ctx, modIDs); err != nil {
			return errors.Wrap(err, "fetching lessons")
		}
	}

	byModule := make(map[string][]Lesson, len(mods))
	for _, les := range lessons {
		byModule[les.ModuleID] = append(byModule[les.ModuleID], les)
	}
	for i := range mods {
		mods[i].Expanded = true
		mods[i].Lessons = byModule[mods[i].ID]
		if mods[i].Lessons == nil {
			mods[i].Lessons = []Lesson{}
		}
	}

	ed.course = crs
	ed.modules = mods
	ed.loaded = true
	return nil
}

func (ed *Editor) Loaded() bool { return ed.loaded }

func (ed *Editor) Course() Course { return ed.course }

// Tree returns a deep copy of the module/lesson tree for rendering.
func (ed *Editor) Tree() []Module {
	tree := make([]Module, len(ed.modules))
	copy(tree, ed.modules)
	for i := range tree {
		lessons := make([]Lesson, len(tree[i].Lessons))
		copy(lessons, tree[i].Lessons)
		tree[i].Lessons = lessons
	}
	return tree
}

// AddModuleInline appends a transient module to the tree and enters edit mode
// for it. Pure local mutation; nothing is persisted until save.
func (ed *Editor) AddModuleInline() (Module, error) {
	if !ed.loaded {
		return Module{}, errNotLoaded
	}

	maxPos := 0
	for _, m := range ed.modules {
		if m.Position > maxPos {
			maxPos = m.Position
		}
	}
	mod := Module{
		ID:       newTempID(),
		CourseID: ed.course.ID,
		Position: maxPos + 1,
		IsNew:    true,
		Expanded: true,
		Editing:  true,
		Lessons:  []Lesson{},
	}
	ed.modules = append(ed.modules, mod)
	return mod, nil
}

// SaveModuleInline persists an inline module edit. A blank title is a no-op.
// A transient module is inserted and replaced in place by the store's row;
// a permanent one gets a title-only update. Edit mode is exited either way;
// on store failure the local tree is not rolled back.
func (ed *Editor) SaveModuleInline(ctx context.Context, id, title string) error {
	if !ed.loaded {
		return errNotLoaded
	}
	if title = core.CleanString(title); title == "" {
		return nil
	}

	i := ed.findModule(id)
	if i < 0 {
		return ErrModuleNotFound
	}
	mod := &ed.modules[i]
	mod.Editing = false

	if mod.IsNew {
		saved, err := ed.store.InsertModule(ctx, Module{
			CourseID: mod.CourseID,
			Title:    title,
			Position: mod.Position,
		})
		if err != nil {
			return errors.Wrap(err, "inserting module")
		}
		saved.Lessons = []Lesson{}
		saved.Expanded = true
		ed.modules[i] = saved
		return nil
	}

	if err := ed.store.UpdateModuleTitle(ctx, mod.ID, title); err != nil {
		return errors.Wrap(err, "updating module title")
	}
	mod.Title = title
	return nil
}

// CancelModuleInline discards an inline module edit: a transient module is
// removed from the tree entirely, a permanent one just leaves edit mode.
func (ed *Editor) CancelModuleInline(id string) {
	i := ed.findModule(id)
	if i < 0 {
		return
	}
	if ed.modules[i].IsNew {
		ed.modules = append(ed.modules[:i], ed.modules[i+1:]...)
		return
	}
	ed.modules[i].Editing = false
}

// ToggleModuleExpand flips a module's expand/collapse flag. Local only.
func (ed *Editor) ToggleModuleExpand(id string) {
	if i := ed.findModule(id); i >= 0 {
		ed.modules[i].Expanded = !ed.modules[i].Expanded
	}
}

// AddLessonInline appends a transient lesson to the given module and enters
// edit mode for it. The parent must already be persisted.
func (ed *Editor) AddLessonInline(moduleID string) (Lesson, error) {
	if !ed.loaded {
		return Lesson{}, errNotLoaded
	}
	i := ed.findModule(moduleID)
	if i < 0 {
		return Lesson{}, ErrModuleNotFound
	}
	mod := &ed.modules[i]
	if mod.IsNew {
		return Lesson{}, core.NewValidationError(errors.New("save the module before adding lessons"))
	}

	les := Lesson{
		ID:       newTempID(),
		ModuleID: mod.ID,
		Status:   StatusDraft,
		Position: len(mod.Lessons) + 1,
		IsNew:    true,
		Editing:  true,
	}
	mod.Lessons = append(mod.Lessons, les)
	return les, nil
}

// SaveLessonInline mirrors SaveModuleInline one level down.
func (ed *Editor) SaveLessonInline(ctx context.Context, id, title string) error {
	if !ed.loaded {
		return errNotLoaded
	}
	if title = core.CleanString(title); title == "" {
		return nil
	}

	mi, li := ed.findLesson(id)
	if li < 0 {
		return ErrLessonNotFound
	}
	les := &ed.modules[mi].Lessons[li]
	les.Editing = false

	if les.IsNew {
		saved, err := ed.store.InsertLesson(ctx, Lesson{
			ModuleID: les.ModuleID,
			Title:    title,
			Status:   les.Status,
			Position: les.Position,
		})
		if err != nil {
			return errors.Wrap(err, "inserting lesson")
		}
		ed.modules[mi].Lessons[li] = saved
		return nil
	}

	if err := ed.store.UpdateLessonTitle(ctx, les.ID, title); err != nil {
		return errors.Wrap(err, "updating lesson title")
	}
	les.Title = title
	return nil
}

// CancelLessonInline mirrors CancelModuleInline one level down.
func (ed *Editor) CancelLessonInline(id string) {
	mi, li := ed.findLesson(id)
	if li < 0 {
		return
	}
	mod := &ed.modules[mi]
	if mod.Lessons[li].IsNew {
		mod.Lessons = append(mod.Lessons[:li], mod.Lessons[li+1:]...)
		return
	}
	mod.Lessons[li].Editing = false
}

// Reorder applies one completed drag gesture. It is a no-op when the drag was
// cancelled, the source and destination are identical, the dragged entity is
// transient or mid-edit, or (for lessons) any module is mid-rename.
func (ed *Editor) Reorder(ctx context.Context, req ReorderRequest) error {
	if !ed.loaded {
		return errNotLoaded
	}
	if req.Destination == nil {
		return nil
	}
	switch req.Kind {
	case ReorderModule:
		return ed.reorderModules(ctx, req.Source.Index, req.Destination.Index)
	case ReorderLesson:
		return ed.reorderLessons(ctx, req.Source, *req.Destination)
	}
	return core.NewValidationError(errors.Errorf("unknown reorder kind %q", req.Kind))
}

func (ed *Editor) reorderModules(ctx context.Context, src, dst int) error {
	if src == dst || src < 0 || src >= len(ed.modules) {
		return nil
	}
	moved := ed.modules[src]
	if moved.IsNew || moved.Editing {
		return nil
	}

	// optimistic local mutation: splice, then renumber every sibling
	ed.modules = append(ed.modules[:src], ed.modules[src+1:]...)
	dst = clamp(dst, 0, len(ed.modules))
	ed.modules = append(ed.modules, Module{})
	copy(ed.modules[dst+1:], ed.modules[dst:])
	ed.modules[dst] = moved
	renumberModules(ed.modules)

	return ed.persistModulePositions(ctx, ed.modules[dst].ID)
}

func (ed *Editor) reorderLessons(ctx context.Context, src, dst DragLocation) error {
	// structural lesson mutation must not race a pending module rename
	for _, m := range ed.modules {
		if m.Editing {
			return nil
		}
	}

	si := ed.findModule(src.ContainerID)
	if si < 0 || src.Index < 0 || src.Index >= len(ed.modules[si].Lessons) {
		return nil
	}
	moved := ed.modules[si].Lessons[src.Index]
	if moved.IsNew || moved.Editing {
		return nil
	}

	if src.ContainerID == dst.ContainerID {
		if src.Index == dst.Index {
			return nil
		}
		mod := &ed.modules[si]
		mod.Lessons = append(mod.Lessons[:src.Index], mod.Lessons[src.Index+1:]...)
		di := clamp(dst.Index, 0, len(mod.Lessons))
		mod.Lessons = append(mod.Lessons, Lesson{})
		copy(mod.Lessons[di+1:], mod.Lessons[di:])
		mod.Lessons[di] = moved
		renumberLessons(mod.Lessons)

		// moved lesson first, then the remaining siblings
		if err := ed.store.UpdateLessonPosition(ctx, moved.ID, mod.Lessons[di].Position); err != nil {
			return ed.persistFailed("lesson reorder", err)
		}
		return ed.persistLessonPositions(ctx, mod.Lessons, moved.ID)
	}

	di := ed.findModule(dst.ContainerID)
	if di < 0 || ed.modules[di].IsNew {
		return nil
	}
	srcMod, dstMod := &ed.modules[si], &ed.modules[di]

	srcMod.Lessons = append(srcMod.Lessons[:src.Index], srcMod.Lessons[src.Index+1:]...)
	moved.ModuleID = dstMod.ID
	idx := clamp(dst.Index, 0, len(dstMod.Lessons))
	dstMod.Lessons = append(dstMod.Lessons, Lesson{})
	copy(dstMod.Lessons[idx+1:], dstMod.Lessons[idx:])
	dstMod.Lessons[idx] = moved
	renumberLessons(srcMod.Lessons)
	renumberLessons(dstMod.Lessons)

	// moved lesson's new parent and position first, then the source siblings,
	// then the destination siblings
	if err := ed.store.MoveLesson(ctx, moved.ID, dstMod.ID, dstMod.Lessons[idx].Position); err != nil {
		return ed.persistFailed("lesson move", err)
	}
	if err := ed.persistLessonPositions(ctx, srcMod.Lessons, moved.ID); err != nil {
		return err
	}
	return ed.persistLessonPositions(ctx, dstMod.Lessons, moved.ID)
}

// DeleteModule deletes a module and all of its lessons: lessons are deleted
// remotely first, then the module row, then both are removed locally. A remote
// failure at either step aborts before the local removal. Remaining siblings
// are renumbered to keep positions dense.
func (ed *Editor) DeleteModule(ctx context.Context, id string) error {
	if !ed.loaded {
		return errNotLoaded
	}
	i := ed.findModule(id)
	if i < 0 {
		return ErrModuleNotFound
	}

	if !ed.modules[i].IsNew {
		if err := ed.store.DeleteLessonsByModule(ctx, id); err != nil {
			return errors.Wrap(err, "deleting module lessons")
		}
		if err := ed.store.DeleteModule(ctx, id); err != nil {
			return errors.Wrap(err, "deleting module")
		}
	}

	ed.modules = append(ed.modules[:i], ed.modules[i+1:]...)
	renumberModules(ed.modules)
	return ed.persistModulePositions(ctx, "")
}

// DeleteLesson deletes a single lesson remotely, removes it locally and
// renumbers the remaining siblings.
func (ed *Editor) DeleteLesson(ctx context.Context, id string) error {
	if !ed.loaded {
		return errNotLoaded
	}
	mi, li := ed.findLesson(id)
	if li < 0 {
		return ErrLessonNotFound
	}
	mod := &ed.modules[mi]

	if !mod.Lessons[li].IsNew {
		if err := ed.store.DeleteLesson(ctx, id); err != nil {
			return errors.Wrap(err, "deleting lesson")
		}
	}

	mod.Lessons = append(mod.Lessons[:li], mod.Lessons[li+1:]...)
	renumberLessons(mod.Lessons)
	return ed.persistLessonPositions(ctx, mod.Lessons, "")
}

// UpdateCourseMetadata replaces the course's descriptive fields and reconciles
// its subject associations. The two store calls are not atomic with each other;
// the subject replacement itself is a single store operation.
func (ed *Editor) UpdateCourseMetadata(ctx context.Context, meta CourseMetadata) error {
	if !ed.loaded {
		return errNotLoaded
	}

	crs, err := ed.store.UpdateCourse(ctx, ed.course.ID, meta)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	ed.course = crs

	if err = ed.store.ReplaceCourseSubjects(ctx, ed.course.ID, meta.SubjectIDs); err != nil {
		return errors.Wrap(err, "reconciling subjects")
	}
	ed.course.SubjectIDs = meta.SubjectIDs
	return nil
}

// persistModulePositions writes every permanent module's position sequentially,
// the moved module (if any) first. Failures alert the operator; the optimistic
// local state stays.
func (ed *Editor) persistModulePositions(ctx context.Context, movedID string) error {
	if movedID != "" {
		if i := ed.findModule(movedID); i >= 0 {
			if err := ed.store.UpdateModulePosition(ctx, movedID, ed.modules[i].Position); err != nil {
				return ed.persistFailed("module reorder", err)
			}
		}
	}
	for _, m := range ed.modules {
		if m.ID == movedID || m.IsNew {
			continue
		}
		if err := ed.store.UpdateModulePosition(ctx, m.ID, m.Position); err != nil {
			return ed.persistFailed("module reorder", err)
		}
	}
	return nil
}

func (ed *Editor) persistLessonPositions(ctx context.Context, lessons []Lesson, movedID string) error {
	for _, les := range lessons {
		if les.ID == movedID || les.IsNew {
			continue
		}
		if err := ed.store.UpdateLessonPosition(ctx, les.ID, les.Position); err != nil {
			return ed.persistFailed("lesson reorder", err)
		}
	}
	return nil
}

func (ed *Editor) persistFailed(op string, err error) error {
	ed.logger.Error(fmt.Sprintf("%s: persisting positions: %v", op, err), err)
	if ed.alert != nil {
		ed.alert("Saving the new order failed. Please refresh to see the stored order.")
	}
	return errors.Wrapf(err, "%s: persisting positions", op)
}

func (ed *Editor) findModule(id string) int {
	for i := range ed.modules {
		if ed.modules[i].ID == id {
			return i
		}
	}
	return -1
}

func (ed *Editor) findLesson(id string) (mi, li int) {
	for i := range ed.modules {
		for j := range ed.modules[i].Lessons {
			if ed.modules[i].Lessons[j].ID == id {
				return i, j
			}
		}
	}
	return -1, -1
}

func renumberModules(mods []Module) {
	for i := range mods {
		mods[i].Position = i + 1
	}
}

func renumberLessons(lessons []Lesson) {
	for i := range lessons {
		lessons[i].Position = i + 1
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
