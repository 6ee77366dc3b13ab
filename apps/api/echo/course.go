package echoapi

import (
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasalearn/darasa/core"
	"github.com/darasalearn/darasa/core/course"
)

var errEditorNotOpen = echo.NewHTTPError(http.StatusConflict, "no open editor for this course")

type (
	courseApi struct {
		svc      *course.Service
		logger   core.Logger
		validate *validator.Validate

		mu      sync.Mutex
		editors map[string]*editorSession
	}

	// editorSession serializes access to one course's Editor. The Editor itself
	// is single-operator; the session lock only guards against the same operator's
	// overlapping requests.
	editorSession struct {
		mu     sync.Mutex
		editor *course.Editor
		alerts []string
	}

	// EditorStateResponse is the full editor state returned by every mutating
	// editor endpoint, so the client can re-render without a second round trip.
	// Alerts collected during the operation ride along and are drained.
	EditorStateResponse struct {
		Course course.Course   `json:"course"`
		Tree   []course.Module `json:"tree"`
		Alerts []string        `json:"alerts,omitempty"`
	}

	InlineSaveRequest struct {
		Title string `json:"title"`
	}
)

func registerCourseAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, deps ServerDeps) {
	api := &courseApi{
		svc:      deps.CourseSvc,
		logger:   deps.Logger,
		validate: deps.Validate,
		editors:  make(map[string]*editorSession),
	}

	ag := g.Group("", jwt, admin)
	ag.GET("/subjects", api.querySubjects)

	cg := ag.Group("/courses")
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/:id", api.retrieve)
	cg.DELETE("/:id", api.destroy)

	eg := cg.Group("/:id/editor")
	eg.POST("", api.openEditor)
	eg.GET("", api.editorState)
	eg.PUT("/metadata", api.updateMetadata)
	eg.POST("/reorder", api.reorder)

	eg.POST("/modules", api.addModule)
	eg.PUT("/modules/:moduleID", api.saveModule)
	eg.POST("/modules/:moduleID/cancel", api.cancelModule)
	eg.POST("/modules/:moduleID/toggle", api.toggleModule)
	eg.DELETE("/modules/:moduleID", api.destroyModule)

	eg.POST("/modules/:moduleID/lessons", api.addLesson)
	eg.PUT("/lessons/:lessonID", api.saveLesson)
	eg.POST("/lessons/:lessonID/cancel", api.cancelLesson)
	eg.DELETE("/lessons/:lessonID", api.destroyLesson)
}

// Catalog handlers

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrCourseNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if ctx.QueryParam("confirm") != "true" {
		return errConfirmRequired
	}

	id := ctx.Param("id")
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		if errors.Cause(err) == course.ErrCourseNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting course")
	}

	// drop any open editor for the deleted course
	api.mu.Lock()
	delete(api.editors, id)
	api.mu.Unlock()

	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) querySubjects(ctx echo.Context) error {
	subjects, err := api.svc.QuerySubjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []course.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

// Editor handlers

func (api *courseApi) openEditor(ctx echo.Context) error {
	s := api.session(ctx.Param("id"))
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editor.Load(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == course.ErrCourseNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "loading editor")
	}
	return ctx.JSON(http.StatusOK, s.state())
}

func (api *courseApi) editorState(ctx echo.Context) error {
	s, err := api.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()
	return ctx.JSON(http.StatusOK, s.state())
}

func (api *courseApi) updateMetadata(ctx echo.Context) error {
	var data course.CourseMetadata
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CourseMetadata")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.editor.UpdateCourseMetadata(ctx.Request().Context(), data); err != nil {
		if errors.Cause(err) == course.ErrSubjectNotFound {
			return core.NewValidationError(course.ErrSubjectNotFound)
		}
		return errors.Wrap(err, "updating course metadata")
	}
	return ctx.JSON(http.StatusOK, s.state())
}

func (api *courseApi) reorder(ctx echo.Context) error {
	var req course.ReorderRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to ReorderRequest")
	}

	s, err := api.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	// local state is kept even when persistence failed; the response carries
	// the alert so the client can show it over the optimistic tree
	if err := s.editor.Reorder(ctx.Request().Context(), req); err != nil && len(s.alerts) == 0 {
		return errors.Wrap(err, "reordering")
	}
	return ctx.JSON(http.StatusOK, s.state())
}

func (api *courseApi) addModule(ctx echo.Context) error {
	s, err := api.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if _, err := s.editor.AddModuleInline(); err != nil {
		return errors.Wrap(err, "adding module")
	}
	return ctx.JSON(http.StatusOK, s.state())
}

func (api *courseApi) saveModule(ctx echo.Context) error {
	var data InlineSaveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InlineSaveRequest")
	}

	s, err := api.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.editor.SaveModuleInline(ctx.Request().Context(), ctx.Param("moduleID"), data.Title); err != nil {
		if errors.Cause(err) == course.ErrModuleNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "saving module")
	}
	return ctx.JSON(http.StatusOK, s.state())
}

func (api *courseApi) cancelModule(ctx echo.Context) error {
	s, err := api.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.editor.CancelModuleInline(ctx.Param("moduleID"))
	return ctx.JSON(http.StatusOK, s.state())
}

func (api *courseApi) toggleModule(ctx echo.Context) error {
	s, err := api.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.editor.ToggleModuleExpand(ctx.Param("moduleID"))
	return ctx.JSON(http.StatusOK, s.state())
}

func (api *courseApi) destroyModule(ctx echo.Context) error {
	if ctx.QueryParam("confirm") != "true" {
		return errConfirmRequired
	}

	s, err := api.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.editor.DeleteModule(ctx.Request().Context(), ctx.Param("moduleID")); err != nil {
		if errors.Cause(err) == course.ErrModuleNotFound {
			return errHttpNotFound
		}
		if len(s.alerts) > 0 { // deleted, only the sibling renumbering failed
			return ctx.JSON(http.StatusOK, s.state())
		}
		return errors.Wrap(err, "deleting module")
	}
	return ctx.JSON(http.StatusOK, s.state())
}

func (api *courseApi) addLesson(ctx echo.Context) error {
	s, err := api.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if _, err := s.editor.AddLessonInline(ctx.Param("moduleID")); err != nil {
		if errors.Cause(err) == course.ErrModuleNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "adding lesson")
	}
	return ctx.JSON(http.StatusOK, s.state())
}

func (api *courseApi) saveLesson(ctx echo.Context) error {
	var data InlineSaveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InlineSaveRequest")
	}

	s, err := api.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.editor.SaveLessonInline(ctx.Request().Context(), ctx.Param("lessonID"), data.Title); err != nil {
		if errors.Cause(err) == course.ErrLessonNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "saving lesson")
	}
	return ctx.JSON(http.StatusOK, s.state())
}

func (api *courseApi) cancelLesson(ctx echo.Context) error {
	s, err := api.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.editor.CancelLessonInline(ctx.Param("lessonID"))
	return ctx.JSON(http.StatusOK, s.state())
}

func (api *courseApi) destroyLesson(ctx echo.Context) error {
	if ctx.QueryParam("confirm") != "true" {
		return errConfirmRequired
	}

	s, err := api.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.editor.DeleteLesson(ctx.Request().Context(), ctx.Param("lessonID")); err != nil {
		if errors.Cause(err) == course.ErrLessonNotFound {
			return errHttpNotFound
		}
		if len(s.alerts) > 0 {
			return ctx.JSON(http.StatusOK, s.state())
		}
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.JSON(http.StatusOK, s.state())
}

// Session registry

func (api *courseApi) session(courseID string) *editorSession {
	api.mu.Lock()
	defer api.mu.Unlock()

	s, ok := api.editors[courseID]
	if !ok {
		s = &editorSession{}
		s.editor = course.NewEditor(api.svc.Repo(), api.logger, func(msg string) {
			s.alerts = append(s.alerts, msg)
		})
		api.editors[courseID] = s
	}
	return s
}

// openSession returns the course's session with its lock held, or
// errEditorNotOpen when no editor has been loaded for it yet.
func (api *courseApi) openSession(ctx echo.Context) (*editorSession, error) {
	s := api.session(ctx.Param("id"))
	s.mu.Lock()
	if !s.editor.Loaded() {
		s.mu.Unlock()
		return nil, errEditorNotOpen
	}
	return s, nil
}

// state snapshots the editor and drains pending alerts.
func (s *editorSession) state() EditorStateResponse {
	alerts := s.alerts
	s.alerts = nil
	return EditorStateResponse{
		Course: s.editor.Course(),
		Tree:   s.editor.Tree(),
		Alerts: alerts,
	}
}
