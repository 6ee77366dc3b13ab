package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/darasalearn/darasa/apps/api/echo"
	"github.com/darasalearn/darasa/core/course"
)

func createCourse(t *testing.T, token, title string) course.Course {
	t.Helper()

	body := marchallObj(t, map[string]interface{}{"title": title})
	req, rec := newAuthRequest(http.MethodPost, "/v1/courses", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("createCourse(): code = %v; body %s", rec.Code, rec.Body.String())
	}

	var crs course.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
		t.Fatalf("createCourse(): %v", err)
	}
	return crs
}

func editorCall(t *testing.T, method, path, token string, body ...[]byte) (*httptest.ResponseRecorder, echoapi.EditorStateResponse) {
	t.Helper()

	req, rec := newAuthRequest(method, path, token, body...)
	app.ServeHTTP(rec, req)

	var state echoapi.EditorStateResponse
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
			t.Fatalf("editorCall(%s %s): %v", method, path, err)
		}
	}
	return rec, state
}

func assertDense(t *testing.T, mods []course.Module) {
	t.Helper()
	for i, m := range mods {
		if m.Position != i+1 {
			t.Errorf("module %q position = %d; want %d", m.Title, m.Position, i+1)
		}
		for j, les := range m.Lessons {
			if les.Position != j+1 {
				t.Errorf("lesson %q position = %d; want %d", les.Title, les.Position, j+1)
			}
		}
	}
}

func Test_courseApi_catalog(t *testing.T) {
	db.Reset()
	resetAdminCheck()

	admin := createAdmin(t, "catalogadmin")
	token := getToken(t, admin)
	crs := createCourse(t, token, "Algebra I")

	tests := []httpTest{
		{
			name: "Auth required", path: "/v1/courses",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{name: "Get all", path: "/v1/courses", token: token, wantData: marchallList(t, crs)},
		{name: "Retrieve", path: "/v1/courses/" + crs.ID, token: token, wantData: marchallObj(t, crs)},
		{
			name: "Retrieve unknown", path: "/v1/courses/nope", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Create requires title", method: http.MethodPost, path: "/v1/courses", token: token,
			body:     marchallObj(t, map[string]string{"title": ""}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name: "Delete requires confirm", method: http.MethodDelete, path: "/v1/courses/" + crs.ID, token: token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "confirm=true is required for destructive operations"}),
		},
		{name: "Subjects empty", path: "/v1/subjects", token: token, wantData: marchallList(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Delete with confirm", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/courses/"+crs.ID+"?confirm=true", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("code = %v; want 204", rec.Code)
		}
	})
}

func Test_courseApi_editorFlow(t *testing.T) {
	db.Reset()
	resetAdminCheck()

	admin := createAdmin(t, "editoradmin")
	token := getToken(t, admin)
	crs := createCourse(t, token, "Physics 101")
	base := "/v1/courses/" + crs.ID + "/editor"

	t.Run("state before open conflicts", func(t *testing.T) {
		rec, _ := editorCall(t, http.MethodGet, base, token)
		if rec.Code != http.StatusConflict {
			t.Errorf("code = %v; want 409", rec.Code)
		}
	})

	t.Run("open loads an empty tree", func(t *testing.T) {
		rec, state := editorCall(t, http.MethodPost, base, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		if state.Course.ID != crs.ID || len(state.Tree) != 0 {
			t.Errorf("course = %q, tree = %d modules; want %q, 0", state.Course.ID, len(state.Tree), crs.ID)
		}
	})

	var modID string
	t.Run("inline module add and save", func(t *testing.T) {
		_, state := editorCall(t, http.MethodPost, base+"/modules", token)
		if len(state.Tree) != 1 {
			t.Fatalf("tree = %d modules; want 1", len(state.Tree))
		}
		tmp := state.Tree[0]
		if !tmp.IsNew || !tmp.Editing || !course.IsTempID(tmp.ID) {
			t.Fatalf("transient module = %+v; want new+editing with temp id", tmp)
		}

		_, state = editorCall(t, http.MethodPut, base+"/modules/"+tmp.ID, token,
			marchallObj(t, echoapi.InlineSaveRequest{Title: "Kinematics"}))
		mod := state.Tree[0]
		if mod.IsNew || mod.Editing || course.IsTempID(mod.ID) || mod.Title != "Kinematics" {
			t.Fatalf("saved module = %+v; want permanent %q", mod, "Kinematics")
		}
		modID = mod.ID
	})

	t.Run("inline module cancel removes transient", func(t *testing.T) {
		_, state := editorCall(t, http.MethodPost, base+"/modules", token)
		tmp := state.Tree[len(state.Tree)-1]

		_, state = editorCall(t, http.MethodPost, base+"/modules/"+tmp.ID+"/cancel", token)
		if len(state.Tree) != 1 {
			t.Errorf("tree = %d modules; want 1", len(state.Tree))
		}
	})

	t.Run("inline lesson add and save", func(t *testing.T) {
		_, state := editorCall(t, http.MethodPost, base+"/modules/"+modID+"/lessons", token)
		tmp := state.Tree[0].Lessons[0]
		if !tmp.IsNew || tmp.Status != course.StatusDraft {
			t.Fatalf("transient lesson = %+v; want new draft", tmp)
		}

		_, state = editorCall(t, http.MethodPut, base+"/lessons/"+tmp.ID, token,
			marchallObj(t, echoapi.InlineSaveRequest{Title: "Velocity"}))
		les := state.Tree[0].Lessons[0]
		if les.IsNew || course.IsTempID(les.ID) || les.Title != "Velocity" {
			t.Fatalf("saved lesson = %+v; want permanent %q", les, "Velocity")
		}
	})

	t.Run("toggle collapses a module", func(t *testing.T) {
		_, state := editorCall(t, http.MethodPost, base+"/modules/"+modID+"/toggle", token)
		if state.Tree[0].Expanded {
			t.Error("module still expanded after toggle")
		}
		_, state = editorCall(t, http.MethodPost, base+"/modules/"+modID+"/toggle", token)
		if !state.Tree[0].Expanded {
			t.Error("module still collapsed after second toggle")
		}
	})

	t.Run("module reorder keeps positions dense", func(t *testing.T) {
		// add two more modules through the inline flow
		for _, title := range []string{"Dynamics", "Energy"} {
			_, state := editorCall(t, http.MethodPost, base+"/modules", token)
			tmp := state.Tree[len(state.Tree)-1]
			editorCall(t, http.MethodPut, base+"/modules/"+tmp.ID, token,
				marchallObj(t, echoapi.InlineSaveRequest{Title: title}))
		}

		// drag the first module to the end
		body := marchallObj(t, course.ReorderRequest{
			Kind:        course.ReorderModule,
			Source:      course.DragLocation{ContainerID: crs.ID, Index: 0},
			Destination: &course.DragLocation{ContainerID: crs.ID, Index: 2},
		})
		_, state := editorCall(t, http.MethodPost, base+"/reorder", token, body)

		titles := make([]string, 0, len(state.Tree))
		for _, m := range state.Tree {
			titles = append(titles, m.Title)
		}
		want := fmt.Sprintf("%v", []string{"Dynamics", "Energy", "Kinematics"})
		if got := fmt.Sprintf("%v", titles); got != want {
			t.Errorf("order = %v; want %v", got, want)
		}
		assertDense(t, state.Tree)
		if len(state.Alerts) != 0 {
			t.Errorf("alerts = %v; want none", state.Alerts)
		}
	})

	t.Run("cancelled drag is a no-op", func(t *testing.T) {
		_, before := editorCall(t, http.MethodGet, base, token)
		body := marchallObj(t, course.ReorderRequest{
			Kind:   course.ReorderModule,
			Source: course.DragLocation{ContainerID: crs.ID, Index: 0},
		})
		_, after := editorCall(t, http.MethodPost, base+"/reorder", token, body)
		if len(after.Tree) != len(before.Tree) || after.Tree[0].ID != before.Tree[0].ID {
			t.Error("tree changed on a cancelled drag")
		}
	})

	t.Run("module delete requires confirm and cascades", func(t *testing.T) {
		rec, _ := editorCall(t, http.MethodDelete, base+"/modules/"+modID, token)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want 400", rec.Code)
		}

		_, state := editorCall(t, http.MethodDelete, base+"/modules/"+modID+"?confirm=true", token)
		for _, m := range state.Tree {
			if m.ID == modID {
				t.Error("deleted module still in tree")
			}
		}
		assertDense(t, state.Tree)
	})

	t.Run("metadata update reconciles subjects", func(t *testing.T) {
		body := marchallObj(t, course.CourseMetadata{
			Title:      "Physics 101 (Revised)",
			Status:     course.StatusPublished,
			SubjectIDs: []string{"sub-mechanics"},
		})
		_, state := editorCall(t, http.MethodPut, base+"/metadata", token, body)
		if state.Course.Title != "Physics 101 (Revised)" || state.Course.Status != course.StatusPublished {
			t.Errorf("course = %+v; want revised published course", state.Course)
		}
		if len(state.Course.SubjectIDs) != 1 || state.Course.SubjectIDs[0] != "sub-mechanics" {
			t.Errorf("subjects = %v; want [sub-mechanics]", state.Course.SubjectIDs)
		}
	})
}
