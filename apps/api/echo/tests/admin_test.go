package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/darasalearn/darasa/apps/api/echo"
	"github.com/darasalearn/darasa/core/user"
	"github.com/darasalearn/darasa/core/violation"
)

func resetAdminCheck() {
	adminCheckFn = func(ctx context.Context, id string) (bool, error) { return false, nil }
}

func resolveAccess(t *testing.T, token string) (int, echoapi.AccessDecisionResponse) {
	t.Helper()

	req, rec := newAuthRequest(http.MethodGet, "/v1/admin/access", token)
	app.ServeHTTP(rec, req)

	var resp echoapi.AccessDecisionResponse
	if rec.Code == http.StatusOK || rec.Code == http.StatusForbidden {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling decision: %v", err)
		}
	}
	return rec.Code, resp
}

func violationsFor(t *testing.T, userID string) []violation.Violation {
	t.Helper()

	vv, err := vioRepo.QueryViolations(context.Background(), &violation.QueryFilter{UserID: userID}, nil)
	if err != nil {
		t.Fatalf("querying violations: %v", err)
	}
	return vv
}

func Test_adminAccess_resolution(t *testing.T) {
	db.Reset()
	defer resetAdminCheck()

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/admin/access")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("primary metadata flag grants access", func(t *testing.T) {
		resetAdminCheck()
		usr := createUser(t, "Meta Admin", "metaadmin", "meta@test.cd", nil, true, user.Metadata{"is_admin": true})

		code, resp := resolveAccess(t, getToken(t, usr))
		if code != http.StatusOK || resp.Status != user.DecisionAdmin {
			t.Errorf("code = %v, status = %q; want 200/admin", code, resp.Status)
		}
	})

	t.Run("legacy metadata flag grants access", func(t *testing.T) {
		resetAdminCheck()
		usr := createUser(t, "Legacy Admin", "legacyadmin", "legacy@test.cd", nil, true, user.Metadata{"admin": "true"})

		code, resp := resolveAccess(t, getToken(t, usr))
		if code != http.StatusOK || resp.Status != user.DecisionAdmin {
			t.Errorf("code = %v, status = %q; want 200/admin", code, resp.Status)
		}
	})

	t.Run("admin role grants access", func(t *testing.T) {
		resetAdminCheck()
		usr := createAdmin(t, "roleadmin")

		code, resp := resolveAccess(t, getToken(t, usr))
		if code != http.StatusOK || resp.Status != user.DecisionAdmin {
			t.Errorf("code = %v, status = %q; want 200/admin", code, resp.Status)
		}
	})

	t.Run("remote check grants access as last resort", func(t *testing.T) {
		usr := createUser(t, "Remote Admin", "remoteadmin", "remote@test.cd", nil, true, nil)
		adminCheckFn = func(ctx context.Context, id string) (bool, error) { return id == usr.ID, nil }

		code, resp := resolveAccess(t, getToken(t, usr))
		if code != http.StatusOK || resp.Status != user.DecisionAdmin {
			t.Errorf("code = %v, status = %q; want 200/admin", code, resp.Status)
		}
	})

	t.Run("remote check error denies and records a violation", func(t *testing.T) {
		usr := createUser(t, "Denied", "denied01", "denied@test.cd", nil, true, nil)
		adminCheckFn = func(ctx context.Context, id string) (bool, error) {
			return false, context.DeadlineExceeded
		}

		code, resp := resolveAccess(t, getToken(t, usr))
		if code != http.StatusOK || resp.Status != user.DecisionNotAdmin {
			t.Errorf("code = %v, status = %q; want 200/not_admin", code, resp.Status)
		}
		vv := violationsFor(t, usr.ID)
		if len(vv) != 1 {
			t.Fatalf("violations = %d; want 1", len(vv))
		}
		if vv[0].Kind != violation.KindUnauthorizedAdmin {
			t.Errorf("kind = %q; want %q", vv[0].Kind, violation.KindUnauthorizedAdmin)
		}
	})

	t.Run("timeout reports unknown with diagnostic", func(t *testing.T) {
		usr := createUser(t, "Slow", "slowpoke", "slow@test.cd", nil, true, user.Metadata{"plan": "free"})
		adminCheckFn = func(ctx context.Context, id string) (bool, error) {
			time.Sleep(2 * time.Second)
			return true, nil
		}

		code, resp := resolveAccess(t, getToken(t, usr))
		if code != http.StatusOK {
			t.Fatalf("code = %v; want 200", code)
		}
		if resp.Status != user.DecisionUnknown || !resp.TimedOut {
			t.Errorf("status = %q, timedOut = %v; want unknown/true", resp.Status, resp.TimedOut)
		}
		if resp.Diagnostic == nil || resp.Diagnostic.UserID != usr.ID || resp.Diagnostic.Email != usr.Email {
			t.Errorf("diagnostic = %+v; want user %s", resp.Diagnostic, usr.ID)
		}
		// a timeout is not a denial; no violation recorded
		if vv := violationsFor(t, usr.ID); len(vv) != 0 {
			t.Errorf("violations = %d; want 0", len(vv))
		}
	})
}

func Test_adminMiddleware_guardsAdminEndpoints(t *testing.T) {
	db.Reset()
	resetAdminCheck()

	student := createUser(t, "Student", "student1", "student@test.cd", []string{user.RoleStudent}, true, nil)
	admin := createAdmin(t, "gatekeeper")

	t.Run("non-admin is refused and recorded", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users", getToken(t, student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

		vv := violationsFor(t, student.ID)
		if len(vv) != 1 {
			t.Fatalf("violations = %d; want 1", len(vv))
		}
		if vv[0].Detail != "GET /v1/users" {
			t.Errorf("detail = %q; want %q", vv[0].Detail, "GET /v1/users")
		}
	})

	t.Run("admin passes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users", getToken(t, admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v; want 200", rec.Code)
		}
	})
}

func Test_adminAccessRequest(t *testing.T) {
	db.Reset()
	resetAdminCheck()

	usr := createUser(t, "Wantsin", "wantsin1", "wantsin@test.cd", []string{user.RoleStudent}, true, nil)
	token := getToken(t, usr)

	tests := []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/v1/admin/access-request",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "reason required", method: http.MethodPost, path: "/v1/admin/access-request", token: token,
			body:     marchallObj(t, map[string]string{"reason": ""}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"reason": "this field is required"}),
		},
		{
			name: "request forwarded", method: http.MethodPost, path: "/v1/admin/access-request", token: token,
			body:     marchallObj(t, map[string]string{"reason": "I run the math department."}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Your request has been sent to the platform owners for review."}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
