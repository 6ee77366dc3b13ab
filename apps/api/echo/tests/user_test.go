package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/darasalearn/darasa/apps/api/echo"
	"github.com/darasalearn/darasa/core/user"
)

func Test_userApi_login(t *testing.T) {
	db.Reset()
	resetAdminCheck()

	usr := createUser(t, "Jo Dala", "jodala1", "jo@test.cd", []string{user.RoleStudent}, true, nil)
	inactive := createUser(t, "Gone", "gone001", "gone@test.cd", []string{user.RoleStudent}, false, nil)
	_ = inactive

	tests := []httpTest{
		{
			name: "username and password required",
			body: marchallObj(t, echoapi.LoginRequest{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username": "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name: "unknown user",
			body: marchallObj(t, echoapi.LoginRequest{Username: "whodis", Password: "LePass123"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password",
			body: marchallObj(t, echoapi.LoginRequest{Username: usr.Username, Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account",
			body: marchallObj(t, echoapi.LoginRequest{Username: "gone001", Password: "LePass123"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("login by username or email", func(t *testing.T) {
		for _, uname := range []string{usr.Username, usr.Email} {
			req, rec := newRequest(http.MethodPost, "/v1/users/login",
				marchallObj(t, echoapi.LoginRequest{Username: uname, Password: "LePass123"}))
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
			}

			var resp echoapi.LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Token == "" {
				t.Error("empty token")
			}
		}
	})
}

func Test_userApi_tokenRefresh(t *testing.T) {
	db.Reset()
	resetAdminCheck()

	usr := createUser(t, "Fresh", "freshie1", "fresh@test.cd", []string{user.RoleStudent}, true, nil)
	token := getToken(t, usr)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}

	var resp echoapi.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Token == "" {
		t.Error("empty token")
	}
}

func Test_userApi_register(t *testing.T) {
	db.Reset()
	resetAdminCheck()

	admin := createAdmin(t, "registrar")
	student := createUser(t, "Student", "student9", "student9@test.cd", []string{user.RoleStudent}, true, nil)

	newUsr := func(uname string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name:            "New Kid",
			Username:        uname,
			Email:           uname + "@test.cd",
			Password:        "V3ry$ecret",
			PasswordConfirm: "V3ry$ecret",
			Roles:           roles,
		})
	}

	t.Run("admin required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, student), newUsr("newkid01"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("admin registers a teacher", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, admin), newUsr("teach001", user.RoleTeacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}

		var created user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatal(err)
		}
		if created.ID == "" || !created.IsTeacher() {
			t.Errorf("created = %+v; want teacher with id", created)
		}
	})

	t.Run("cannot grant a role above your own", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, admin), newUsr("boss0001", user.RoleAdminOwner))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		}, rec)
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, admin), marchallObj(t, user.NewUser{
			Name:            "Copy Cat",
			Username:        student.Username,
			Email:           "copycat@test.cd",
			Password:        "V3ry$ecret",
			PasswordConfirm: "V3ry$ecret",
		}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want 400", rec.Code)
		}
	})
}

func Test_userApi_detail(t *testing.T) {
	db.Reset()
	resetAdminCheck()

	admin := createAdmin(t, "detailadmin")
	usr := createUser(t, "Own Er", "owner123", "owner123@test.cd", []string{user.RoleStudent}, true, nil)
	other := createUser(t, "Other", "other123", "other123@test.cd", []string{user.RoleStudent}, true, nil)

	t.Run("user can fetch themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+usr.ID, getToken(t, usr))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallObj(t, usr)}, rec)
	})

	t.Run("user cannot fetch someone else", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, getToken(t, usr))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})

	t.Run("admin can fetch anyone", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallObj(t, other)}, rec)
	})

	t.Run("non-admin cannot change roles", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+usr.ID, getToken(t, usr),
			marchallObj(t, map[string]interface{}{"roles": []string{user.RoleTeacher}}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("admin cannot delete themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+admin.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("admin deletes another user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+other.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("code = %v; want 204", rec.Code)
		}
	})
}

func Test_userApi_query_filters(t *testing.T) {
	db.Reset()
	resetAdminCheck()

	admin := createAdmin(t, "queryadmin")
	teacher := createUser(t, "Teacher", "teacher1", "teacher1@test.cd", []string{user.RoleTeacher}, true, nil)
	_ = createUser(t, "Student", "student2", "student2@test.cd", []string{user.RoleStudent}, true, nil)
	token := getToken(t, admin)

	t.Run("filter by role", func(t *testing.T) {
		v := url.Values{}
		v.Add("role", user.RoleTeacher)
		req, rec := newAuthRequest(http.MethodGet, "/v1/users?"+v.Encode(), token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallList(t, teacher)}, rec)
	})

	t.Run("search matches name", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users?search=teach", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallList(t, teacher)}, rec)
	})

	t.Run("unknown search is empty", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users?search=zzz", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marchallList(t)}, rec)
	})
}
