package echoapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/easystudy/backend/core/user"
)

func Test_userApi_register(t *testing.T) {
	app, svc, repo := initApp(t)
	_ = registerUser(t, svc, user.RoleTutor, "taken@test.cd")

	newBody := func(mutate func(m map[string]interface{})) []byte {
		m := map[string]interface{}{
			"first_name": "Awa",
			"last_name":  "Lot",
			"email":      "awa@test.cd",
			"phone":      "+243 970 000 000",
			"password":   "LeSecret!",
		}
		mutate(m)
		return marshallObj(t, m)
	}

	t.Run("missing fields", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/register", []byte("{}"))
		app.ServeHTTP(rec, req)

		resp := checkEnvelope(t, rec, http.StatusBadRequest, "All fields are required.")
		fields, ok := resp["errors"].(map[string]interface{})
		if !ok {
			t.Fatalf("errors missing from response: %s", rec.Body.String())
		}
		for _, field := range []string{"first_name", "last_name", "email", "phone", "password"} {
			if _, ok := fields[field]; !ok {
				t.Errorf("errors[%q] missing", field)
			}
		}
	})

	t.Run("unknown user type", func(t *testing.T) {
		body := newBody(func(m map[string]interface{}) { m["user_type"] = "admin" })
		req, rec := newRequest(http.MethodPost, "/v1/auth/register", body)
		app.ServeHTTP(rec, req)

		checkEnvelope(t, rec, http.StatusBadRequest, "All fields are required.")
	})

	t.Run("student starts pending with an admin code", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/register", newBody(func(m map[string]interface{}) {}))
		app.ServeHTTP(rec, req)

		resp := checkEnvelope(t, rec, http.StatusCreated, "User registered successfully. Awaiting approval.")
		code, _ := resp["admin_code"].(string)
		if !user.AdminCodeRegex.MatchString(code) {
			t.Errorf("admin_code = %q, want match for %s", code, user.AdminCodeRegex)
		}

		id, _ := resp["user_id"].(string)
		usr, err := repo.GetUserByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetUserByID() failed: %v", err)
		}
		if usr.IsActive {
			t.Error("new student should be pending")
		}
	})

	t.Run("tutor is active right away", func(t *testing.T) {
		body := newBody(func(m map[string]interface{}) {
			m["email"] = "tutor@test.cd"
			m["user_type"] = user.RoleTutor
		})
		req, rec := newRequest(http.MethodPost, "/v1/auth/register", body)
		app.ServeHTTP(rec, req)

		resp := checkEnvelope(t, rec, http.StatusCreated, "Tutor registered successfully. You can now log in.")
		if _, ok := resp["admin_code"]; ok {
			t.Error("tutor should not get an admin code")
		}

		usr, err := repo.GetUserByEmail(context.Background(), "tutor@test.cd")
		if err != nil {
			t.Fatalf("GetUserByEmail() failed: %v", err)
		}
		if !usr.IsActive {
			t.Error("new tutor should be active")
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := newBody(func(m map[string]interface{}) { m["email"] = "taken@test.cd" })
		req, rec := newRequest(http.MethodPost, "/v1/auth/register", body)
		app.ServeHTTP(rec, req)

		checkEnvelope(t, rec, http.StatusConflict, "Email already exists.")
	})

	t.Run("email lookup is case-insensitive", func(t *testing.T) {
		body := newBody(func(m map[string]interface{}) { m["email"] = " TAKEN@Test.CD " })
		req, rec := newRequest(http.MethodPost, "/v1/auth/register", body)
		app.ServeHTTP(rec, req)

		checkEnvelope(t, rec, http.StatusConflict, "Email already exists.")
	})
}

func Test_userApi_login(t *testing.T) {
	app, svc, _ := initApp(t)

	tutor := registerUser(t, svc, user.RoleTutor, "tutor@test.cd")
	_ = registerUser(t, svc, user.RoleStudent, "pending@test.cd")

	approved := registerUser(t, svc, user.RoleStudent, "approved@test.cd")
	if _, err := svc.Approve(context.Background(), approved.ID); err != nil {
		t.Fatalf("Approve() failed: %v", err)
	}

	creds := func(email, pwd, role string) []byte {
		m := map[string]string{"email": email, "password": pwd}
		if role != "" {
			m["user_type"] = role
		}
		return marshallObj(t, m)
	}

	tests := []httpTest{
		{name: "missing password", body: creds("tutor@test.cd", "", ""), wantCode: http.StatusBadRequest, extra: "All fields are required."},
		{name: "unknown email", body: creds("nope@test.cd", "LeSecret!", ""), wantCode: http.StatusUnauthorized, extra: "Invalid credentials."},
		{name: "wrong password", body: creds("tutor@test.cd", "NotTheSecret", ""), wantCode: http.StatusUnauthorized, extra: "Invalid credentials."},
		{name: "user type mismatch", body: creds("tutor@test.cd", "LeSecret!", user.RoleStudent), wantCode: http.StatusUnauthorized, extra: "Invalid credentials or user type."},
		{name: "pending student", body: creds("pending@test.cd", "LeSecret!", user.RoleStudent), wantCode: http.StatusForbidden, extra: "Account is inactive. Please contact tutor for approval."},
		{name: "ok: tutor", body: creds("tutor@test.cd", "LeSecret!", user.RoleTutor), wantCode: http.StatusOK, extra: "Login successful"},
		{name: "ok: approved student", body: creds("approved@test.cd", "LeSecret!", user.RoleStudent), wantCode: http.StatusOK, extra: "Login successful"},
		{name: "ok: no user type", body: creds("tutor@test.cd", "LeSecret!", ""), wantCode: http.StatusOK, extra: "Login successful"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			app.ServeHTTP(rec, req)

			resp := checkEnvelope(t, rec, tt.wantCode, tt.extra.(string))
			if tt.wantCode != http.StatusOK {
				return
			}

			if token, _ := resp["token"].(string); token == "" {
				t.Error("token missing from response")
			}
			usrData, ok := resp["user"].(map[string]interface{})
			if !ok {
				t.Fatalf("user missing from response: %s", rec.Body.String())
			}
			if _, ok := usrData["password_hash"]; ok {
				t.Error("password hash leaked in response")
			}
		})
	}

	t.Run("login token grants access", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/login", creds("tutor@test.cd", "LeSecret!", ""))
		app.ServeHTTP(rec, req)
		resp := checkEnvelope(t, rec, http.StatusOK, "Login successful")

		token := resp["token"].(string)
		req, rec = newAuthRequest(http.MethodGet, "/v1/auth/me", token)
		app.ServeHTTP(rec, req)
		resp = checkEnvelope(t, rec, http.StatusOK, "OK")

		usrData := resp["user"].(map[string]interface{})
		if email, _ := usrData["email"].(string); email != tutor.Email {
			t.Errorf("email = %q, want %q", email, tutor.Email)
		}
	})
}

func Test_userApi_me(t *testing.T) {
	app, svc, _ := initApp(t)
	tutor := registerUser(t, svc, user.RoleTutor, "tutor@test.cd")

	t.Run("no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/auth/me")
		app.ServeHTTP(rec, req)
		checkEnvelope(t, rec, http.StatusUnauthorized, "missing or malformed jwt")
	})

	t.Run("garbage token", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/auth/me", "lmaooolol")
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %v, wantCode %v", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/auth/me", getToken(t, tutor))
		app.ServeHTTP(rec, req)

		resp := checkEnvelope(t, rec, http.StatusOK, "OK")
		usrData := resp["user"].(map[string]interface{})
		if id, _ := usrData["id"].(string); id != tutor.ID {
			t.Errorf("id = %q, want %q", id, tutor.ID)
		}
		if role, _ := usrData["user_type"].(string); role != user.RoleTutor {
			t.Errorf("user_type = %q, want %q", role, user.RoleTutor)
		}
	})
}

func Test_userApi_refresh(t *testing.T) {
	app, svc, _ := initApp(t)

	tutor := registerUser(t, svc, user.RoleTutor, "tutor@test.cd")
	pending := registerUser(t, svc, user.RoleStudent, "pending@test.cd")

	t.Run("no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/refresh")
		app.ServeHTTP(rec, req)
		checkEnvelope(t, rec, http.StatusUnauthorized, "missing or malformed jwt")
	})

	t.Run("refresh window closed", func(t *testing.T) {
		oldIat := time.Now().Add(-5 * time.Hour).Unix()
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/refresh", getToken(t, tutor, oldIat))
		app.ServeHTTP(rec, req)
		checkEnvelope(t, rec, http.StatusForbidden, "Refresh has expired.")
	})

	t.Run("inactive user cannot refresh", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/refresh", getToken(t, pending))
		app.ServeHTTP(rec, req)
		checkEnvelope(t, rec, http.StatusForbidden, "Account is inactive. Please contact tutor for approval.")
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/refresh", getToken(t, tutor))
		app.ServeHTTP(rec, req)

		resp := checkEnvelope(t, rec, http.StatusOK, "Token refreshed")
		if token, _ := resp["token"].(string); token == "" {
			t.Error("token missing from response")
		}
	})
}

func Test_userApi_tutorPortal(t *testing.T) {
	app, svc, repo := initApp(t)

	tutor := registerUser(t, svc, user.RoleTutor, "tutor@test.cd")
	studentA := registerUser(t, svc, user.RoleStudent, "a@test.cd")
	studentB := registerUser(t, svc, user.RoleStudent, "b@test.cd")

	tutorToken := getToken(t, tutor)

	t.Run("students are locked out", func(t *testing.T) {
		if _, err := svc.Approve(context.Background(), studentB.ID); err != nil {
			t.Fatalf("Approve() failed: %v", err)
		}
		studentToken := getToken(t, studentB)

		for _, tt := range []httpTest{
			{name: "pending", method: http.MethodGet, path: "/v1/tutor/students/pending"},
			{name: "approve", method: http.MethodPost, path: "/v1/tutor/students/" + studentA.ID + "/approve"},
			{name: "reject", method: http.MethodPost, path: "/v1/tutor/students/" + studentA.ID + "/reject"},
		} {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(tt.method, tt.path, studentToken)
				app.ServeHTTP(rec, req)
				checkEnvelope(t, rec, http.StatusForbidden, "Permission denied.")
			})
		}
	})

	t.Run("pending list shows admin codes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/tutor/students/pending", tutorToken)
		app.ServeHTTP(rec, req)

		resp := checkEnvelope(t, rec, http.StatusOK, "OK")
		students, ok := resp["students"].([]interface{})
		if !ok {
			t.Fatalf("students missing from response: %s", rec.Body.String())
		}
		if len(students) != 1 {
			t.Fatalf("len(students) = %d, want 1", len(students))
		}
		pending := students[0].(map[string]interface{})
		if email, _ := pending["email"].(string); email != studentA.Email {
			t.Errorf("email = %q, want %q", email, studentA.Email)
		}
		code, _ := pending["admin_code"].(string)
		if !user.AdminCodeRegex.MatchString(code) {
			t.Errorf("admin_code = %q, want match for %s", code, user.AdminCodeRegex)
		}
	})

	t.Run("approve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/tutor/students/"+studentA.ID+"/approve", tutorToken)
		app.ServeHTTP(rec, req)
		checkEnvelope(t, rec, http.StatusOK, "Student approved successfully.")

		usr, err := repo.GetUserByID(context.Background(), studentA.ID)
		if err != nil {
			t.Fatalf("GetUserByID() failed: %v", err)
		}
		if !usr.IsActive {
			t.Error("approved student should be active")
		}
	})

	t.Run("approve twice conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/tutor/students/"+studentA.ID+"/approve", tutorToken)
		app.ServeHTTP(rec, req)
		checkEnvelope(t, rec, http.StatusConflict, "Account is not awaiting approval.")
	})

	t.Run("reject approved student conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/tutor/students/"+studentA.ID+"/reject", tutorToken)
		app.ServeHTTP(rec, req)
		checkEnvelope(t, rec, http.StatusConflict, "Account is not awaiting approval.")
	})

	t.Run("approve unknown student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/tutor/students/nope/approve", tutorToken)
		app.ServeHTTP(rec, req)
		checkEnvelope(t, rec, http.StatusNotFound, "User not found.")
	})

	t.Run("reject removes the account", func(t *testing.T) {
		rejected := registerUser(t, svc, user.RoleStudent, "c@test.cd")

		req, rec := newAuthRequest(http.MethodPost, "/v1/tutor/students/"+rejected.ID+"/reject", tutorToken)
		app.ServeHTTP(rec, req)
		checkEnvelope(t, rec, http.StatusOK, "Student rejected successfully.")

		if _, err := repo.GetUserByID(context.Background(), rejected.ID); err != user.ErrNotFound {
			t.Errorf("GetUserByID() error = %v, want %v", err, user.ErrNotFound)
		}

		req, rec = newAuthRequest(http.MethodPost, "/v1/tutor/students/"+rejected.ID+"/approve", tutorToken)
		app.ServeHTTP(rec, req)
		checkEnvelope(t, rec, http.StatusNotFound, "User not found.")
	})
}
