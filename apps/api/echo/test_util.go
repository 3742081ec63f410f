package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/easystudy/backend/core"
	"github.com/easystudy/backend/core/user"
	emailsvc "github.com/easystudy/backend/services/email"
	logsvc "github.com/easystudy/backend/services/logger"
	dummydb "github.com/easystudy/backend/storage/database/dummy"
)

var testConf = &core.Config{
	AppName:         "EasyStudy",
	Env:             "TEST",
	TestMode:        true,
	SecretKey:       []byte("secret"),
	FrontendBaseURL: "http://localhost:3000",
	Server: core.ServerConfig{
		JWTExpirationDelta:        10 * time.Minute,
		JWTRefreshExpirationDelta: 4 * time.Hour,
	},
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	extra    interface{}
}

func initApp(t *testing.T) (http.Handler, *user.Service, user.Repository) {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	repo := dummydb.NewUserRepository(db)
	svc := user.NewService(repo, emailsvc.NewConsoleServiceMock(testConf), testConf)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), testConf)
	logger.Enable(false)

	srv := NewServer(
		ServerDeps{
			Conf:           testConf,
			Logger:         logger,
			UserSvc:        svc,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
		make(chan os.Signal, 1),
	)
	return srv, svc, repo
}

func registerUser(t *testing.T, svc *user.Service, role, email string) user.User {
	t.Helper()
	usr, err := svc.Register(context.Background(), user.NewUser{
		FirstName: "Awa",
		LastName:  "Lot",
		Email:     email,
		Phone:     "+243 970 000 000",
		Password:  "LeSecret!",
		UserType:  role,
	})
	if err != nil {
		t.Fatalf("registerUser() failed: %v", err)
	}
	return usr
}

func getToken(t *testing.T, usr user.User, origIat ...int64) string {
	t.Helper()
	token, err := user.GenerateToken(user.GetUserClaims(usr, origIat...))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

// decodeEnvelope parses the `{success, message, ...}` response body.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	resp := make(map[string]interface{})
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decodeEnvelope() failed: %v; body: %s", err, rec.Body.String())
	}
	return resp
}

func checkEnvelope(t *testing.T, rec *httptest.ResponseRecorder, wantCode int, wantMessage string) map[string]interface{} {
	t.Helper()
	if rec.Code != wantCode {
		t.Errorf("code = %v, wantCode %v; body: %s", rec.Code, wantCode, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if success, _ := resp["success"].(bool); success != (wantCode < 400) {
		t.Errorf("success = %v, want %v", resp["success"], wantCode < 400)
	}
	if wantMessage != "" {
		if msg, _ := resp["message"].(string); msg != wantMessage {
			t.Errorf("message = %q, want %q", msg, wantMessage)
		}
	}
	return resp
}
