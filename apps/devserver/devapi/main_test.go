package devapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/elimucloud/dawati/core"
	"github.com/elimucloud/dawati/core/resource"
	emailsvc "github.com/elimucloud/dawati/services/email"
	logsvc "github.com/elimucloud/dawati/services/logger"
	inmemdb "github.com/elimucloud/dawati/storage/database/inmem"
)

var errNotAuthenticated = httpErr{Error: "not authenticated"}

type testApp struct {
	server Server
	repo   resource.Repository
	authn  *Authenticator
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := core.NewConfig()
	conf.TestMode = true
	logger := logsvc.NewConsoleLogger(log.New(io.Discard, "", 0))
	logger.Enable(false)

	repo := inmemdb.NewRecordRepository(inmemdb.Open())
	svc := NewService(repo, emailsvc.NewConsoleService(conf), logger)

	authn := NewAuthenticator(conf)
	for _, acct := range []struct {
		username string
		roles    []string
	}{
		{"principal", []string{resource.RoleAdminPrincipal}},
		{"manager", []string{resource.RoleManager}},
		{"teacher", []string{resource.RoleTeacher}},
		{"student", []string{resource.RoleStudent}},
	} {
		if err := authn.Register(acct.username, acct.username+"@test.cd", "mdr", acct.roles); err != nil {
			t.Fatalf("Register() failed: %v", err)
		}
	}

	server := NewServer(&Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		Service:        svc,
		Authenticator:  authn,
	})
	return &testApp{server: server, repo: repo, authn: authn}
}

func (app *testApp) getToken(t *testing.T, username string) string {
	t.Helper()
	claims, err := app.authn.authenticate(username, "mdr")
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	token, err := app.authn.GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func createRecord(t *testing.T, repo resource.Repository, kind resource.Kind, name string, createdAt ...time.Time) resource.Record {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	rec := resource.Record{
		Kind:      kind,
		Name:      name,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if kind.IsPerson() {
		rec.Role = resource.RoleTeacher
		rec.WorkStartedAt = null.TimeFrom(tstamp)
	}
	rec, err := repo.CreateRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("createRecord() failed: %v", err)
	}
	return rec
}

type httpErr struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
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
	app.server.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
