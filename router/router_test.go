package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookkeeping/config"
	"bookkeeping/database"
	"bookkeeping/services"
	"bookkeeping/utils"

	"github.com/beevik/etree"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	cookie *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.NewDatabase(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"}, utils.DiscardLogger())
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		Auth: config.AuthConfig{
			Secret:     "test-secret",
			SessionTTL: time.Hour,
			CookieName: "sessionid",
			BcryptCost: bcrypt.MinCost,
		},
	}
	engine := SetupRouter(Dependencies{
		Config:   cfg,
		DB:       db.DB,
		Notifier: services.NopNotifier{},
		Logger:   utils.DiscardLogger(),
		Metrics:  utils.NewMetrics(),
	})
	return &testServer{t: t, engine: engine}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			s.t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	rr := httptest.NewRecorder()
	s.engine.ServeHTTP(rr, req)

	for _, c := range rr.Result().Cookies() {
		if c.Name == "sessionid" {
			if c.MaxAge < 0 {
				s.cookie = nil
			} else {
				s.cookie = c
			}
		}
	}
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rr.Body.String(), err)
	}
	return body
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", rr.Code, want, rr.Body.String())
	}
}

func (s *testServer) balance() string {
	s.t.Helper()
	rr := s.do(http.MethodGet, "/api/user/account", nil)
	expectStatus(s.t, rr, http.StatusOK)
	accounts := decode(s.t, rr)["Account"].([]interface{})
	return accounts[0].(map[string]interface{})["account_balance"].(string)
}

func TestIndexAndAuthError(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodGet, "/", nil)
	expectStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "Hello, it's my Bookkeeping!" {
		t.Errorf("body = %q", rr.Body.String())
	}

	rr = s.do(http.MethodGet, "/api/transaction/latest", nil)
	expectStatus(t, rr, http.StatusFound)
	if loc := rr.Header().Get("Location"); !strings.HasPrefix(loc, "/auth_error?next=") {
		t.Errorf("Location = %q", loc)
	}

	rr = s.do(http.MethodGet, "/auth_error", nil)
	expectStatus(t, rr, http.StatusUnauthorized)
	if decode(t, rr)["Authenticated"] != "false" {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestLedgerFlow(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/api/user/register", map[string]string{
		"username": "alice", "password": "pw1", "email": "alice@example.com",
	})
	expectStatus(t, rr, http.StatusOK)
	if decode(t, rr)["register"] == nil || s.cookie == nil {
		t.Fatalf("register response = %s, cookie = %v", rr.Body.String(), s.cookie)
	}
	if got := s.balance(); got != "0.00" {
		t.Errorf("initial balance = %s", got)
	}

	rr = s.do(http.MethodPost, "/api/categories", map[string]interface{}{"category_type": 1, "category_name": "salary"})
	expectStatus(t, rr, http.StatusCreated)

	rr = s.do(http.MethodPost, "/api/transaction/add", map[string]interface{}{
		"transaction_type":     1,
		"transaction_category": "salary",
		"transaction_date":     "2024-01-01",
		"transaction_sum":      "100.00",
		"transaction_comment":  "january",
	})
	expectStatus(t, rr, http.StatusOK)
	id := int(decode(t, rr)["transaction"].(float64))
	if got := s.balance(); got != "100.00" {
		t.Errorf("balance after add = %s", got)
	}

	rr = s.do(http.MethodGet, "/api/transaction/latest", nil)
	expectStatus(t, rr, http.StatusOK)
	transactions := decode(t, rr)["transactions"].([]interface{})
	if len(transactions) != 1 {
		t.Fatalf("transactions = %v", transactions)
	}
	first := transactions[0].(map[string]interface{})
	if first["transaction_category__category_name"] != "salary" || first["transaction_sum"] != "100.00" {
		t.Errorf("transaction = %v", first)
	}

	rr = s.do(http.MethodGet, "/api/transaction/filter?transaction_type=Income&transaction_date=2024-01-01", nil)
	expectStatus(t, rr, http.StatusOK)
	filtered := decode(t, rr)["transactions"].([]interface{})
	if len(filtered) != 1 {
		t.Errorf("filtered = %v", filtered)
	} else if _, hasID := filtered[0].(map[string]interface{})["id"]; hasID {
		t.Errorf("filter projection must not include id")
	}

	rr = s.do(http.MethodGet, "/api/transaction/statistic?transaction_start_date=2024-01-01&transaction_end_date=2024-12-31", nil)
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `{"income":100}`) {
		t.Errorf("statistic = %s", rr.Body.String())
	}

	rr = s.do(http.MethodGet, "/api/transaction/export", nil)
	expectStatus(t, rr, http.StatusOK)
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rr.Body.Bytes()); err != nil {
		t.Fatalf("export is not xml: %v", err)
	}
	if n := len(doc.FindElements("//transaction")); n != 1 {
		t.Errorf("export has %d transactions", n)
	}

	rr = s.do(http.MethodPost, "/api/transaction/9999/delete", nil)
	expectStatus(t, rr, http.StatusNotFound)

	rr = s.do(http.MethodPost, fmt.Sprintf("/api/transaction/%d/delete", id), nil)
	expectStatus(t, rr, http.StatusOK)
	if int(decode(t, rr)["transaction"].(float64)) != id {
		t.Errorf("delete response = %s", rr.Body.String())
	}
	if got := s.balance(); got != "0.00" {
		t.Errorf("balance after delete = %s", got)
	}
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/user/register", map[string]string{
		"username": "bob", "password": "pw1", "email": "bob@example.com",
	})

	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"malformed json", http.MethodPost, "/api/transaction/add", "{"},
		{"unknown category", http.MethodPost, "/api/transaction/add", map[string]interface{}{
			"transaction_type": 0, "transaction_category": "nope", "transaction_date": "2024-01-01",
			"transaction_sum": 1, "transaction_comment": "",
		}},
		{"missing field", http.MethodPost, "/api/planning/transaction/add", map[string]interface{}{
			"transaction_type": 0, "transaction_category": "None", "transaction_date": "2024-01-01",
		}},
		{"statistic without end date", http.MethodGet, "/api/transaction/statistic?transaction_start_date=2024-01-01", nil},
		{"filter with bad date", http.MethodGet, "/api/transaction/filter?transaction_date=yesterday", nil},
		{"duplicate username", http.MethodPost, "/api/user/register", map[string]string{
			"username": "bob", "password": "x", "email": "bob2@example.com",
		}},
		{"delete default category", http.MethodPost, "/api/categories/0/delete", nil},
		{"password over 72 bytes", http.MethodPost, "/api/user/register", map[string]string{
			"username": "dave", "password": strings.Repeat("p", 80), "email": "dave@example.com",
		}},
		{"sum with huge exponent", http.MethodPost, "/api/transaction/add", map[string]interface{}{
			"transaction_type": 1, "transaction_category": "None", "transaction_date": "2024-01-01",
			"transaction_sum": json.Number("1e20000000"), "transaction_comment": "",
		}},
		{"planned sum with tiny exponent", http.MethodPost, "/api/planning/transaction/add", map[string]interface{}{
			"transaction_type": 1, "transaction_category": "None", "transaction_date": "2024-01-01",
			"transaction_sum": json.Number("1e-20000000"), "transaction_comment": "",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := s.do(tc.method, tc.path, tc.body)
			expectStatus(t, rr, http.StatusBadRequest)
			if decode(t, rr)["error"] != "Bad request" {
				t.Errorf("body = %s", rr.Body.String())
			}
		})
	}
}

func TestLoginLogout(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/user/register", map[string]string{
		"username": "carol", "password": "secret", "email": "carol@example.com",
	})
	s.cookie = nil

	rr := s.do(http.MethodPost, "/api/user/login", map[string]string{"username": "carol", "password": "wrong"})
	expectStatus(t, rr, http.StatusUnauthorized)
	if decode(t, rr)["Authenticated"] != "false" {
		t.Errorf("body = %s", rr.Body.String())
	}

	rr = s.do(http.MethodPost, "/api/user/login", map[string]string{"username": "carol"})
	expectStatus(t, rr, http.StatusBadRequest)

	rr = s.do(http.MethodPost, "/api/user/login", map[string]string{"username": "carol", "password": "secret"})
	expectStatus(t, rr, http.StatusOK)
	body := decode(t, rr)
	if body["Authenticated"] != "true" || body["token"] == "" {
		t.Fatalf("login response = %v", body)
	}
	token := body["token"].(string)

	// токен работает и без cookie
	saved := s.cookie
	s.cookie = nil
	req := httptest.NewRequest(http.MethodGet, "/api/user/account", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	bearer := httptest.NewRecorder()
	s.engine.ServeHTTP(bearer, req)
	expectStatus(t, bearer, http.StatusOK)
	s.cookie = saved

	rr = s.do(http.MethodGet, "/api/user/logout", nil)
	expectStatus(t, rr, http.StatusOK)
	if decode(t, rr)["Logout"] != true {
		t.Errorf("logout response = %s", rr.Body.String())
	}

	// отозванный токен больше не пускает
	s.cookie = saved
	rr = s.do(http.MethodGet, "/api/user/account", nil)
	expectStatus(t, rr, http.StatusFound)
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodGet, "/api/categories", nil)
	expectStatus(t, rr, http.StatusOK)
	categories := decode(t, rr)["categories"].([]interface{})
	if len(categories) != 1 {
		t.Errorf("categories = %v", categories)
	}

	rr = s.do(http.MethodGet, "/metrics", nil)
	expectStatus(t, rr, http.StatusOK)
	if _, ok := decode(t, rr)["total_requests"]; !ok {
		t.Errorf("metrics = %s", rr.Body.String())
	}
}
