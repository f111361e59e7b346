package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"bookkeeping/config"
	"bookkeeping/database"
	"bookkeeping/models"
	"bookkeeping/utils"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// recordingNotifier запоминает полученные события
type recordingNotifier struct {
	mu     sync.Mutex
	events []LedgerEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event LedgerEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]string, 0, len(n.events))
	for _, e := range n.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type testEnv struct {
	db         *gorm.DB
	users      *UserService
	sessions   *SessionService
	accounts   *AccountService
	categories *CategoryService
	ledger     *LedgerService
	planning   *PlanningService
	stats      *StatisticService
	export     *ExportService
	notifier   *recordingNotifier
	metrics    *utils.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	d, err := database.NewDatabase(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"}, utils.DiscardLogger())
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	v := validator.New()
	logger := utils.DiscardLogger()
	notifier := &recordingNotifier{}
	metrics := utils.NewMetrics()

	return &testEnv{
		db:         d.DB,
		users:      NewUserService(d.DB, v, bcrypt.MinCost),
		sessions:   NewSessionService(d.DB, "test-secret", time.Hour),
		accounts:   NewAccountService(d.DB, v),
		categories: NewCategoryService(d.DB, v),
		ledger:     NewLedgerService(d.DB, v, notifier, metrics, logger),
		planning:   NewPlanningService(d.DB, v, notifier, metrics, logger),
		stats:      NewStatisticService(d.DB),
		export:     NewExportService(d.DB),
		notifier:   notifier,
		metrics:    metrics,
	}
}

func (e *testEnv) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := e.users.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "pw1",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return user
}

func (e *testEnv) category(t *testing.T, name string, typ models.TransactionType) uint {
	t.Helper()
	id, err := e.categories.Create(context.Background(), CreateCategoryRequest{CategoryType: &typ, CategoryName: name})
	if err != nil {
		t.Fatalf("Create category %s: %v", name, err)
	}
	return id
}

func (e *testEnv) balance(t *testing.T, userID uint) decimal.Decimal {
	t.Helper()
	account, err := e.accounts.PrimaryAccount(context.Background(), userID)
	if err != nil {
		t.Fatalf("PrimaryAccount: %v", err)
	}
	return account.AccountBalance
}

func (e *testEnv) add(t *testing.T, userID uint, req TransactionRequest) uint {
	t.Helper()
	id, err := e.ledger.Add(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return id
}

func txRequest(typ, category, date, sum, comment string) TransactionRequest {
	t := json.Number(typ)
	s := json.Number(sum)
	return TransactionRequest{
		TransactionType:     &t,
		TransactionCategory: &category,
		TransactionDate:     &date,
		TransactionSum:      &s,
		TransactionComment:  &comment,
	}
}

func assertDecimal(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("got %s, want %s", got.String(), want)
	}
}
