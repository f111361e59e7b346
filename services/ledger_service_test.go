package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"bookkeeping/models"
	"bookkeeping/utils"

	"github.com/shopspring/decimal"
)

func TestLedgerAddDeleteRestoresBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	env.category(t, "salary", models.TransactionTypeIncome)

	assertDecimal(t, env.balance(t, alice.ID), "0")

	id := env.add(t, alice.ID, txRequest("1", "salary", "2024-01-01", "100.00", "january"))
	assertDecimal(t, env.balance(t, alice.ID), "100.00")

	deleted, err := env.ledger.Delete(ctx, alice.ID, id)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted != id {
		t.Errorf("Delete returned %d, want %d", deleted, id)
	}
	assertDecimal(t, env.balance(t, alice.ID), "0.00")

	if got := env.notifier.kinds(); !reflect.DeepEqual(got, []string{EventTransactionAdded, EventTransactionDeleted}) {
		t.Errorf("events = %v", got)
	}
	ops := env.metrics.GetMetricsSnapshot()["ledger_operations"].(map[string]int64)
	if ops[utils.OpTransactionAdded] != 1 || ops[utils.OpTransactionDeleted] != 1 {
		t.Errorf("ledger operations = %v", ops)
	}
}

func TestLedgerBalanceMatchesJournal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "bob")
	env.category(t, "salary", models.TransactionTypeIncome)
	env.category(t, "food", models.TransactionTypeExpense)

	env.add(t, user.ID, txRequest("1", "salary", "2024-01-01", "1000", "pay"))
	food := env.add(t, user.ID, txRequest("0", "food", "2024-01-02", "-15.75", "lunch"))
	env.add(t, user.ID, txRequest("0", "food", "2024-01-03", "4.25", "coffee"))

	// отрицательная сумма сохраняется по модулю и уменьшает баланс как расход
	assertDecimal(t, env.balance(t, user.ID), "980.00")

	if _, err := env.ledger.Delete(ctx, user.ID, food); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	assertDecimal(t, env.balance(t, user.ID), "995.75")

	latest, err := env.ledger.ListLatest(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListLatest: %v", err)
	}
	sum := decimal.Zero
	for _, tx := range latest {
		amount := decimal.RequireFromString(tx.TransactionSum)
		sum = tx.TransactionType.Apply(sum, amount)
	}
	assertDecimal(t, sum, "995.75")
}

func TestLedgerListLatestOrder(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "carol")
	env.category(t, "food", models.TransactionTypeExpense)

	first := env.add(t, user.ID, txRequest("0", "food", "2024-01-05", "1", "a"))
	second := env.add(t, user.ID, txRequest("0", "food", "2024-01-05", "2", "b"))
	older := env.add(t, user.ID, txRequest("0", "food", "2024-01-01", "3", "c"))

	latest, err := env.ledger.ListLatest(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListLatest: %v", err)
	}
	var ids []uint
	for _, tx := range latest {
		ids = append(ids, tx.ID)
	}
	if want := []uint{first, second, older}; !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
	if latest[0].TransactionSum != "1.00" || latest[0].CategoryName != "food" || latest[0].TransactionDate != "2024-01-05" {
		t.Errorf("projection = %+v", latest[0])
	}
}

func TestLedgerFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "dave")
	env.category(t, "salary", models.TransactionTypeIncome)
	env.category(t, "food", models.TransactionTypeExpense)

	env.add(t, user.ID, txRequest("1", "salary", "2024-01-01", "500", "pay"))
	env.add(t, user.ID, txRequest("0", "food", "2024-01-10", "20", "dinner"))
	env.add(t, user.ID, txRequest("0", "food", "2024-02-01", "30", "groceries"))

	parse := func(p FilterParams) TransactionFilter {
		f, err := ParseFilter(p)
		if err != nil {
			t.Fatalf("ParseFilter: %v", err)
		}
		return f
	}

	tests := []struct {
		name     string
		params   FilterParams
		comments []string
	}{
		{"no conditions", FilterParams{}, []string{"groceries", "dinner", "pay"}},
		{"expense only", FilterParams{Type: "Expense"}, []string{"groceries", "dinner"}},
		{"unknown type ignored", FilterParams{Type: "expense"}, []string{"groceries", "dinner", "pay"}},
		{"category", FilterParams{Category: "salary"}, []string{"pay"}},
		{"range", FilterParams{StartDate: "2024-01-01", EndDate: "2024-01-31"}, []string{"dinner", "pay"}},
		{"half range ignored", FilterParams{StartDate: "2024-01-15"}, []string{"groceries", "dinner", "pay"}},
		{"exact date wins over range", FilterParams{Date: "2024-02-01", StartDate: "2024-01-01", EndDate: "2024-01-31"}, []string{"groceries"}},
		{"combined", FilterParams{Type: "Expense", Category: "food", StartDate: "2024-01-01", EndDate: "2024-01-31"}, []string{"dinner"}},
		{"nothing matches", FilterParams{Category: "unknown"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.ledger.Filter(ctx, user.ID, parse(tt.params))
			if err != nil {
				t.Fatalf("Filter: %v", err)
			}
			comments := []string{}
			for _, tx := range got {
				comments = append(comments, tx.TransactionComment)
			}
			if !reflect.DeepEqual(comments, tt.comments) {
				t.Errorf("comments = %v, want %v", comments, tt.comments)
			}
		})
	}
}

func TestLedgerErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.category(t, "salary", models.TransactionTypeIncome)

	id := env.add(t, alice.ID, txRequest("1", "salary", "2024-01-01", "10", ""))

	if _, err := env.ledger.Delete(ctx, bob.ID, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleting foreign transaction: %v", err)
	}
	if _, err := env.ledger.Delete(ctx, alice.ID, id+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleting missing transaction: %v", err)
	}
	assertDecimal(t, env.balance(t, alice.ID), "10")

	_, err := env.ledger.Add(ctx, alice.ID, txRequest("1", "bonus", "2024-01-01", "10", ""))
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("unknown category: %v", err)
	}
	if _, err := env.ledger.Add(ctx, alice.ID, txRequest("1", "salary", "2024-01-01", "0", "")); !errors.Is(err, ErrBadRequest) {
		t.Errorf("zero sum: %v", err)
	}
	assertDecimal(t, env.balance(t, alice.ID), "10")

	if _, err := env.ledger.ListLatest(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("user without account: %v", err)
	}
}

func TestLedgerNotifierFailureDoesNotRollback(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.err = errors.New("broker unavailable")
	user := env.register(t, "erin")
	env.category(t, "salary", models.TransactionTypeIncome)

	env.add(t, user.ID, txRequest("1", "salary", "2024-01-01", "42", ""))
	assertDecimal(t, env.balance(t, user.ID), "42")
}
