package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pocketbook/internal/core"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := SQLiteDSN(filepath.Join(t.TempDir(), "test.db"))
	db, err := Open(context.Background(), Options{Dialect: SQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, repos *Repositories, email string) *core.User {
	t.Helper()
	u := &core.User{Name: "Test", Email: email, PasswordHash: "hash"}
	if err := repos.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func date(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(openTestDB(t))

	u := seedUser(t, repos, "a@example.com")
	if u.ID == uuid.Nil {
		t.Fatalf("expected id to be assigned")
	}

	dup := &core.User{Name: "Other", Email: "a@example.com", PasswordHash: "x"}
	if err := repos.Users.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email: got %v, want ErrConflict", err)
	}

	got, err := repos.Users.FindByEmail(ctx, "a@example.com")
	if err != nil || got.ID != u.ID || got.PasswordHash != "hash" {
		t.Fatalf("FindByEmail = %+v, %v", got, err)
	}

	updated, err := repos.Users.UpdateName(ctx, u.ID, "Renamed")
	if err != nil || updated.Name != "Renamed" {
		t.Fatalf("UpdateName = %+v, %v", updated, err)
	}
	updated, err = repos.Users.UpdateHideBalance(ctx, u.ID, true)
	if err != nil || !updated.HideBalance {
		t.Fatalf("UpdateHideBalance = %+v, %v", updated, err)
	}

	if _, err := repos.Users.FindByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: got %v", err)
	}
}

func TestPocketStoreAdjustBalance(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(openTestDB(t))
	u := seedUser(t, repos, "p@example.com")

	p := &core.Pocket{UserID: u.ID, Name: "Wallet", Emoji: "W", Balance: decimal.Zero}
	if err := repos.Pockets.Create(ctx, p); err != nil {
		t.Fatalf("create pocket: %v", err)
	}
	if err := repos.Pockets.AdjustBalance(ctx, p.ID, decimal.RequireFromString("100.50")); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if err := repos.Pockets.AdjustBalance(ctx, p.ID, decimal.RequireFromString("-20.25")); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	got, err := repos.Pockets.FindByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get pocket: %v", err)
	}
	if !got.Balance.Equal(decimal.RequireFromString("80.25")) {
		t.Fatalf("balance = %s, want 80.25", got.Balance)
	}

	if err := repos.Pockets.AdjustBalance(ctx, uuid.New(), decimal.NewFromInt(1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("adjust missing pocket: got %v", err)
	}

	list, err := repos.Pockets.FindByOwner(ctx, u.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("FindByOwner = %v, %v", list, err)
	}

	if err := repos.Pockets.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repos.Pockets.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

func TestTransactionStoreFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(openTestDB(t))
	u := seedUser(t, repos, "t@example.com")
	other := seedUser(t, repos, "o@example.com")

	food := "Food"
	rent := "Rent"
	seed := []core.Transaction{
		{UserID: u.ID, Description: "lunch", Amount: decimal.RequireFromString("12.50"), Category: &food, Type: core.Expense, TransactionDate: date("2024-01-05")},
		{UserID: u.ID, Description: "rent", Amount: decimal.RequireFromString("800"), Category: &rent, Type: core.Expense, TransactionDate: date("2024-01-01")},
		{UserID: u.ID, Description: "salary", Amount: decimal.RequireFromString("2000"), Type: core.Income, TransactionDate: date("2024-01-31")},
		{UserID: u.ID, Description: "late", Amount: decimal.RequireFromString("5"), Category: &food, Type: core.Expense, TransactionDate: date("2024-02-01")},
		{UserID: other.ID, Description: "foreign", Amount: decimal.RequireFromString("1"), Category: &food, Type: core.Expense, TransactionDate: date("2024-01-10")},
	}
	for i := range seed {
		if err := repos.Transactions.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("create transaction %d: %v", i, err)
		}
		if seed[i].ID == 0 {
			t.Fatalf("transaction %d has no id", i)
		}
	}

	all, err := repos.Transactions.FindByOwner(ctx, u.ID, TransactionQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	wantOrder := []string{"late", "salary", "lunch", "rent"}
	if len(all) != len(wantOrder) {
		t.Fatalf("got %d transactions, want %d", len(all), len(wantOrder))
	}
	for i, d := range wantOrder {
		if all[i].Description != d {
			t.Fatalf("position %d = %q, want %q", i, all[i].Description, d)
		}
	}

	from, to := date("2024-01-01"), date("2024-01-31")
	inRange, err := repos.Transactions.FindByDateRange(ctx, u.ID, from, to)
	if err != nil || len(inRange) != 3 {
		t.Fatalf("FindByDateRange = %d items, %v", len(inRange), err)
	}

	expense := core.Expense
	q := TransactionQuery{Category: &food, Type: &expense}
	n, err := repos.Transactions.CountByOwner(ctx, u.ID, q)
	if err != nil || n != 2 {
		t.Fatalf("CountByOwner = %d, %v", n, err)
	}

	page, err := repos.Transactions.FindByOwner(ctx, u.ID, TransactionQuery{Page: Page{Page: 2, Limit: 3}})
	if err != nil || len(page) != 1 || page[0].Description != "rent" {
		t.Fatalf("page 2 = %+v, %v", page, err)
	}

	got, err := repos.Transactions.FindByID(ctx, seed[2].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Category != nil || got.Type != core.Income || got.TransactionDate.String() != "2024-01-31" {
		t.Fatalf("unexpected transaction: %+v", got)
	}
	if !got.Amount.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("amount = %s", got.Amount)
	}
}

func TestBudgetStoreOverlap(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(openTestDB(t))
	u := seedUser(t, repos, "b@example.com")

	b := &core.Budget{
		UserID: u.ID, Category: "Groceries", TargetAmount: decimal.NewFromInt(400),
		PeriodType: core.Monthly, PeriodStart: date("2024-01-01"), PeriodEnd: date("2024-01-31"), IsActive: true,
	}
	if err := repos.Budgets.Create(ctx, b); err != nil {
		t.Fatalf("create budget: %v", err)
	}

	overlapping := &core.Budget{
		UserID: u.ID, Category: "Groceries", TargetAmount: decimal.NewFromInt(100),
		PeriodType: core.Weekly, PeriodStart: date("2024-01-31"), PeriodEnd: date("2024-02-06"), IsActive: true,
	}
	if err := repos.Budgets.Create(ctx, overlapping); !errors.Is(err, ErrOverlap) {
		t.Fatalf("overlap: got %v, want ErrOverlap", err)
	}

	next := &core.Budget{
		UserID: u.ID, Category: "Groceries", TargetAmount: decimal.NewFromInt(100),
		PeriodType: core.Monthly, PeriodStart: date("2024-02-01"), PeriodEnd: date("2024-02-29"), IsActive: true,
	}
	if err := repos.Budgets.Create(ctx, next); err != nil {
		t.Fatalf("adjacent budget: %v", err)
	}
	travel := &core.Budget{
		UserID: u.ID, Category: "Travel", TargetAmount: decimal.NewFromInt(50),
		PeriodType: core.Yearly, PeriodStart: date("2024-01-01"), PeriodEnd: date("2024-12-31"), IsActive: false,
	}
	if err := repos.Budgets.Create(ctx, travel); err != nil {
		t.Fatalf("travel budget: %v", err)
	}

	cats, err := repos.Budgets.Categories(ctx, u.ID)
	if err != nil || len(cats) != 2 || cats[0] != "Groceries" || cats[1] != "Travel" {
		t.Fatalf("Categories = %v, %v", cats, err)
	}

	search := "grocer"
	active := true
	q := BudgetQuery{Category: &search, IsActive: &active}
	n, err := repos.Budgets.CountByOwner(ctx, u.ID, q)
	if err != nil || n != 2 {
		t.Fatalf("CountByOwner = %d, %v", n, err)
	}
	list, err := repos.Budgets.FindByOwner(ctx, u.ID, q)
	if err != nil || len(list) != 2 || list[0].ID != next.ID {
		t.Fatalf("FindByOwner = %+v, %v", list, err)
	}

	b.TargetAmount = decimal.NewFromInt(450)
	b.IsActive = false
	if err := repos.Budgets.Update(ctx, b); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repos.Budgets.FindByID(ctx, b.ID)
	if err != nil || got.IsActive || !got.TargetAmount.Equal(decimal.NewFromInt(450)) {
		t.Fatalf("after update = %+v, %v", got, err)
	}
	if got.PeriodStart.String() != "2024-01-01" || got.PeriodType != core.Monthly {
		t.Fatalf("period not preserved: %+v", got)
	}

	if err := repos.Budgets.Delete(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete missing: got %v", err)
	}
}
