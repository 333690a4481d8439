package main

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/ttiimmothy/expense-splitter/config"
	"github.com/ttiimmothy/expense-splitter/database"
	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/notify"
	"github.com/ttiimmothy/expense-splitter/repository"
	"github.com/ttiimmothy/expense-splitter/services"
)

// Fixed IDs so generate_token can mint matching tokens.
var seedUsers = []models.User{
	{ID: "d5a2089c-e39a-4b62-a973-778f6729323d", Email: "alice@example.com", Name: "Alice"},
	{ID: "38c072a2-43f9-42b9-b603-6061c49d5c2d", Email: "bob@example.com", Name: "Bob"},
	{ID: "ad655801-23a9-4a33-8695-81d4426604fb", Email: "charlie@example.com", Name: "Charlie"},
	{ID: "0cc055a7-860a-4ac9-8018-82380ba204a3", Email: "diana@example.com", Name: "Diana"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Starting database seeding...")

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Schema migration failed: %v", err)
	}
	if err := clearDatabase(ctx, db); err != nil {
		log.Printf("Warning: Failed to clear database: %v", err)
		log.Println("Continuing with seeding...")
	}

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)
	currencyRepo := repository.NewCurrencyRepository(db)

	var nop notify.Nop
	balances := services.NewBalanceService(groupRepo, userRepo, expenseRepo, settlementRepo, currencyRepo, db)
	settlements := services.NewSettlementService(balances, groupRepo, userRepo, settlementRepo, currencyRepo, nop)
	expenses := services.NewExpenseService(expenseRepo, groupRepo, currencyRepo, db, nop)
	groups := services.NewGroupService(groupRepo, userRepo, currencyRepo, balances, db, nop, cfg.DefaultCurrency)
	users := services.NewUserService(userRepo)

	for _, u := range seedUsers {
		if _, err := users.EnsureUser(ctx, u.ID, u.Email, u.Name); err != nil {
			log.Fatalf("Failed to seed user %s: %v", u.Name, err)
		}
	}
	log.Printf("✓ Seeded %d users", len(seedUsers))

	alice, bob, charlie, diana := seedUsers[0], seedUsers[1], seedUsers[2], seedUsers[3]

	// Alice pays 90 for three: Alice +60, Bob -30, Charlie -30.
	trip, err := groups.Create(ctx, alice.ID, "Cabin weekend", "USD")
	if err != nil {
		log.Fatalf("Failed to create group: %v", err)
	}
	for _, u := range []models.User{bob, charlie} {
		if _, err := groups.AddMember(ctx, trip.ID, alice.ID, u.Email); err != nil {
			log.Fatalf("Failed to add %s: %v", u.Name, err)
		}
	}
	mustExpense(ctx, expenses, trip.ID, alice.ID, "Groceries", "90.00")
	mustExpense(ctx, expenses, trip.ID, bob.ID, "Firewood", "30.00", bob.ID, charlie.ID)
	if _, err := settlements.RecordSettlement(ctx, trip.ID, charlie.ID, services.RecordSettlementInput{
		FromUserID: charlie.ID,
		ToUserID:   alice.ID,
		Amount:     decimal.RequireFromString("10"),
	}); err != nil {
		log.Fatalf("Failed to record settlement: %v", err)
	}

	// Diana joins a yen group, spends, then leaves owing money.
	tokyo, err := groups.Create(ctx, diana.ID, "Tokyo", "JPY")
	if err != nil {
		log.Fatalf("Failed to create group: %v", err)
	}
	if _, err := groups.AddMember(ctx, tokyo.ID, diana.ID, alice.Email); err != nil {
		log.Fatalf("Failed to add Alice: %v", err)
	}
	mustExpense(ctx, expenses, tokyo.ID, alice.ID, "Ramen", "3000")
	if err := groups.RemoveMember(ctx, tokyo.ID, alice.ID, diana.ID); err != nil {
		log.Fatalf("Failed to remove Diana: %v", err)
	}
	log.Println("✓ Seeded 2 groups")

	for _, g := range []struct {
		id, viewer string
	}{{trip.ID, alice.ID}, {tokyo.ID, alice.ID}} {
		resp, err := balances.GetGroupBalances(ctx, g.id, g.viewer)
		if err != nil {
			log.Fatalf("Failed to compute balances: %v", err)
		}
		fmt.Printf("\nGroup %s (%s)\n", g.id, resp.Currency)
		for _, b := range resp.Balances {
			fmt.Printf("  %-8s %10s\n", b.UserName, b.NetBalance.String())
		}
		for _, s := range resp.Suggestions {
			fmt.Printf("  %s pays %s %s\n", s.FromUserName, s.ToUserName, s.Amount.String())
		}
	}

	log.Println("✓ Database seeding completed successfully!")
}

func mustExpense(ctx context.Context, svc services.ExpenseService, groupID, payerID, description, amount string, participants ...string) {
	_, err := svc.Create(ctx, groupID, payerID, services.CreateExpenseInput{
		Description:  description,
		Amount:       decimal.RequireFromString(amount),
		Participants: participants,
	})
	if err != nil {
		log.Fatalf("Failed to create expense %q: %v", description, err)
	}
}

func clearDatabase(ctx context.Context, db *database.DB) error {
	log.Println("Clearing existing data...")

	queries := []string{
		`DELETE FROM settlements`,
		`DELETE FROM expense_shares`,
		`DELETE FROM expense_payers`,
		`DELETE FROM expenses`,
		`DELETE FROM group_members`,
		`DELETE FROM groups`,
	}
	for _, q := range queries {
		if _, err := db.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("%s: %w", q, err)
		}
	}
	return nil
}
