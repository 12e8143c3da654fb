// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"storecore/internal/core/id"
	"storecore/internal/infrastructure/storage/postgres"
	"storecore/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := seedAdminUser(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@storecore.local"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	var existingID id.ID
	err := pool.Pool.QueryRow(ctx,
		`SELECT id FROM sys_users WHERE email = $1`,
		adminEmail,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin user already exists", "email", adminEmail, "user_id", existingID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	userID := id.New()
	_, err = pool.Pool.Exec(ctx, `
		INSERT INTO sys_users (
			id, email, password_hash, first_name, last_name, roles,
			is_active, is_admin, created_at, updated_at, version
		)
		VALUES ($1, $2, $3, 'System', 'Admin', $4, true, true, NOW(), NOW(), 1)
	`, userID, adminEmail, string(passwordHash), []string{"admin"})
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}

	log.Infow("admin user created", "email", adminEmail, "user_id", userID)
	return nil
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	log.Info("seeding demo data...")

	// 1. Locations
	locations := []struct {
		code string
		name string
	}{
		{"STORE-001", "Main Street Store"},
		{"STORE-002", "Riverside Store"},
		{"WH-001", "Central Warehouse"},
	}

	for _, l := range locations {
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_locations (id, code, name, version)
			VALUES ($1, $2, $3, 1)
			ON CONFLICT (code) DO NOTHING
		`, id.New(), l.code, l.name)
		if err != nil {
			log.Warnw("failed to seed location", "code", l.code, "error", err)
		}
	}

	// 2. Products
	products := []struct {
		sku          string
		name         string
		sellingPrice string
		unitCost     string
		allowReturns bool
	}{
		{"SKU-COFFEE-250", "Ground Coffee 250g", "8.50", "4.20", true},
		{"SKU-TEA-100", "Green Tea 100 bags", "6.00", "2.80", true},
		{"SKU-MUG-CLS", "Classic Ceramic Mug", "12.00", "5.50", true},
		{"SKU-KETTLE-EL", "Electric Kettle 1.7L", "45.00", "28.00", true},
		{"SKU-GIFT-25", "Gift Card 25", "25.00", "25.00", false},
	}

	for _, p := range products {
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_products (id, sku, name, selling_price, unit_cost, allow_returns, version)
			VALUES ($1, $2, $3, $4, $5, $6, 1)
			ON CONFLICT (sku) DO NOTHING
		`, id.New(), p.sku, p.name, p.sellingPrice, p.unitCost, p.allowReturns)
		if err != nil {
			log.Warnw("failed to seed product", "sku", p.sku, "error", err)
		}
	}

	// 3. Customers
	customers := []struct {
		name        string
		creditLimit string
	}{
		{"Walk-in Customer", "0"},
		{"Beanline Cafe", "500.00"},
		{"Hotel Aurora", "2500.00"},
	}

	for _, c := range customers {
		var exists bool
		err := pool.Pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM cat_customers WHERE name = $1)`,
			c.name,
		).Scan(&exists)
		if err != nil {
			log.Warnw("failed to check customer", "name", c.name, "error", err)
			continue
		}
		if exists {
			continue
		}

		_, err = pool.Pool.Exec(ctx, `
			INSERT INTO cat_customers (id, name, credit_limit, current_balance, version)
			VALUES ($1, $2, $3, 0, 1)
		`, id.New(), c.name, c.creditLimit)
		if err != nil {
			log.Warnw("failed to seed customer", "name", c.name, "error", err)
		}
	}

	log.Info("demo data seeded")
	return nil
}
