// Package pgtest starts a throwaway postgres for integration tests and
// provides fixtures on top of the store package.
package pgtest

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/Stephi-25/Odjassa/internal/store"
	"github.com/Stephi-25/Odjassa/migrations"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Database struct {
	DB        *sql.DB
	container *postgres.PostgresContainer
}

// Start runs postgres in a container and applies the embedded migrations.
func Start(ctx context.Context) (*Database, error) {
	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("connection string: %w", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := migrations.Apply(ctx, db, migrations.Up); err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &Database{DB: db, container: container}, nil
}

func (d *Database) Close(ctx context.Context) error {
	if err := d.DB.Close(); err != nil {
		return err
	}
	return d.container.Terminate(ctx)
}

// Truncate empties every table between tests.
func (d *Database) Truncate(ctx context.Context) error {
	_, err := d.DB.ExecContext(ctx,
		`TRUNCATE TABLE order_items, orders, products, users RESTART IDENTITY CASCADE`)
	return err
}

var seq atomic.Int64

func (d *Database) User(t testing.TB, role models.Role) *models.User {
	t.Helper()
	n := seq.Add(1)
	user, err := store.CreateUser(context.Background(), d.DB,
		fmt.Sprintf("user%d@example.test", n), fmt.Sprintf("User %d", n), role)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (d *Database) Product(t testing.TB, vendorID int64, price string, stock int, status models.ProductStatus) *models.Product {
	t.Helper()
	n := seq.Add(1)
	product, err := store.CreateProduct(context.Background(), d.DB, store.NewProduct{
		VendorID: vendorID,
		SKU:      fmt.Sprintf("SKU-%04d", n),
		Name:     fmt.Sprintf("Product %d", n),
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Status:   status,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func (d *Database) Stock(t testing.TB, productID int64) int {
	t.Helper()
	p, err := store.GetProduct(context.Background(), d.DB, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	return p.StockQuantity
}

func (d *Database) Count(t testing.TB, table string) int {
	t.Helper()
	var n int
	if err := d.DB.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// SetOrderState forces status and assignment, bypassing the state machine.
func (d *Database) SetOrderState(t testing.TB, orderID int64, status models.OrderStatus, agentID *int64) {
	t.Helper()
	_, err := d.DB.Exec(`UPDATE orders SET status = $2, delivery_person_id = $3 WHERE id = $1`, orderID, status, agentID)
	if err != nil {
		t.Fatalf("set order state: %v", err)
	}
}

// SetDeliveredAt backdates delivered_at.
func (d *Database) SetDeliveredAt(t testing.TB, orderID int64, at time.Time) {
	t.Helper()
	if _, err := d.DB.Exec(`UPDATE orders SET delivered_at = $2 WHERE id = $1`, orderID, at); err != nil {
		t.Fatalf("set delivered_at: %v", err)
	}
}
