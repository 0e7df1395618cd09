// Package testutil provides testing utilities for PrepFlow backend services.
// It includes testcontainers for PostgreSQL, mock factories, and common
// test fixtures.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "prepflow_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "prepflow_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateInventorySchema creates the inventory service tables
func (c *PostgresContainer) CreateInventorySchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			unit VARCHAR(50) NOT NULL,
			category VARCHAR(100),
			min_threshold NUMERIC(14,3) NOT NULL DEFAULT 0,
			is_critical BOOLEAN NOT NULL DEFAULT FALSE,
			shelf_life_days INT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT product_name UNIQUE (name)
		);

		CREATE TABLE IF NOT EXISTS stock_batches (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			product_id UUID NOT NULL REFERENCES products(id),
			quantity NUMERIC(14,3) NOT NULL,
			unit_cost NUMERIC(14,4),
			expiry_date TIMESTAMPTZ,
			received_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT quantity_non_negative CHECK (quantity >= 0)
		);
		CREATE INDEX IF NOT EXISTS idx_batches_product_fifo
			ON stock_batches (product_id, expiry_date NULLS LAST, received_date);

		CREATE TABLE IF NOT EXISTS stock_adjustments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			product_id UUID NOT NULL REFERENCES products(id),
			seq BIGINT NOT NULL,
			adjustment_type VARCHAR(20) NOT NULL,
			quantity NUMERIC(14,3) NOT NULL,
			stock_after NUMERIC(14,3) NOT NULL,
			reason TEXT,
			actor_id VARCHAR(100),
			reference_id VARCHAR(100),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT adjustment_type_valid CHECK (
				adjustment_type IN ('purchase', 'sale', 'waste', 'manual', 'stocktake')
			),
			CONSTRAINT adjustment_seq UNIQUE (product_id, seq)
		);

		CREATE TABLE IF NOT EXISTS low_stock_alerts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			product_id UUID NOT NULL REFERENCES products(id),
			product_name VARCHAR(255) NOT NULL,
			current_stock NUMERIC(14,3) NOT NULL,
			threshold NUMERIC(14,3) NOT NULL,
			is_critical BOOLEAN NOT NULL DEFAULT FALSE,
			acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
			acknowledged_by VARCHAR(100),
			acknowledged_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS unacknowledged_alert
			ON low_stock_alerts (product_id) WHERE NOT acknowledged;

		CREATE TABLE IF NOT EXISTS recipe_lines (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			menu_item_id VARCHAR(100) NOT NULL,
			menu_item_name VARCHAR(255),
			product_id UUID NOT NULL REFERENCES products(id),
			quantity NUMERIC(14,3) NOT NULL,
			is_critical BOOLEAN NOT NULL DEFAULT FALSE,
			CONSTRAINT recipe_line UNIQUE (menu_item_id, product_id)
		);

		CREATE TABLE IF NOT EXISTS supplier_catalog (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			supplier_id VARCHAR(100) NOT NULL,
			supplier_name VARCHAR(255) NOT NULL,
			product_id UUID NOT NULL REFERENCES products(id),
			pack_size NUMERIC(14,3) NOT NULL,
			pack_cost NUMERIC(14,4) NOT NULL,
			min_order_packs INT NOT NULL DEFAULT 1,
			lead_time_days INT NOT NULL DEFAULT 1,
			CONSTRAINT catalog_entry UNIQUE (supplier_id, product_id)
		);

		CREATE TABLE IF NOT EXISTS supplier_orders (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			supplier_id VARCHAR(100) NOT NULL,
			supplier_name VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			total_cost NUMERIC(14,4) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT order_status_valid CHECK (
				status IN ('pending', 'confirmed', 'delivered', 'cancelled')
			)
		);

		CREATE TABLE IF NOT EXISTS supplier_order_lines (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			order_id UUID NOT NULL REFERENCES supplier_orders(id) ON DELETE CASCADE,
			product_id UUID NOT NULL REFERENCES products(id),
			packs INT NOT NULL,
			pack_size NUMERIC(14,3) NOT NULL,
			pack_cost NUMERIC(14,4) NOT NULL,
			urgency VARCHAR(20) NOT NULL
		);
	`

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create inventory schema: %w", err)
	}

	return nil
}

// TruncateAll clears all inventory tables between tests
func (c *PostgresContainer) TruncateAll(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE supplier_order_lines, supplier_orders, supplier_catalog,
			recipe_lines, low_stock_alerts, stock_adjustments,
			stock_batches, products CASCADE
	`)
	if err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}
