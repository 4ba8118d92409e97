package postgres

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/bondfyr/party-service/config"

	_ "github.com/lib/pq"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to PostgreSQL")
	return db, nil
}

func RunMigrations(db *sql.DB) error {
	// Read migration files and execute them
	// This is a simplified version - you might want to use a proper migration tool
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS parties (
			id BIGSERIAL PRIMARY KEY,
			host_id VARCHAR(100) NOT NULL,
			host_handle VARCHAR(100) NOT NULL,
			title VARCHAR(200) NOT NULL,
			ticket_price NUMERIC(12,2) NOT NULL DEFAULT 0,
			max_guest_count INTEGER NOT NULL,
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP NOT NULL,
			earnings NUMERIC(12,2) NOT NULL DEFAULT 0,
			platform_fee NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS guest_requests (
			id BIGSERIAL PRIMARY KEY,
			party_id BIGINT REFERENCES parties(id),
			user_id VARCHAR(100) NOT NULL,
			user_name VARCHAR(200) NOT NULL,
			user_handle VARCHAR(100),
			intro_message TEXT,
			approval_status VARCHAR(20) DEFAULT 'pending',
			payment_status VARCHAR(20) DEFAULT 'pending',
			going BOOLEAN DEFAULT FALSE,
			amount_paid NUMERIC(12,2) DEFAULT 0,
			payment_id VARCHAR(255),
			submitted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			approved_at TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS host_earnings (
			host_id VARCHAR(100) PRIMARY KEY,
			host_name VARCHAR(200) NOT NULL DEFAULT '',
			total_earnings NUMERIC(12,2) NOT NULL DEFAULT 0,
			pending_earnings NUMERIC(12,2) NOT NULL DEFAULT 0,
			paid_earnings NUMERIC(12,2) NOT NULL DEFAULT 0,
			bank_account_setup BOOLEAN NOT NULL DEFAULT FALSE,
			last_payout_date TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS host_transactions (
			id BIGSERIAL PRIMARY KEY,
			host_id VARCHAR(100) NOT NULL,
			party_id BIGINT NOT NULL,
			party_title VARCHAR(200) NOT NULL,
			guest_id VARCHAR(100) NOT NULL,
			guest_name VARCHAR(200) NOT NULL,
			amount NUMERIC(12,2) NOT NULL,
			platform_fee NUMERIC(12,2) NOT NULL,
			host_earning NUMERIC(12,2) NOT NULL,
			payment_id VARCHAR(255),
			status VARCHAR(20) DEFAULT 'paid',
			refunded_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS payout_records (
			id VARCHAR(36) PRIMARY KEY,
			host_id VARCHAR(100) NOT NULL,
			amount NUMERIC(12,2) NOT NULL,
			payout_method VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL,
			transaction_ids BIGINT[],
			transfer_id VARCHAR(255),
			notes TEXT,
			payout_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS payout_runs (
			id BIGSERIAL PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			eligible_hosts INTEGER NOT NULL DEFAULT 0,
			success_count INTEGER NOT NULL DEFAULT 0,
			failure_count INTEGER NOT NULL DEFAULT 0,
			total_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			triggered_by VARCHAR(50) NOT NULL
		)`,

		// One non-denied request per user per party; a denied request
		// does not block a re-apply
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_guest_requests_active_unique
			ON guest_requests(party_id, user_id) WHERE approval_status != 'denied'`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_parties_host_id ON parties(host_id)`,
		`CREATE INDEX IF NOT EXISTS idx_parties_end_time ON parties(end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_guest_requests_party_id ON guest_requests(party_id)`,
		`CREATE INDEX IF NOT EXISTS idx_guest_requests_payment_id ON guest_requests(payment_id)`,
		`CREATE INDEX IF NOT EXISTS idx_guest_requests_party_going ON guest_requests(party_id, going)`,
		`CREATE INDEX IF NOT EXISTS idx_host_transactions_host_id ON host_transactions(host_id)`,
		`CREATE INDEX IF NOT EXISTS idx_host_transactions_lookup ON host_transactions(host_id, party_id, guest_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_host_earnings_pending ON host_earnings(pending_earnings)`,
		`CREATE INDEX IF NOT EXISTS idx_payout_records_host_id ON payout_records(host_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %v", err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
