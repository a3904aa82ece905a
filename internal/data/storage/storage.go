package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sghtao/companion-camp-backend/internal/models"

	_ "github.com/lib/pq"
)

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(connStr string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s, err := NewPostgresStorageWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStorageWithDB wraps an open handle and ensures the schema.
func NewPostgresStorageWithDB(db *sql.DB) (*PostgresStorage, error) {
	s := &PostgresStorage{db: db}

	if err := s.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return s, nil
}

// SavePurchase implements data.PurchaseStorage
func (s *PostgresStorage) SavePurchase(ctx context.Context, p *models.Purchase) (int64, error) {
	query := `
        INSERT INTO purchases (
            username, coin_symbol, amount, tx_hash, created_at
        ) VALUES (
            $1, $2, $3, $4, $5
        )
        RETURNING id
    `

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		p.Username,
		p.CoinSymbol,
		p.Amount,
		p.TxHash,
		createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save purchase: %w", err)
	}

	p.ID = id
	p.CreatedAt = createdAt
	return id, nil
}

// GetPurchaseHistory implements data.PurchaseStorage
func (s *PostgresStorage) GetPurchaseHistory(ctx context.Context, username string) ([]models.Purchase, error) {
	query := `
        SELECT id, username, coin_symbol, amount, tx_hash, created_at
        FROM purchases
        WHERE username = $1
        ORDER BY created_at DESC, id DESC
    `

	rows, err := s.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase history: %w", err)
	}
	defer rows.Close()

	result := make([]models.Purchase, 0)
	for rows.Next() {
		var p models.Purchase
		err := rows.Scan(
			&p.ID,
			&p.Username,
			&p.CoinSymbol,
			&p.Amount,
			&p.TxHash,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		result = append(result, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchase rows: %w", err)
	}

	return result, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func (s *PostgresStorage) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS purchases (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(100) NOT NULL,
			coin_symbol VARCHAR(20) NOT NULL,
			amount NUMERIC(30, 8) NOT NULL,
			tx_hash VARCHAR(128) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_purchases_username_created
			ON purchases (username, created_at DESC)`,
	}

	for _, query := range queries {
		_, err := s.db.Exec(query)
		if err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}
