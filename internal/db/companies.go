package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/prflow/internal/types"
)

const companyColumns = `id, ticker, name, sector, metadata, created_at, updated_at`

func scanCompany(row pgx.Row) (*types.Company, error) {
	var c types.Company
	if err := row.Scan(&c.ID, &c.Ticker, &c.Name, &c.Sector, &c.Metadata, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertCompany inserts a company or updates the name and sector of the one
// already stored under the same ticker.
func (db *DB) UpsertCompany(ctx context.Context, ticker, name string, sector *string) (*types.Company, error) {
	ticker = types.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("company ticker cannot be empty")
	}

	c, err := scanCompany(db.pool.QueryRow(ctx,
		`INSERT INTO companies (id, ticker, name, sector)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (ticker) DO UPDATE SET name = EXCLUDED.name, sector = EXCLUDED.sector, updated_at = NOW()
		 RETURNING `+companyColumns,
		uuid.New(), ticker, name, sector,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert company %s: %w", ticker, err)
	}
	return c, nil
}

// GetCompanyByTicker retrieves a company by its ticker
func (db *DB) GetCompanyByTicker(ctx context.Context, ticker string) (*types.Company, error) {
	c, err := scanCompany(db.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE ticker = $1`,
		types.NormalizeTicker(ticker),
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// ListCompanies returns all companies ordered by ticker
func (db *DB) ListCompanies(ctx context.Context) ([]types.Company, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+companyColumns+` FROM companies ORDER BY ticker`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	companies := []types.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}
