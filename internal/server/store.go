package server

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/jonathan/prflow/internal/ingestion"
	"github.com/jonathan/prflow/internal/types"
)

// Store is the record store the handlers read from and update.
// *db.DB implements it.
type Store interface {
	ListCompanies(ctx context.Context) ([]types.Company, error)
	ListPressReleasesByTicker(ctx context.Context, ticker string) ([]types.PressRelease, error)
	GetPressRelease(ctx context.Context, id uuid.UUID) (*types.PressRelease, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) (*types.PressRelease, error)
}

// Ingester adds companies and crawled releases. *ingestion.Service implements it.
type Ingester interface {
	AddCompany(ctx context.Context, req types.CreateCompanyRequest) (*types.Company, error)
	AddCompaniesCSV(ctx context.Context, r io.Reader) ([]types.Company, error)
	AddPressRelease(ctx context.Context, req types.CreatePressReleaseRequest) (*ingestion.Saved, error)
	AddPressReleasesCSV(ctx context.Context, r io.Reader) ([]ingestion.RowResult, error)
}
