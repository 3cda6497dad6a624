//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Company is a listed company keyed by its ticker.
type Company struct {
	ID        uuid.UUID      `json:"id"`
	Ticker    string         `json:"ticker"`
	Name      string         `json:"name"`
	Sector    *string        `json:"sector"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NormalizeTicker returns the canonical form of a ticker: trimmed and upper-case.
// Example: " acme " -> "ACME"
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
