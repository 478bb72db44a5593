package risk

import (
	"context"
	"errors"

	"lotto/models"
)

// ErrVersionConflict is returned by Store.Save when the stored version moved.
var ErrVersionConflict = errors.New("risk: ledger entry version conflict")

// Store persists ledger entries. Load returns nil for an absent key.
type Store interface {
	Load(ctx context.Context, key Key) (*models.RiskEntry, error)
	Save(ctx context.Context, e *models.RiskEntry, prevVersion int64) error
	List(ctx context.Context, roundID uint, cat models.BetCategory) ([]models.RiskEntry, error)
}
