package port

import (
	"context"

	"github.com/olyamironova/matching-engine/internal/domain"
)

// Journal is a write-only audit trail of accepted orders and executed
// trades. The engine never reads it back; book state lives in memory only.
type Journal interface {
	SaveOrder(ctx context.Context, o *domain.Order) error
	SaveTrade(ctx context.Context, t *domain.TradeMessage) error
}
