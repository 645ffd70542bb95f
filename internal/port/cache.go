package port

import (
	"context"

	"github.com/olyamironova/matching-engine/internal/domain"
)

type Cache interface {
	SetBook(ctx context.Context, instrument domain.Instrument, snap *domain.BookSnapshot) error
	GetBook(ctx context.Context, instrument domain.Instrument) (*domain.BookSnapshot, error)
	Invalidate(ctx context.Context, instrument domain.Instrument) error
}
