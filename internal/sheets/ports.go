package sheets

import (
	"context"

	"funds/internal/core"
)

// Mirror receives a full copy of the stored collections. Implementations
// replace their previous copy; mirroring the same document twice is harmless.
type Mirror interface {
	Name() string
	Mirror(ctx context.Context, doc core.Document) error
}
