package driven

import (
	"context"

	"github.com/boovines/Granted/internal/core/domain"
)

// DocumentParser turns uploaded file bytes into structured elements.
// The parsing model itself is opaque; the core only consumes its output.
type DocumentParser interface {
	// Parse sends the file to the parsing service and returns its elements.
	Parse(ctx context.Context, filename string, data []byte) (*domain.ParsedDocument, error)
}
