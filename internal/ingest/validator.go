package ingest

import (
	"fmt"
	"strings"

	apperrors "github.com/docusage-ai/search-platform/pkg/errors"
)

const maxDocumentIDLen = 256

// Validate checks a DocumentEvent before it reaches the indexes.
func Validate(ev DocumentEvent) error {
	id := strings.TrimSpace(ev.DocumentID)
	if id == "" {
		return fmt.Errorf("%w: documentId is required", apperrors.ErrInvalidInput)
	}
	if len(id) > maxDocumentIDLen {
		return fmt.Errorf("%w: documentId exceeds %d characters", apperrors.ErrInvalidInput, maxDocumentIDLen)
	}
	switch ev.Op {
	case OpUpsert:
		if strings.TrimSpace(ev.ExtractedText+ev.OCRText+ev.Title) == "" {
			return fmt.Errorf("%w: upsert carries no text or title", apperrors.ErrInvalidInput)
		}
	case OpDelete:
	default:
		return fmt.Errorf("%w: unknown op %q", apperrors.ErrInvalidInput, ev.Op)
	}
	return nil
}
