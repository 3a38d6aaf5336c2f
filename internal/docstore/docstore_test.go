package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullTextJoinsExtractedAndOCR(t *testing.T) {
	rec := Record{ExtractedText: "body text", OCRText: "scanned text"}
	assert.Equal(t, "body text scanned text", rec.FullText())
}

func TestFullTextTrimsWhenOnePartEmpty(t *testing.T) {
	assert.Equal(t, "only body", Record{ExtractedText: "only body"}.FullText())
	assert.Equal(t, "only ocr", Record{OCRText: "only ocr"}.FullText())
	assert.Equal(t, "", Record{}.FullText())
}
