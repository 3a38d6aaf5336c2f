package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docusage-ai/search-platform/internal/docstore"
	"github.com/docusage-ai/search-platform/internal/searcher"
	apperrors "github.com/docusage-ai/search-platform/pkg/errors"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		event   DocumentEvent
		wantErr bool
	}{
		{"valid upsert", DocumentEvent{DocumentID: "d1", Op: OpUpsert, ExtractedText: "text"}, false},
		{"valid delete", DocumentEvent{DocumentID: "d1", Op: OpDelete}, false},
		{"missing id", DocumentEvent{Op: OpUpsert, ExtractedText: "text"}, true},
		{"blank id", DocumentEvent{DocumentID: "   ", Op: OpUpsert, ExtractedText: "text"}, true},
		{"oversized id", DocumentEvent{DocumentID: strings.Repeat("x", 300), Op: OpDelete}, true},
		{"unknown op", DocumentEvent{DocumentID: "d1", Op: "reindex"}, true},
		{"empty upsert", DocumentEvent{DocumentID: "d1", Op: OpUpsert}, true},
		{"title only upsert", DocumentEvent{DocumentID: "d1", Op: OpUpsert, Title: "t"}, false},
		{"ocr only upsert", DocumentEvent{DocumentID: "d1", Op: OpUpsert, OCRText: "scan"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.event)
			if tc.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type fakeIndexer struct {
	added   []searcher.Document
	removed []string
	chunks  int
	err     error
}

func (f *fakeIndexer) AddDocument(_ context.Context, doc searcher.Document) error {
	if f.err != nil {
		return f.err
	}
	f.added = append(f.added, doc)
	return nil
}

func (f *fakeIndexer) RemoveDocument(documentID string) {
	f.removed = append(f.removed, documentID)
}

func (f *fakeIndexer) ChunkCount(documentID string) int {
	for _, d := range f.added {
		if d.ID == documentID {
			return f.chunks
		}
	}
	return 0
}

type fakeStatusPublisher struct{ events []StatusEvent }

func (f *fakeStatusPublisher) PublishStatus(_ context.Context, ev StatusEvent) error {
	f.events = append(f.events, ev)
	return nil
}

type fakeInvalidator struct{ calls int }

func (f *fakeInvalidator) Invalidate(context.Context) error {
	f.calls++
	return nil
}

func encode(t *testing.T, ev DocumentEvent) []byte {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return data
}

func TestHandleUpsertIndexesDocument(t *testing.T) {
	idx := &fakeIndexer{}
	inv := &fakeInvalidator{}
	c := NewConsumer(idx, nil, nil, inv)

	err := c.Handle(context.Background(), nil, encode(t, DocumentEvent{
		DocumentID:    "d1",
		Title:         "Title",
		ExtractedText: "body",
		OCRText:       "scan",
		Op:            OpUpsert,
	}))
	require.NoError(t, err)
	require.Len(t, idx.added, 1)
	assert.Equal(t, "body scan", idx.added[0].FullText)
	assert.Equal(t, 1, inv.calls)
}

func TestHandleDeleteRemovesDocument(t *testing.T) {
	idx := &fakeIndexer{}
	inv := &fakeInvalidator{}
	c := NewConsumer(idx, nil, nil, inv)

	err := c.Handle(context.Background(), nil, encode(t, DocumentEvent{
		DocumentID: "d1",
		Op:         OpDelete,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, idx.removed)
	assert.Equal(t, 1, inv.calls)
}

func TestHandleDropsInvalidEvents(t *testing.T) {
	idx := &fakeIndexer{}
	c := NewConsumer(idx, nil, nil, nil)

	// Invalid events are acknowledged, not redelivered.
	err := c.Handle(context.Background(), nil, encode(t, DocumentEvent{Op: OpUpsert}))
	require.NoError(t, err)
	assert.Empty(t, idx.added)

	err = c.Handle(context.Background(), nil, []byte("{not json"))
	require.NoError(t, err)
	assert.Empty(t, idx.added)
}

func TestHandleUpsertIndexingFailureIsAcknowledged(t *testing.T) {
	idx := &fakeIndexer{err: apperrors.ErrCancelled}
	pub := &fakeStatusPublisher{}
	c := NewConsumer(idx, nil, pub, nil)

	err := c.Handle(context.Background(), nil, encode(t, DocumentEvent{
		DocumentID:    "d1",
		ExtractedText: "body",
		Op:            OpUpsert,
	}))
	assert.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, docstore.StatusFailed, pub.events[0].Status)
	assert.Equal(t, 0, pub.events[0].Chunks)
	assert.NotEmpty(t, pub.events[0].Error)
}

func TestHandleUpsertPublishesChunkCount(t *testing.T) {
	idx := &fakeIndexer{chunks: 3}
	pub := &fakeStatusPublisher{}
	c := NewConsumer(idx, nil, pub, nil)

	err := c.Handle(context.Background(), nil, encode(t, DocumentEvent{
		DocumentID:    "d1",
		ExtractedText: "body",
		Op:            OpUpsert,
	}))
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, docstore.StatusReady, pub.events[0].Status)
	assert.Equal(t, 3, pub.events[0].Chunks)
	assert.Empty(t, pub.events[0].Error)
}
