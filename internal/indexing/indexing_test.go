package indexing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/contentaddr"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/events"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/stopwords"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/store"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/blobstore"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/metrics"
)

type recordingPublisher struct {
	events []events.IndexEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.IndexEvent) error {
	p.events = append(p.events, ev)
	return nil
}

type failingStore struct {
	*store.Memory
	err error
}

func (f *failingStore) InsertDocument(context.Context, store.Document, []keywords.KeywordRecord) error {
	return f.err
}

type fixture struct {
	svc    *Service
	store  *store.Memory
	blobs  *blobstore.Memory
	events *recordingPublisher
	m      *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  store.NewMemory(),
		blobs:  blobstore.NewMemory(),
		events: &recordingPublisher{},
		m:      metrics.NewUnregistered(),
	}
	ex := &keywords.Extractor{Stop: stopwords.New("le", "la", "sur")}
	f.svc = New(f.store, f.blobs, f.events, ex, config.IndexerConfig{MaxUploadSize: 1024}, f.m)
	return f
}

func TestIndexUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.IndexUpload(ctx, Upload{
		Filename: "notes.txt",
		Title:    "Chat",
		Data:     []byte("Le chat dort sur la chaise. Le chat ronronne."),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(rec.StorageKey, "-notes.txt"))
	assert.Equal(t, "text/plain", rec.DocType)
	assert.Equal(t, 4, rec.Keywords)

	kws, err := f.store.DocumentKeywords(ctx, rec.StorageKey)
	require.NoError(t, err)
	require.NotEmpty(t, kws)
	assert.Equal(t, "chat", kws[0].Word)
	assert.Equal(t, uint64(4), kws[0].Occurrences)

	obj, err := f.blobs.Get(ctx, rec.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", obj.ContentType)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, events.TypeIndexed, f.events.events[0].Type)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.m.DocsIndexedTotal.WithLabelValues("upload")))
}

func TestIndexUpload_RejectsDuplicateContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := []byte("Bonjour le monde")

	_, err := f.svc.IndexUpload(ctx, Upload{Filename: "a.txt", Data: data})
	require.NoError(t, err)

	_, err = f.svc.IndexUpload(ctx, Upload{Filename: "b.txt", Data: data})
	assert.ErrorIs(t, err, apperrors.ErrDocumentExists)
	assert.Equal(t, 409, apperrors.HTTPStatusCode(err))
	assert.Equal(t, 1, f.blobs.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.m.DuplicatesRejectedTotal))
}

func TestIndexUpload_Validation(t *testing.T) {
	tests := []struct {
		name string
		up   Upload
		want error
	}{
		{"empty", Upload{Filename: "a.txt"}, apperrors.ErrInvalidInput},
		{"no filename", Upload{Data: []byte("texte")}, apperrors.ErrInvalidInput},
		{"path in filename", Upload{Filename: "../etc/passwd", Data: []byte("texte")}, apperrors.ErrInvalidInput},
		{"too large", Upload{Filename: "a.txt", Data: []byte(strings.Repeat("a", 2048))}, apperrors.ErrPayloadTooLarge},
		{"binary", Upload{Filename: "a.png", Data: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")}, apperrors.ErrUnsupportedMedia},
		{"declared pdf", Upload{Filename: "a.pdf", ContentType: "application/pdf", Data: []byte("texte")}, apperrors.ErrUnsupportedMedia},
		{"latin1", Upload{Filename: "a.txt", Data: []byte("caf\xe9 cr\xe8me")}, apperrors.ErrUnsupportedMedia},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.IndexUpload(context.Background(), tt.up)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, f.blobs.Len())
		})
	}
}

func TestIndexUpload_MarkdownDocType(t *testing.T) {
	f := newFixture(t)
	rec, err := f.svc.IndexUpload(context.Background(), Upload{
		Filename: "README.md",
		Data:     []byte("# Titre\n\nUn paragraphe en *markdown*."),
	})
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", rec.DocType)
}

func TestIndexUpload_PersistFailureRemovesBlob(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("disk full")
	svc := New(&failingStore{Memory: f.store, err: boom}, f.blobs, f.events, f.svc.extractor, f.svc.cfg, nil)

	_, err := svc.IndexUpload(context.Background(), Upload{Filename: "a.txt", Data: []byte("du texte")})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, f.blobs.Len())
	assert.Empty(t, f.events.events)
}

func TestIndexUpload_ExtractionDeadlineStoresNothing(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := f.svc.IndexUpload(ctx, Upload{Filename: "a.txt", Data: []byte("du texte inconnu")})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, f.blobs.Len())
	assert.Empty(t, f.events.events)

	_, err = f.store.GetDocument(context.Background(), contentaddr.DigestAndKey([]byte("du texte inconnu"), "a.txt").StorageKey)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestIndexText(t *testing.T) {
	f := newFixture(t)
	rec, err := f.svc.IndexText(context.Background(), TextDocument{
		Name:        "inline",
		Description: "souris",
		Body:        "la souris mange",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.m.DocsIndexedTotal.WithLabelValues("text")))

	kws, err := f.store.DocumentKeywords(context.Background(), rec.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "souris", kws[0].Word)
	assert.Equal(t, uint64(3), kws[0].Occurrences)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.svc.IndexUpload(ctx, Upload{Filename: "a.txt", Data: []byte("du texte")})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, rec.StorageKey))
	assert.Zero(t, f.blobs.Len())
	_, err = f.store.GetDocument(ctx, rec.StorageKey)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	assert.Equal(t, events.TypeDeleted, f.events.events[len(f.events.events)-1].Type)

	err = f.svc.Delete(ctx, rec.StorageKey)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.svc.IndexUpload(ctx, Upload{Filename: "a.txt", Data: []byte("du texte")})
	require.NoError(t, err)

	obj, err := f.svc.Content(ctx, rec.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "du texte", string(obj.Data))

	_, err = f.svc.Content(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}
