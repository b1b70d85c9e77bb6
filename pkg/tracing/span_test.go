package tracing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_BuildsTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "index", "req-1")

	require.NoError(t, Run(ctx, "digest", func(context.Context) error { return nil }))
	err := Run(ctx, "persist", func(ctx context.Context) error {
		SpanFromContext(ctx).SetAttr("keywords", 12)
		return errors.New("db down")
	})
	require.Error(t, err)
	root.End()

	require.Len(t, root.Children, 2)
	assert.Equal(t, "req-1", root.Children[1].TraceID)
	assert.EqualError(t, root.Children[1].Err, "db down")
	assert.Equal(t, 12, root.Children[1].Attrs["keywords"])

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	assert.Equal(t, 3, strings.Count(buf.String(), "msg=span"))
	assert.Contains(t, buf.String(), "error=\"db down\"")
}

func TestStartChildSpan_WithoutParent(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	assert.Empty(t, span.TraceID)
	assert.Nil(t, SpanFromContext(context.Background()))
}
