package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDLengthAndUniqueness(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.Len(t, a, 8)
	assert.Len(t, b, 8)
	assert.NotEqual(t, a, b)
}

func TestWithIDRoundTrip(t *testing.T) {
	ctx := WithID(context.Background(), "abcd1234")
	id, ok := ID(ctx)
	require.True(t, ok)
	assert.Equal(t, "abcd1234", id)
}

func TestIDAbsent(t *testing.T) {
	_, ok := ID(context.Background())
	assert.False(t, ok)
}

func TestEnsurePreservesExistingID(t *testing.T) {
	ctx := WithID(context.Background(), "feedf00d")
	ensured := Ensure(ctx)
	id, ok := ID(ensured)
	require.True(t, ok)
	assert.Equal(t, "feedf00d", id)
}

func TestEnsureMintsID(t *testing.T) {
	ctx := Ensure(context.Background())
	id, ok := ID(ctx)
	require.True(t, ok)
	assert.Len(t, id, 8)
}

func TestHandlerInjectsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := WithID(context.Background(), "cafebabe")
	logger.InfoContext(ctx, "processing action")

	assert.Contains(t, buf.String(), `"correlation_id":"cafebabe"`)
}

func TestHandlerWithoutIDOmitsAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "processing action")

	assert.NotContains(t, buf.String(), "correlation_id")
}
