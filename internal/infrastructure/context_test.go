package infrastructure

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTraceID(t *testing.T) {
	id := GenerateTraceID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, GenerateTraceID())
}

func TestEnsureTraceID(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	// An existing trace ID is preserved.
	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)))
}

func TestTraceIDFromContextFallback(t *testing.T) {
	// With no active span the request trace ID carries through.
	ctx := WithTraceID(context.Background(), "trace-9")
	assert.Equal(t, "trace-9", TraceIDFromContext(ctx))

	assert.Empty(t, TraceIDFromContext(context.Background()))
}
