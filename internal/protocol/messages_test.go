package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

func TestRequestPayloadIsCopied(t *testing.T) {
	payload := BuildIndexPayload{ID: "doc1", Text: "original"}
	req, err := NewRequest("r1", TypeBuildIndex, &payload)
	require.NoError(t, err)

	payload.Text = "mutated after send"

	var got BuildIndexPayload
	require.NoError(t, Decode(req.Payload, &got))
	assert.Equal(t, "original", got.Text)
	assert.Equal(t, TypeBuildIndex, req.Type)
}

func TestNilPayload(t *testing.T) {
	req, err := NewRequest("r1", TypeGetMetrics, nil)
	require.NoError(t, err)
	assert.Empty(t, req.Payload)

	var p ClearCachePayload
	require.NoError(t, Decode(req.Payload, &p))
	assert.Equal(t, ClearCachePayload{}, p)
}

func TestErrorPayloadToError(t *testing.T) {
	resp := NewErrorResponse("r2", ErrorPayload{Error: "index doc9 not found", Kind: domain.KindNotFound, Recoverable: true})
	require.Equal(t, TypeError, resp.Type)

	err := resp.Error.ToError()
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, err.Recoverable)

	unknown := ErrorPayload{Error: "boom"}.ToError()
	assert.Equal(t, domain.KindWorkerFault, unknown.Kind)
}
