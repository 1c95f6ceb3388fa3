package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguary/linguary-api/internal/domain"
)

func noopProcessor(ctx context.Context, job *domain.Job, report ProgressFunc) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("audio_transcription", noopProcessor))
	require.NoError(t, r.Register("pdf_ocr", noopProcessor))

	fn, ok := r.Get("audio_transcription")
	assert.True(t, ok)
	assert.NotNil(t, fn)

	_, ok = r.Get("unknown")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"audio_transcription", "pdf_ocr"}, r.Types())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("audio_transcription", noopProcessor))

	err := r.Register("audio_transcription", noopProcessor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Register("", noopProcessor))
	assert.Error(t, r.Register("audio_transcription", nil))
}
