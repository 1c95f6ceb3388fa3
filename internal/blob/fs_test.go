package blob

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_Upload(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStore(dir)
	require.NoError(t, err)

	url, err := s.Upload(context.Background(), "uploads/u1/a.pdf", []byte("pdf bytes"), "application/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"), "got %q", url)

	data, err := os.ReadFile(strings.TrimPrefix(url, "file://"))
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), data)
}

func TestMemoryStore_FailFor(t *testing.T) {
	s := NewMemoryStore()
	s.FailFor = 2

	_, err := s.Upload(context.Background(), "k", []byte("x"), "text/plain")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = s.Upload(context.Background(), "k", []byte("x"), "text/plain")
	assert.ErrorIs(t, err, ErrUnavailable)

	url, err := s.Upload(context.Background(), "k", []byte("x"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "mem://k", url)

	data, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []byte("x"), data)
}
