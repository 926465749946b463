package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "reports/run.txt", "text/plain", payload)
	require.NoError(t, err)
	assert.Equal(t, "memory://reports/run.txt", uri)

	payload[0] = 'C'
	stored, ok := store.Get("reports/run.txt")
	require.True(t, ok)
	assert.Equal(t, "content", string(stored))

	stored[0] = 'X'
	again, _ := store.Get("reports/run.txt")
	assert.Equal(t, "content", string(again))
}

func TestBlobStoreKeysAndMissing(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, err := store.PutObject(context.Background(), "b", "", nil)
	require.NoError(t, err)
	_, err = store.PutObject(context.Background(), "a", "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, store.Keys())

	_, ok := store.Get("missing")
	assert.False(t, ok)
	_, err = store.PutObject(context.Background(), "", "", nil)
	require.Error(t, err)
}
