package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(Options{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "e-store-images",
		PublicURL: "http://localhost:9000/",
	})
	require.NoError(t, err)
	return store
}

func TestURLRoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	url := store.URL("products/abc/img-medium.webp")
	assert.Equal(t, "http://localhost:9000/e-store-images/products/abc/img-medium.webp", url)

	key, ok := store.KeyFromURL(url)
	require.True(t, ok)
	assert.Equal(t, "products/abc/img-medium.webp", key)
}

func TestKeyFromURLRejectsForeignURLs(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	_, ok := store.KeyFromURL("https://elsewhere.example.com/bucket/key.webp")
	assert.False(t, ok)

	_, ok = store.KeyFromURL("http://localhost:9000/other-bucket/key.webp")
	assert.False(t, ok)
}

func TestKeyFromURLAcceptsBareKeys(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	key, ok := store.KeyFromURL("uploads/abc.jpg")
	require.True(t, ok)
	assert.Equal(t, "uploads/abc.jpg", key)
}
