// store_test.go - Tests for the file-backed key-value store
package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileKV(t *testing.T) {
	t.Run("creates data directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		_, err := NewFileKV(dir)
		require.NoError(t, err)

		_, err = os.Stat(dir)
		assert.NoError(t, err)
	})
}

func TestFileKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	t.Run("missing key returns ErrNotFound", func(t *testing.T) {
		_, err := kv.Get(ctx, "telemetry_history")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set then get returns the value", func(t *testing.T) {
		value := []byte(`[{"temperature":22.5}]`)
		require.NoError(t, kv.Set(ctx, "telemetry_history", value))

		got, err := kv.Get(ctx, "telemetry_history")
		require.NoError(t, err)
		assert.Equal(t, value, got)
	})

	t.Run("set overwrites the whole value", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "device_states", []byte(`{"DEV1":"ON"}`)))
		require.NoError(t, kv.Set(ctx, "device_states", []byte(`{"DEV1":"OFF"}`)))

		got, err := kv.Get(ctx, "device_states")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"DEV1":"OFF"}`), got)
	})

	t.Run("delete removes the key", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "scratch", []byte("x")))
		require.NoError(t, kv.Delete(ctx, "scratch"))

		_, err := kv.Get(ctx, "scratch")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("deleting an absent key is not an error", func(t *testing.T) {
		assert.NoError(t, kv.Delete(ctx, "never_written"))
	})
}

func TestFileKVKeyValidation(t *testing.T) {
	ctx := context.Background()
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", "a b"} {
		t.Run("rejects "+key, func(t *testing.T) {
			assert.Error(t, kv.Set(ctx, key, []byte("x")))
			_, err := kv.Get(ctx, key)
			assert.Error(t, err)
		})
	}
}

func TestFileKVSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	kv, err := NewFileKV(dir)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "device_states", []byte(`{"DEV2":"ON"}`)))

	reopened, err := NewFileKV(dir)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "device_states")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"DEV2":"ON"}`), got)
}

func TestFileKVLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, kv.Set(ctx, "telemetry_history", []byte("payload")))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "telemetry_history.json", entries[0].Name())
}
