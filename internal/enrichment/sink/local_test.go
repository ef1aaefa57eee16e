package sink

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDir_Put(t *testing.T) {
	d, err := NewLocalDir(t.TempDir())
	require.NoError(t, err)

	ref1, err := d.Put(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	ref2, err := d.Put(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.NotEqual(t, ref1, ref2)

	got, err := os.ReadFile(ref1)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(got))
}

func TestLocalDir_CancelledContext(t *testing.T) {
	d, err := NewLocalDir(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Put(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
