package storage

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medium-stack/mstack/common/logger"
)

func testStore(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir(), logger.New("error", "text"))
	require.NoError(t, err)
	return l
}

func TestAppendChunkAccumulates(t *testing.T) {
	l := testStore(t)

	n, err := l.AppendChunk("sess1", strings.NewReader("hello "))
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	n, err = l.AppendChunk("sess1", strings.NewReader("world"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	size, err := l.StagingSize("sess1")
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)

	data, err := os.ReadFile(l.StagingPath("sess1"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestTouchStagingCreatesEmptyFile(t *testing.T) {
	l := testStore(t)

	require.NoError(t, l.TouchStaging("sess2"))

	size, err := l.StagingSize("sess2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)

	// Touching again must not truncate
	_, err = l.AppendChunk("sess2", strings.NewReader("abc"))
	require.NoError(t, err)
	require.NoError(t, l.TouchStaging("sess2"))

	size, err = l.StagingSize("sess2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)
}

func TestPromoteMovesStagingToPayload(t *testing.T) {
	l := testStore(t)

	_, err := l.AppendChunk("sess3", strings.NewReader("payload bytes"))
	require.NoError(t, err)

	require.NoError(t, l.Promote("sess3", "0abc123"))

	_, err = os.Stat(l.StagingPath("sess3"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(l.PayloadPath("0abc123"))
	require.NoError(t, err)
	assert.Equal(t, "payload bytes", string(data))
}

func TestPromoteKeepsExistingPayload(t *testing.T) {
	l := testStore(t)

	require.NoError(t, os.WriteFile(l.PayloadPath("0dup"), []byte("original"), 0o644))
	_, err := l.AppendChunk("sess4", strings.NewReader("original"))
	require.NoError(t, err)

	require.NoError(t, l.Promote("sess4", "0dup"))

	data, err := os.ReadFile(l.PayloadPath("0dup"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	_, err = os.Stat(l.StagingPath("sess4"))
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveIsIdempotent(t *testing.T) {
	l := testStore(t)

	assert.NoError(t, l.RemoveStaging("never-existed"))
	assert.NoError(t, l.RemovePayload("never-existed"))
}
