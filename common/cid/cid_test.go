package cid

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medium-stack/mstack/common/errs"
)

func TestParseRoundTrip(t *testing.T) {
	const s = "0tm9SzLy7lq1usQtHfGiJhznM95YSg9-NEF15WmnBobA173.json"

	c, err := Parse(s)
	require.NoError(t, err)

	assert.Equal(t, "tm9SzLy7lq1usQtHfGiJhznM95YSg9-NEF15WmnBobA", c.Hash)
	assert.Equal(t, int64(173), c.Size)
	assert.Equal(t, "json", c.Ext)
	assert.Equal(t, s, c.String())
}

func TestParseNoExt(t *testing.T) {
	c := FromBytes([]byte("hello world"), "")
	require.False(t, strings.Contains(c.String(), "."))

	parsed, err := Parse(c.String())
	require.NoError(t, err)
	assert.True(t, c.Equal(parsed))
}

func TestParseMultiSuffixExt(t *testing.T) {
	c := FromBytes([]byte("payload"), "tar.gz")

	parsed, err := Parse(c.String())
	require.NoError(t, err)
	assert.Equal(t, "tar.gz", parsed.Ext)
	assert.Equal(t, int64(7), parsed.Size)
}

func TestParseRejectsBadInput(t *testing.T) {
	valid := FromBytes([]byte("x"), "json").String()

	cases := map[string]string{
		"empty":           "",
		"too short":       "0abc123",
		"bad version":     "1" + valid[1:],
		"bad hash char":   valid[:10] + "=" + valid[11:],
		"missing size":    valid[:44],
		"size not digits": valid[:44] + "x7",
		"negative size":   valid[:44] + "-7",
		"trailing dot":    valid[:44] + "173.",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrBadCid))
		})
	}
}

func TestFromBytesDeterministic(t *testing.T) {
	a := FromBytes([]byte("same bytes"), "txt")
	b := FromBytes([]byte("same bytes"), "txt")
	other := FromBytes([]byte("other bytes"), "txt")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(other))
	assert.Len(t, a.Hash, 43)
	assert.Equal(t, int64(10), a.Size)
}

func TestFromReaderMatchesFromBytes(t *testing.T) {
	payload := make([]byte, 3*readBufferLen+17)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	fromBytes := FromBytes(payload, "bin")
	fromReader, err := FromReader(bytes.NewReader(payload), int64(len(payload)), "bin")
	require.NoError(t, err)

	assert.True(t, fromBytes.Equal(fromReader))
}

func TestFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.tar.gz")
	payload := []byte("compressed bytes")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	c, err := FromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "tar.gz", c.Ext)
	assert.Equal(t, int64(len(payload)), c.Size)
	assert.Equal(t, FromBytes(payload, "tar.gz").Hash, c.Hash)
}

func TestFromPathMissingFile(t *testing.T) {
	_, err := FromPath(filepath.Join(t.TempDir(), "nope.bin"))
	require.Error(t, err)
}

func TestFromJSONKeyOrderInsensitive(t *testing.T) {
	a, err := FromJSON(json.RawMessage(`{"a": 1, "b": 2}`))
	require.NoError(t, err)
	b, err := FromJSON(json.RawMessage(`{"b":2,"a":1}`))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.Equal(t, "json", a.Ext)

	canonical, err := Canonicalize([]byte(`{"b": 2, "a": 1}`))
	require.NoError(t, err)
	assert.Equal(t, int64(len(canonical)), a.Size)
}

func TestJSONCodec(t *testing.T) {
	c := FromBytes([]byte("round trip"), "json")

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `"`+c.String()+`"`, string(data))

	var decoded ContentID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, c.Equal(decoded))

	var bad ContentID
	err = json.Unmarshal([]byte(`"not-a-cid"`), &bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrBadCid))
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("garbage") })
}
