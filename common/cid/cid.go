// Package cid implements the content identifier scheme used across mstack.
//
// A content id is a self-describing string derived from the SHA3-256 digest
// of some bytes, the byte length, and an optional extension tag:
//
//	'0' HASH(43) SIZE(digits) ['.' EXT]
//
// The hash is the URL-safe base64 encoding of the digest with the single
// trailing '=' pad stripped, which always yields 43 characters. Two producers
// given equal inputs emit byte-identical identifiers.
package cid

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"golang.org/x/crypto/sha3"

	"github.com/medium-stack/mstack/common/errs"
)

// Version is the only content id version currently produced or accepted.
const Version = '0'

// readBufferLen bounds the buffer used by streaming hashers.
const readBufferLen = 1024 * 1024

const hashLen = 43

var hashPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)

// ContentID identifies content by hash, size and an opaque extension tag.
// The zero value is not a valid id; IsZero reports it.
type ContentID struct {
	Hash string
	Size int64
	Ext  string
}

// String returns the canonical wire form of the id.
func (c ContentID) String() string {
	s := string(Version) + c.Hash + strconv.FormatInt(c.Size, 10)
	if c.Ext != "" {
		s += "." + c.Ext
	}
	return s
}

// IsZero reports whether the id is unset.
func (c ContentID) IsZero() bool {
	return c.Hash == ""
}

// Equal reports whether two ids are identical in all three fields.
func (c ContentID) Equal(other ContentID) bool {
	return c.Hash == other.Hash && c.Size == other.Size && c.Ext == other.Ext
}

// Less orders ids by their string form.
func (c ContentID) Less(other ContentID) bool {
	return c.String() < other.String()
}

// Parse decodes the wire form of a content id.
func Parse(s string) (ContentID, error) {
	if len(s) < 1+hashLen+1 {
		return ContentID{}, errs.Wrap(errs.ErrBadCid, "too short: %q", s)
	}

	if s[0] != Version {
		return ContentID{}, errs.Wrap(errs.ErrBadCid, "unsupported version %q", s[0])
	}

	hash := s[1 : 1+hashLen]
	if !hashPattern.MatchString(hash) {
		return ContentID{}, errs.Wrap(errs.ErrBadCid, "invalid hash in %q", s)
	}

	rest := s[1+hashLen:]
	ext := ""
	if i := strings.IndexByte(rest, '.'); i != -1 {
		ext = rest[i+1:]
		rest = rest[:i]
		if ext == "" {
			return ContentID{}, errs.Wrap(errs.ErrBadCid, "empty extension in %q", s)
		}
	}

	if rest == "" || !isDigits(rest) {
		return ContentID{}, errs.Wrap(errs.ErrBadCid, "invalid size in %q", s)
	}
	size, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return ContentID{}, errs.Wrap(errs.ErrBadCid, "invalid size in %q", s)
	}

	return ContentID{Hash: hash, Size: size, Ext: ext}, nil
}

// MustParse is Parse that panics on failure, for tests and constants.
func MustParse(s string) ContentID {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromReader hashes a stream and returns the id for the given size and ext.
// The declared size is trusted; FromPath stats the file instead.
func FromReader(r io.Reader, size int64, ext string) (ContentID, error) {
	h := sha3.New256()
	buf := make([]byte, readBufferLen)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return ContentID{}, fmt.Errorf("hashing stream: %w", err)
	}
	return ContentID{Hash: encodeDigest(h.Sum(nil)), Size: size, Ext: ext}, nil
}

// FromBytes returns the id of a byte slice.
func FromBytes(b []byte, ext string) ContentID {
	h := sha3.Sum256(b)
	return ContentID{Hash: encodeDigest(h[:]), Size: int64(len(b)), Ext: ext}
}

// FromJSON returns the id of the canonical JSON encoding of v, tagged "json".
// Structurally equal values yield equal ids regardless of key order or
// whitespace in any prior serialization.
func FromJSON(v any) (ContentID, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return ContentID{}, err
	}
	return FromBytes(canonical, "json"), nil
}

// FromPath hashes a file, taking size from stat and ext from the filename
// suffixes ("archive.tar.gz" tags "tar.gz").
func FromPath(path string) (ContentID, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ContentID{}, fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return ContentID{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return FromReader(f, info.Size(), pathExt(path))
}

func pathExt(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		return base[i+1:]
	}
	return ""
}

func encodeDigest(digest []byte) string {
	// 32-byte digest encodes to 44 chars with exactly one '=' pad
	return base64.URLEncoding.EncodeToString(digest)[:hashLen]
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the id as its wire string.
func (c ContentID) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes the wire string form.
func (c *ContentID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalBSONValue stores the id as its wire string.
func (c ContentID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(c.String())
}

// UnmarshalBSONValue decodes the wire string form.
func (c *ContentID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var s string
	if err := bson.UnmarshalValue(t, data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
