package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/models"
)

// fakeStore is an in-memory SessionStore backed by JSON documents. It
// supports the equality filters the services actually use.
type fakeStore struct {
	mu   sync.Mutex
	docs map[string]map[string][]byte // collection -> object id hex -> doc
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]map[string][]byte{}}
}

func (f *fakeStore) collection(name string) map[string][]byte {
	if f.docs[name] == nil {
		f.docs[name] = map[string][]byte{}
	}
	return f.docs[name]
}

func docField(raw []byte, key string) string {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func (f *fakeStore) Create(ctx context.Context, m models.Model) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if m.ObjectID().IsZero() {
		m.SetObjectID(primitive.NewObjectID())
	}

	coll := f.collection(m.Collection())
	if cm, ok := m.(models.ContentModel); ok {
		for _, raw := range coll {
			if docField(raw, "cid") == cm.ContentCid().String() {
				return errs.Wrap(errs.ErrBadInput, "duplicate cid in %s", m.Collection())
			}
		}
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	coll[m.ObjectID().Hex()] = raw
	return nil
}

func (f *fakeStore) lookup(collection, id, cidStr string) (string, []byte, error) {
	if id == "" && cidStr == "" {
		return "", nil, errs.ErrMissingKey
	}

	for key, raw := range f.collection(collection) {
		if id != "" && key != id {
			continue
		}
		if cidStr != "" && docField(raw, "cid") != cidStr {
			continue
		}
		return key, raw, nil
	}
	return "", nil, errs.Wrap(errs.ErrNotFound, "%s: no record", collection)
}

func (f *fakeStore) Read(ctx context.Context, m models.Model, id string, cidStr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, raw, err := f.lookup(m.Collection(), id, cidStr)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, m)
}

func (f *fakeStore) Update(ctx context.Context, m models.Model) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	coll := f.collection(m.Collection())
	if _, ok := coll[m.ObjectID().Hex()]; !ok {
		return errs.Wrap(errs.ErrNotFound, "%s: no record %s", m.Collection(), m.ObjectID().Hex())
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	coll[m.ObjectID().Hex()] = raw
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, m models.Model, id string, cidStr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key, _, err := f.lookup(m.Collection(), id, cidStr)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	delete(f.collection(m.Collection()), key)
	return nil
}

func (f *fakeStore) Find(ctx context.Context, proto models.Model, out any, filter bson.M, offset, size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0)
	coll := f.collection(proto.Collection())
	for key, raw := range coll {
		matches := true
		for field, want := range filter {
			if s, ok := want.(string); !ok || docField(raw, field) != s {
				matches = false
				break
			}
		}
		if matches {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	if size <= 0 {
		size = 50
	}
	if offset > int64(len(keys)) {
		offset = int64(len(keys))
	}
	end := offset + size
	if end > int64(len(keys)) {
		end = int64(len(keys))
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, key := range keys[offset:end] {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(coll[key])
	}
	buf.WriteByte(']')
	return json.Unmarshal(buf.Bytes(), out)
}

func (f *fakeStore) RunTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeStore) count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.collection(collection))
}

// fakeFiles is an in-memory FileStore.
type fakeFiles struct {
	mu              sync.Mutex
	staging         map[string][]byte
	removedPayloads []string
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{staging: map[string][]byte{}}
}

func (f *fakeFiles) TouchStaging(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.staging[name]; !ok {
		f.staging[name] = []byte{}
	}
	return nil
}

func (f *fakeFiles) AppendChunk(name string, r io.Reader) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var buf bytes.Buffer
	n, err := buf.ReadFrom(r)
	if err != nil {
		return n, err
	}
	f.staging[name] = append(f.staging[name], buf.Bytes()...)
	return n, nil
}

func (f *fakeFiles) RemoveStaging(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.staging, name)
	return nil
}

func (f *fakeFiles) RemovePayload(cidStr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedPayloads = append(f.removedPayloads, cidStr)
	return nil
}
