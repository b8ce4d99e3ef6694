package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/models"
)

// fakeServer mimics the upload endpoints closely enough to exercise the SDK:
// one session at a time, chunk appends tracked in memory.
type fakeServer struct {
	t       *testing.T
	session *models.FileUpload
	chunks  [][]byte
}

func (s *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v0/core/users/login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "hunter22" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "authentication failed"})
			return
		}
		json.NewEncoder(w).Encode(loginResponse{
			Token: "test-token",
			User:  &models.User{Email: req.Email},
		})
	})

	mux.HandleFunc("POST /api/v0/core/file-uploader", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "authentication failed"})
			return
		}
		var creator models.FileUploaderCreator
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&creator))

		s.session = &models.FileUpload{
			ID:        primitive.NewObjectID(),
			Type:      creator.Type,
			Ext:       creator.Ext,
			TotalSize: creator.TotalSize,
			Status:    models.StatusUploading,
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(s.session)
	})

	mux.HandleFunc("POST /api/v0/core/file-uploader/{id}", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(s.t, s.session.ID.Hex(), r.PathValue("id"))

		file, _, err := r.FormFile("chunk")
		require.NoError(s.t, err)
		data, err := io.ReadAll(file)
		require.NoError(s.t, err)

		s.chunks = append(s.chunks, data)
		s.session.TotalUploaded += int64(len(data))
		if s.session.TotalUploaded >= s.session.TotalSize {
			s.session.Status = models.StatusProcessQueue
		}
		json.NewEncoder(w).Encode(s.session)
	})

	mux.HandleFunc("GET /api/v0/core/file-uploader/{id}", func(w http.ResponseWriter, r *http.Request) {
		if s.session == nil || r.PathValue("id") != s.session.ID.Hex() {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"detail": "not found"})
			return
		}
		json.NewEncoder(w).Encode(s.session)
	})

	return mux
}

func TestLoginStoresToken(t *testing.T) {
	fake := &fakeServer{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(srv.URL)
	user, err := c.Login(context.Background(), "ada@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "test-token", c.Token())
}

func TestLoginBadPassword(t *testing.T) {
	fake := &fakeServer{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Login(context.Background(), "ada@example.com", "wrong")
	assert.ErrorIs(t, err, errs.ErrAuthFailed)
}

func TestUploadFileChunksToCompletion(t *testing.T) {
	fake := &fakeServer{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	payload := make([]byte, 2500)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "track.mp3")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	c := New(srv.URL, WithToken("test-token"), WithChunkSize(1000))
	session, err := c.UploadFile(context.Background(), path, models.FileTypeAudio, "mp3")
	require.NoError(t, err)

	assert.Equal(t, models.StatusProcessQueue, session.Status)
	assert.Equal(t, int64(2500), session.TotalUploaded)
	require.Len(t, fake.chunks, 3)
	assert.Len(t, fake.chunks[0], 1000)
	assert.Len(t, fake.chunks[2], 500)
}

func TestUploadFileRequiresAuth(t *testing.T) {
	fake := &fakeServer{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	c := New(srv.URL)
	_, err := c.UploadFile(context.Background(), path, models.FileTypeText, "txt")
	assert.ErrorIs(t, err, errs.ErrAuthFailed)
}

func TestReadUploaderNotFound(t *testing.T) {
	fake := &fakeServer{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(srv.URL, WithToken("test-token"))
	_, err := c.ReadUploader(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
