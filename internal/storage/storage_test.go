package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gamebook-server/internal/model"

	storage_go "github.com/supabase-community/storage-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeObjectStore struct {
	uploads   map[string][]byte
	types     map[string]string
	uploadErr error
}

func (f *fakeObjectStore) UploadFile(bucketID, path string, data io.Reader, opts ...storage_go.FileOptions) (storage_go.FileUploadResponse, error) {
	if f.uploadErr != nil {
		return storage_go.FileUploadResponse{}, f.uploadErr
	}
	b, _ := io.ReadAll(data)
	f.uploads[bucketID+"/"+path] = b
	if len(opts) > 0 && opts[0].ContentType != nil {
		f.types[bucketID+"/"+path] = *opts[0].ContentType
	}
	return storage_go.FileUploadResponse{}, nil
}

func (f *fakeObjectStore) GetPublicUrl(bucketID, path string, _ ...storage_go.UrlOptions) storage_go.SignedUrlResponse {
	return storage_go.SignedUrlResponse{SignedURL: "https://project.supabase.co/storage/v1/object/public/" + bucketID + "/" + path}
}

func TestContentPath(t *testing.T) {
	a := ContentPath([]byte("hello"), ".png")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824.png", a)
	assert.NotEqual(t, a, ContentPath([]byte("hello!"), ".png"))
}

func TestSupabaseUploader(t *testing.T) {
	store := &fakeObjectStore{uploads: map[string][]byte{}, types: map[string]string{}}
	u := newSupabaseUploader(store, "gamebook", zap.NewNop())

	uri, err := u.Upload(context.Background(), []byte("img"), "image/png", ".png")
	require.NoError(t, err)
	path := ContentPath([]byte("img"), ".png")
	assert.Equal(t, "https://project.supabase.co/storage/v1/object/public/gamebook/"+path, uri)
	assert.Equal(t, []byte("img"), store.uploads["gamebook/"+path])
	assert.Equal(t, "image/png", store.types["gamebook/"+path])

	metaURI, err := u.UploadJSON(context.Background(), map[string]string{"name": "x"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(metaURI, ".json"))

	store.uploadErr = errors.New("403")
	_, err = u.Upload(context.Background(), []byte("other"), "image/png", ".png")
	assert.ErrorIs(t, err, ErrUploadFailed)
}

func TestLocalUploader_AndFetcher(t *testing.T) {
	dir := t.TempDir()
	var srvURL string
	srv := httptest.NewServer(http.StripPrefix("/assets/", http.FileServer(http.Dir(dir))))
	defer srv.Close()
	srvURL = srv.URL + "/assets"

	u, err := NewLocalUploader(dir, srvURL+"/", zap.NewNop())
	require.NoError(t, err)

	scene := model.Scene{Title: "t", Description: "d", Choices: [model.ChoiceCount]string{"a", "b", "c"}}
	doc := model.NewSceneMetadata(scene, srvURL+"/img.png", "image/png")
	uri, err := u.UploadJSON(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, srvURL+"/"))

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(uri, srvURL+"/")))
	require.NoError(t, err)
	assert.Contains(t, string(stored), `"trait_type": "Logical Choice"`)

	f := NewMetadataFetcher(time.Second)
	got, err := f.Fetch(context.Background(), uri)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestMetadataFetcher(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch r.URL.Path {
		case "/ok.json":
			_, _ = w.Write([]byte(`{"name":"n","description":"d","imageURI":"https://cdn/i.png","attributes":[{"value":"a"},{"value":"b"},{"value":"c"}]}`))
		case "/bad.json":
			_, _ = w.Write([]byte(`not json`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewMetadataFetcher(time.Second)
	meta, err := f.Fetch(context.Background(), srv.URL+"/ok.json")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/i.png", meta.ImageURI)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	_, err = f.Fetch(context.Background(), srv.URL+"/bad.json")
	assert.ErrorIs(t, err, ErrMetadataUnavailable)
	_, err = f.Fetch(context.Background(), srv.URL+"/missing.json")
	assert.ErrorIs(t, err, ErrMetadataUnavailable)
}
