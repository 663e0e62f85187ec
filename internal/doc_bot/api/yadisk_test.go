package api

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
)

// diskStub emulates the relevant slice of the Yandex.Disk REST API.
type diskStub struct {
	t *testing.T

	srv *httptest.Server

	// resources present on the fake disk, keyed by disk path
	meta map[string]resourceMeta

	uploadedBody []byte
	uploadedPath string
	downloadBody string
	lastAuth     string
}

func newDiskStub(t *testing.T) *diskStub {
	t.Helper()
	stub := &diskStub{t: t, meta: make(map[string]resourceMeta)}

	mux := http.NewServeMux()
	mux.HandleFunc("/resources", stub.handleResources)
	mux.HandleFunc("/resources/upload", stub.handleUploadHref)
	mux.HandleFunc("/upload-target", stub.handleUploadTarget)
	mux.HandleFunc("/resources/download", stub.handleDownloadHref)
	mux.HandleFunc("/download-target", stub.handleDownloadTarget)
	mux.HandleFunc("/resources/publish", stub.handlePublish)

	stub.srv = httptest.NewServer(mux)
	t.Cleanup(stub.srv.Close)
	return stub
}

func (s *diskStub) client() *Client {
	return NewClient(s.srv.URL, "test-token")
}

func (s *diskStub) writeError(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Code: code, Message: code})
}

func (s *diskStub) handleResources(w http.ResponseWriter, r *http.Request) {
	s.lastAuth = r.Header.Get("Authorization")
	diskPath := r.URL.Query().Get("path")

	switch r.Method {
	case http.MethodGet:
		meta, ok := s.meta[diskPath]
		if !ok {
			s.writeError(w, http.StatusNotFound, "DiskNotFoundError")
			return
		}
		_ = json.NewEncoder(w).Encode(meta)
	case http.MethodPut:
		if _, ok := s.meta[diskPath]; ok {
			s.writeError(w, http.StatusConflict, "DiskPathPointsToExistentDirectoryError")
			return
		}
		s.meta[diskPath] = resourceMeta{Path: diskPath, Type: "dir"}
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *diskStub) handleUploadHref(w http.ResponseWriter, r *http.Request) {
	s.uploadedPath = r.URL.Query().Get("path")
	if r.URL.Query().Get("overwrite") != "true" {
		if _, ok := s.meta[s.uploadedPath]; ok {
			s.writeError(w, http.StatusConflict, "DiskResourceAlreadyExistsError")
			return
		}
	}
	_ = json.NewEncoder(w).Encode(hrefResponse{Href: s.srv.URL + "/upload-target", Method: http.MethodPut})
}

func (s *diskStub) handleUploadTarget(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	require.NoError(s.t, err)
	s.uploadedBody = body
	s.meta[s.uploadedPath] = resourceMeta{Path: s.uploadedPath, Type: "file"}
	w.WriteHeader(http.StatusCreated)
}

func (s *diskStub) handleDownloadHref(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.meta[r.URL.Query().Get("path")]; !ok {
		s.writeError(w, http.StatusNotFound, "DiskNotFoundError")
		return
	}
	_ = json.NewEncoder(w).Encode(hrefResponse{Href: s.srv.URL + "/download-target", Method: http.MethodGet})
}

func (s *diskStub) handleDownloadTarget(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte(s.downloadBody))
}

func (s *diskStub) handlePublish(w http.ResponseWriter, r *http.Request) {
	diskPath := r.URL.Query().Get("path")
	meta, ok := s.meta[diskPath]
	if !ok {
		s.writeError(w, http.StatusNotFound, "DiskNotFoundError")
		return
	}
	if meta.PublicURL != "" {
		s.writeError(w, http.StatusConflict, "DiskResourceAlreadyPublishedError")
		return
	}
	meta.PublicURL = "https://yadi.sk/d/published"
	s.meta[diskPath] = meta
	w.WriteHeader(http.StatusOK)
}

func TestExists(t *testing.T) {
	stub := newDiskStub(t)
	stub.meta["disk:/Домашка"] = resourceMeta{Path: "disk:/Домашка", Type: "dir"}
	client := stub.client()

	ok, err := client.Exists(context.Background(), "disk:/Домашка")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Exists(context.Background(), "disk:/нет")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, "OAuth test-token", stub.lastAuth)
}

func TestListFilesSkipsDirectories(t *testing.T) {
	stub := newDiskStub(t)
	folder := resourceMeta{Path: "disk:/Домашка/Шаблоны", Type: "dir"}
	folder.Embedded.Items = []resourceMeta{
		{Name: "Шаблон_Офис.xlsx", Type: "file"},
		{Name: "архив", Type: "dir"},
		{Name: "Шаблон_Дача.xlsx", Type: "file"},
	}
	stub.meta["disk:/Домашка/Шаблоны"] = folder

	names, err := stub.client().ListFiles(context.Background(), "disk:/Домашка/Шаблоны")

	require.NoError(t, err)
	assert.Equal(t, []string{"Шаблон_Офис.xlsx", "Шаблон_Дача.xlsx"}, names)
}

func TestListFilesMissingFolder(t *testing.T) {
	stub := newDiskStub(t)

	_, err := stub.client().ListFiles(context.Background(), "disk:/нет")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMkdir(t *testing.T) {
	stub := newDiskStub(t)
	client := stub.client()

	require.NoError(t, client.Mkdir(context.Background(), "disk:/Домашка/Документы"))
	err := client.Mkdir(context.Background(), "disk:/Домашка/Документы")

	assert.ErrorIs(t, err, ErrPathExists)
}

func TestUploadTransfersFileBody(t *testing.T) {
	stub := newDiskStub(t)
	localPath := filepath.Join(t.TempDir(), "чек.jpg")
	require.NoError(t, os.WriteFile(localPath, []byte("receipt-bytes"), 0644))

	err := stub.client().Upload(context.Background(), localPath, "disk:/Домашка/чек.jpg", false)

	require.NoError(t, err)
	assert.Equal(t, "disk:/Домашка/чек.jpg", stub.uploadedPath)
	assert.Equal(t, "receipt-bytes", string(stub.uploadedBody))
}

func TestUploadWithoutOverwriteFailsOnExisting(t *testing.T) {
	stub := newDiskStub(t)
	stub.meta["disk:/Домашка/чек.jpg"] = resourceMeta{Path: "disk:/Домашка/чек.jpg", Type: "file"}
	localPath := filepath.Join(t.TempDir(), "чек.jpg")
	require.NoError(t, os.WriteFile(localPath, []byte("receipt-bytes"), 0644))

	err := stub.client().Upload(context.Background(), localPath, "disk:/Домашка/чек.jpg", false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DiskResourceAlreadyExistsError")
}

func TestDownloadWritesLocalFile(t *testing.T) {
	stub := newDiskStub(t)
	stub.meta["disk:/Домашка/Шаблоны/Шаблон_Офис.xlsx"] = resourceMeta{Type: "file"}
	stub.downloadBody = "spreadsheet-bytes"
	localPath := filepath.Join(t.TempDir(), "Шаблон_Офис.xlsx")

	err := stub.client().Download(context.Background(), "disk:/Домашка/Шаблоны/Шаблон_Офис.xlsx", localPath)

	require.NoError(t, err)
	body, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, "spreadsheet-bytes", string(body))
}

func TestDownloadMissingResource(t *testing.T) {
	stub := newDiskStub(t)

	err := stub.client().Download(context.Background(), "disk:/нет", filepath.Join(t.TempDir(), "out"))

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublish(t *testing.T) {
	stub := newDiskStub(t)
	stub.meta["disk:/Домашка/чек.jpg"] = resourceMeta{Path: "disk:/Домашка/чек.jpg", Type: "file"}
	client := stub.client()

	require.NoError(t, client.Publish(context.Background(), "disk:/Домашка/чек.jpg"))
	err := client.Publish(context.Background(), "disk:/Домашка/чек.jpg")
	assert.ErrorIs(t, err, ErrAlreadyPublic)

	err = client.Publish(context.Background(), "disk:/нет")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublicURLPropagation(t *testing.T) {
	stub := newDiskStub(t)
	stub.meta["disk:/Домашка/чек.jpg"] = resourceMeta{Path: "disk:/Домашка/чек.jpg", Type: "file"}
	client := stub.client()

	link, err := client.PublicURL(context.Background(), "disk:/Домашка/чек.jpg")
	require.NoError(t, err)
	assert.Empty(t, link, "link is empty until published")

	require.NoError(t, client.Publish(context.Background(), "disk:/Домашка/чек.jpg"))

	link, err = client.PublicURL(context.Background(), "disk:/Домашка/чек.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://yadi.sk/d/published", link)
}
