package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/knote/internal/web/note/blob"
	"github.com/Laisky/knote/internal/web/note/model"
	"github.com/Laisky/knote/library/config"
	"github.com/Laisky/knote/library/retry"
)

func newSqliteSettings(t *testing.T) config.Settings {
	t.Helper()

	dir := t.TempDir()
	return config.Settings{
		UploadDir:      filepath.Join(dir, "uploads"),
		BlobType:       config.BlobTypeLocal,
		RenderMarkdown: true,
		DB: config.DBSettings{
			Type:   config.DBTypeSqlite,
			Sqlite: config.SqliteSettings{Path: filepath.Join(dir, "knote.db")},
		},
	}
}

func TestNewNoteStoreSqlite(t *testing.T) {
	ctx := context.Background()
	settings := newSqliteSettings(t)

	store, closeFn, err := newNoteStore(ctx, settings.DB)
	require.NoError(t, err)
	defer closeFn()

	note := &model.Note{Description: "hello"}
	require.NoError(t, store.Insert(ctx, note))
	notes, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, note.ID, notes[0].ID)
}

func TestNewNoteStoreUnknownType(t *testing.T) {
	_, _, err := newNoteStore(context.Background(), config.DBSettings{Type: "postgres"})
	require.ErrorContains(t, err, "unknown db type")
}

func TestNewBlobSinkLocal(t *testing.T) {
	settings := newSqliteSettings(t)

	sink := newBlobSink(context.Background(), settings)
	local, ok := sink.(*blob.Local)
	require.True(t, ok)
	require.Equal(t, settings.UploadDir, local.Root())
}

func TestMinioBaseURL(t *testing.T) {
	settings := config.MinioSettings{Host: "localhost", Port: 9000}
	require.Equal(t, "http://localhost:9000", minioBaseURL(settings))

	settings.UseSSL = true
	settings.Host = "minio.example.com"
	settings.Port = 443
	require.Equal(t, "https://minio.example.com:443", minioBaseURL(settings))
}

func TestMinioPolicy(t *testing.T) {
	require.Equal(t, retry.Once(), minioPolicy(config.MinioSettings{ReconnectEnabled: false}))

	policy := minioPolicy(config.MinioSettings{
		ReconnectEnabled:     true,
		ReconnectInterval:    5 * time.Second,
		ReconnectMaxAttempts: 0,
	})
	require.Equal(t, 5*time.Second, policy.Interval)
	require.Zero(t, policy.MaxAttempts, "reconnect forever")
}

func TestNewAPIHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	settings := newSqliteSettings(t)

	bk, err := setupBackends(ctx, settings)
	require.NoError(t, err)
	defer bk.close()

	handler, err := newAPIHandler(settings, bk)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, os.Mkdir(settings.UploadDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(settings.UploadDir, "a.png"), []byte("png"), 0o644))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/a.png", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))
}

func TestSetupBackendsStoreFailure(t *testing.T) {
	settings := newSqliteSettings(t)
	settings.DB.Type = "unknown"

	_, err := setupBackends(context.Background(), settings)
	require.Error(t, err)
}

func TestRunAPIStopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, runAPI(ctx, newSqliteSettings(t), "127.0.0.1:0"))
}

func TestNewAPIHandlerAllowedOriginsFromConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Cleanup(func() { gconfig.Shared.Set("settings.web.allowed_origins", nil) })
	gconfig.Shared.Set("settings.web.allowed_origins", "example.com")

	settings := newSqliteSettings(t)
	settings.Web = config.LoadSettings().Web

	bk, err := setupBackends(context.Background(), settings)
	require.NoError(t, err)
	defer bk.close()

	handler, err := newAPIHandler(settings, bk)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/note", nil)
	req.Header.Set("Origin", "https://evil.test")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}
