package controller

import (
	"bytes"
	"context"
	"database/sql"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/knote/internal/web/note/blob"
	"github.com/Laisky/knote/internal/web/note/dao"
	"github.com/Laisky/knote/internal/web/note/model"
	"github.com/Laisky/knote/internal/web/note/service"
	"github.com/Laisky/knote/library/retry"
)

var (
	ginModeOnce    sync.Once
	uploadedRegexp = regexp.MustCompile(`hello !\[\]\(/uploads/([^)]+)\)`)
)

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

type brokenStore struct{}

func (brokenStore) Insert(context.Context, *model.Note) error {
	return errors.New("store is down")
}

func (brokenStore) FindAll(context.Context) ([]*model.Note, error) {
	return nil, errors.New("store is down")
}

type testEnv struct {
	router    *gin.Engine
	uploadDir string
}

func newTestEnv(t *testing.T, store dao.Store, sink blob.Sink, opts ...service.Option) *gin.Engine {
	t.Helper()
	setupGinTestMode()

	svc, err := service.New(store, sink, opts...)
	require.NoError(t, err)

	router := gin.New()
	router.Use(gmw.NewLoggerMiddleware(
		gmw.WithLogger(logSDK.Shared.Named("test_note_controller")),
	))
	New(svc).Register(router)
	return router
}

func newSqliteEnv(t *testing.T, opts ...service.Option) testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	store, err := dao.NewSqlite(context.Background(), db)
	require.NoError(t, err)

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	return testEnv{
		router:    newTestEnv(t, store, blob.NewLocal(uploadDir), opts...),
		uploadDir: uploadDir,
	}
}

func postForm(router http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/note", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postMultipart(t *testing.T, router http.Handler, fields map[string]string, filename string, cnt []byte) *httptest.ResponseRecorder {
	t.Helper()

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(cnt)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/note", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getIndex(router http.Handler) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestIndexEmpty(t *testing.T) {
	env := newSqliteEnv(t)

	w := getIndex(env.router)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/html")
	require.Contains(t, w.Body.String(), "No notes yet.")
	require.Contains(t, w.Body.String(), `action="/note"`)
}

func TestPublishRedirects(t *testing.T) {
	env := newSqliteEnv(t)

	w := postForm(env.router, url.Values{"description": {"# first"}, "publish": {"Publish"}})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))

	w = postForm(env.router, url.Values{"description": {"second *note*"}, "publish": {"Publish"}})
	require.Equal(t, http.StatusFound, w.Code)

	w = getIndex(env.router)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, "first</h1>")
	require.Contains(t, body, "<em>note</em>")
	require.Less(t, strings.Index(body, "<em>note</em>"), strings.Index(body, "first</h1>"),
		"newest note should be listed first")
}

func TestPublishBlank(t *testing.T) {
	env := newSqliteEnv(t)

	w := postForm(env.router, url.Values{"description": {"   "}, "publish": {"Publish"}})
	require.Equal(t, http.StatusFound, w.Code)

	w = getIndex(env.router)
	require.Contains(t, w.Body.String(), "No notes yet.")
}

func TestPublishVerbatimIsEscaped(t *testing.T) {
	env := newSqliteEnv(t, service.WithRenderMarkdown(false))

	w := postForm(env.router, url.Values{"description": {"<b>bold</b>"}, "publish": {"Publish"}})
	require.Equal(t, http.StatusFound, w.Code)

	body := getIndex(env.router).Body.String()
	require.Contains(t, body, "&lt;b&gt;bold&lt;/b&gt;")
	require.NotContains(t, body, "<b>bold</b>")
}

func TestPublishUnsafeLinkIsNeutralized(t *testing.T) {
	env := newSqliteEnv(t)

	w := postForm(env.router, url.Values{
		"description": {"[click](javascript:alert(document.cookie)) ![x](javascript:alert(1))"},
		"publish":     {"Publish"},
	})
	require.Equal(t, http.StatusFound, w.Code)

	body := getIndex(env.router).Body.String()
	require.Contains(t, body, "click")
	require.NotContains(t, body, "javascript:")
	require.NotContains(t, body, "<img")
}

func TestUpload(t *testing.T) {
	env := newSqliteEnv(t)

	w := postMultipart(t, env.router,
		map[string]string{"description": "hello", "upload": "Upload"},
		"photo.jpg", []byte("jpg content"))
	require.Equal(t, http.StatusOK, w.Code)

	matched := uploadedRegexp.FindStringSubmatch(w.Body.String())
	require.Len(t, matched, 2, w.Body.String())
	require.True(t, strings.HasSuffix(matched[1], ".jpg"), matched[1])

	cnt, err := os.ReadFile(filepath.Join(env.uploadDir, matched[1]))
	require.NoError(t, err)
	require.Equal(t, "jpg content", string(cnt))

	// upload does not publish
	require.Contains(t, getIndex(env.router).Body.String(), "No notes yet.")
}

func TestUploadWithoutFile(t *testing.T) {
	env := newSqliteEnv(t)

	w := postMultipart(t, env.router,
		map[string]string{"description": "hello", "upload": "Upload"}, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), ">hello</textarea>")
	require.NotContains(t, w.Body.String(), "![](")

	w = postForm(env.router, url.Values{"description": {"hello"}, "upload": {"Upload"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), ">hello</textarea>")
}

func TestSubmitWithoutAction(t *testing.T) {
	env := newSqliteEnv(t)

	w := postMultipart(t, env.router,
		map[string]string{"description": "draft"}, "photo.jpg", []byte("jpg"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), ">draft</textarea>")

	_, err := os.Stat(env.uploadDir)
	require.ErrorIs(t, err, os.ErrNotExist, "nothing should be uploaded")
}

func TestStoreFailure(t *testing.T) {
	router := newTestEnv(t, brokenStore{}, blob.NewLocal(t.TempDir()))

	w := getIndex(router)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "store is down")

	w = postForm(router, url.Values{"description": {"hello"}, "publish": {"Publish"}})
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestUploadSinkUnavailable(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	store, err := dao.NewSqlite(context.Background(), db)
	require.NoError(t, err)

	sink := blob.NewMinio(nil, "image-storage", "http://localhost:9000", retry.Once())
	router := newTestEnv(t, store, sink)

	w := postMultipart(t, router,
		map[string]string{"description": "hello", "upload": "Upload"},
		"photo.jpg", []byte("jpg"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
