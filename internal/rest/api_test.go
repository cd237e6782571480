package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dfryer1193/xbrush/api"
	"github.com/dfryer1193/xbrush/internal/metrics"
	mediaapp "github.com/dfryer1193/xbrush/media/application"
	mediapersistence "github.com/dfryer1193/xbrush/media/persistence"
	portfolioapp "github.com/dfryer1193/xbrush/portfolio/application"
	portfoliopersistence "github.com/dfryer1193/xbrush/portfolio/persistence"
	"github.com/dfryer1193/xbrush/shared/db/sqlite"
	"github.com/dfryer1193/xbrush/shared/raster"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFile struct {
	field    string
	name     string
	mimeType string
	data     []byte
}

func newTestRouter(t *testing.T, compressTimeout time.Duration) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, database.Connect(context.Background()))
	t.Cleanup(func() { database.Close() })

	images := mediapersistence.NewImageRepository(database.DB())
	codec := mediaapp.NewImageCodec(raster.NewEngine())
	models := portfolioapp.NewModelService(
		portfoliopersistence.NewModelRepository(database.DB(), images),
		codec,
		portfolioapp.NewBioRenderer(),
		1<<20,
	)

	router := gin.New()
	NewApi(router, Dependencies{
		Codec:           codec,
		Images:          images,
		Storage:         mediaapp.NewStorageService(nil, images),
		Models:          models,
		MaxUploadBytes:  1 << 20,
		CompressTimeout: compressTimeout,
	})
	return router
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...testFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		h.Set("Content-Type", f.mimeType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCompress_CustomOptions(t *testing.T) {
	router := newTestRouter(t, 5*time.Second)

	req := multipartRequest(t, http.MethodPost, "/images/v1/compress",
		map[string]string{"maxWidth": "500", "maxHeight": "500", "outputFormat": "image/png"},
		testFile{field: "file", name: "wide.png", mimeType: "image/png", data: pngBytes(t, 2000, 1000)},
	)
	rec := serve(router, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var img api.Image
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &img))
	assert.Equal(t, 500, img.Width)
	assert.Equal(t, 250, img.Height)
	assert.Equal(t, 2000, img.OriginalWidth)
	assert.Equal(t, "image/png", img.Format)
	assert.Equal(t, "wide.png", img.FileName)
	assert.True(t, strings.HasPrefix(img.DataURI, "data:image/png;base64,"))
	assert.Empty(t, img.ID)
}

func TestCompress_Errors(t *testing.T) {
	router := newTestRouter(t, 5*time.Second)

	tests := []struct {
		name       string
		fields     map[string]string
		file       testFile
		wantStatus int
	}{
		{
			name:       "Unsupported type",
			file:       testFile{field: "file", name: "notes.txt", mimeType: "text/plain", data: []byte("hello")},
			wantStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:       "Undecodable image",
			file:       testFile{field: "file", name: "broken.png", mimeType: "image/png", data: []byte("not a png")},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "Bad option",
			fields:     map[string]string{"maxWidth": "wide"},
			file:       testFile{field: "file", name: "a.png", mimeType: "image/png", data: pngBytes(t, 10, 10)},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Missing file",
			file:       testFile{field: "other", name: "a.png", mimeType: "image/png", data: pngBytes(t, 10, 10)},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Too large",
			file:       testFile{field: "file", name: "huge.png", mimeType: "image/png", data: make([]byte, 2<<20)},
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, multipartRequest(t, http.MethodPost, "/images/v1/compress", tt.fields, tt.file))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestCompress_Timeout(t *testing.T) {
	router := newTestRouter(t, time.Nanosecond)

	req := multipartRequest(t, http.MethodPost, "/images/v1/thumbnail", nil,
		testFile{field: "file", name: "big.png", mimeType: "image/png", data: pngBytes(t, 3000, 3000)},
	)
	okBefore := testutil.ToFloat64(metrics.CompressTotal.WithLabelValues("thumbnail", "image/jpeg", "ok"))
	errBefore := testutil.ToFloat64(metrics.CompressTotal.WithLabelValues("thumbnail", "image/jpeg", "error"))

	rec := serve(router, req)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	// the abandoned compress still sees the whole upload and finishes cleanly
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.CompressTotal.WithLabelValues("thumbnail", "image/jpeg", "ok")) > okBefore
	}, 30*time.Second, 20*time.Millisecond)
	assert.Equal(t, errBefore, testutil.ToFloat64(metrics.CompressTotal.WithLabelValues("thumbnail", "image/jpeg", "error")))
}

func TestOpenSource_BufferedUpload(t *testing.T) {
	h := &imagesHandler{maxUploadBytes: 1 << 20}
	data := pngBytes(t, 20, 10)

	req := multipartRequest(t, http.MethodPost, "/", nil,
		testFile{field: "file", name: "small.png", mimeType: "image/png", data: data},
	)
	_, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	require.NoError(t, err)

	// maxMemory 0 spills the part to a temp file
	form, err := multipart.NewReader(req.Body, params["boundary"]).ReadForm(0)
	require.NoError(t, err)

	src, err := h.openSource(form.File["file"][0])
	require.NoError(t, err)
	require.NoError(t, form.RemoveAll())

	got, err := io.ReadAll(src.Reader)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, "small.png", src.Name)
}

func TestPersistedImageLifecycle(t *testing.T) {
	router := newTestRouter(t, 5*time.Second)

	req := multipartRequest(t, http.MethodPost, "/images/v1/thumbnail",
		map[string]string{"persist": "true"},
		testFile{field: "file", name: "wide.png", mimeType: "image/png", data: pngBytes(t, 2000, 1000)},
	)
	rec := serve(router, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created api.Image
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, 400, created.Width)
	assert.Equal(t, 200, created.Height)
	assert.Equal(t, "image/jpeg", created.Format)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/images/v1/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/images/v1/"+created.ID+"/raw", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	decoded, _, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 400, decoded.Width)

	cached := httptest.NewRequest(http.MethodGet, "/images/v1/"+created.ID+"/raw", nil)
	cached.Header.Set("If-None-Match", etag)
	rec = serve(router, cached)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/storage/v1/estimate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var est api.StorageEstimate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &est))
	assert.Positive(t, est.Usage)
	assert.Equal(t, mediaapp.FallbackQuota, est.Quota)
	assert.Equal(t, "10 MB", est.QuotaLabel)

	rec = serve(router, httptest.NewRequest(http.MethodDelete, "/images/v1/"+created.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/images/v1/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModelsLifecycle(t *testing.T) {
	router := newTestRouter(t, 5*time.Second)

	req := multipartRequest(t, http.MethodPost, "/models/v1/",
		map[string]string{"name": "Ada", "bio": "Paints *large* canvases."},
		testFile{field: "thumbnail", name: "face.png", mimeType: "image/png", data: pngBytes(t, 800, 1000)},
		testFile{field: "portfolio", name: "one.png", mimeType: "image/png", data: pngBytes(t, 900, 1600)},
		testFile{field: "portfolio", name: "two.png", mimeType: "image/png", data: pngBytes(t, 300, 300)},
	)
	rec := serve(router, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created api.Model
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Contains(t, created.BioHTML, "<em>large</em>")
	require.NotNil(t, created.Thumbnail)
	assert.Equal(t, 400, created.Thumbnail.Width)
	assert.Equal(t, 500, created.Thumbnail.Height)
	require.Len(t, created.Portfolio, 2)
	assert.Equal(t, 450, created.Portfolio[0].Width)
	assert.Equal(t, 800, created.Portfolio[0].Height)
	assert.Equal(t, 300, created.Portfolio[1].Width)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/models/v1/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []api.Model
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Empty(t, listed[0].Portfolio[0].DataURI)

	rec = serve(router, multipartRequest(t, http.MethodPut, "/models/v1/"+created.ID,
		map[string]string{"name": "Ada L."}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated api.Model
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Ada L.", updated.Name)
	assert.Len(t, updated.Portfolio, 2)

	rec = serve(router, httptest.NewRequest(http.MethodDelete, "/models/v1/"+created.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/models/v1/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateModel_Errors(t *testing.T) {
	router := newTestRouter(t, 5*time.Second)

	rec := serve(router, multipartRequest(t, http.MethodPost, "/models/v1/", map[string]string{"bio": "no name"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, multipartRequest(t, http.MethodPost, "/models/v1/",
		map[string]string{"name": "Ada"},
		testFile{field: "thumbnail", name: "face.gif", mimeType: "image/gif", data: []byte("GIF89a")},
	))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodPost, "/models/v1/", strings.NewReader(`{"name":"Ada"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, time.Second)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
