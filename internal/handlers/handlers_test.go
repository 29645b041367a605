package handlers

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LEX-PDFMAP/internal/mappings"
	"LEX-PDFMAP/internal/models"
	"LEX-PDFMAP/internal/pdftest"
	"LEX-PDFMAP/internal/processor"
	"LEX-PDFMAP/internal/services"
	"LEX-PDFMAP/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	bundles *services.MemoryBundles
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	blob, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	templates := services.NewMemoryTemplates()
	bundles := services.NewMemoryBundles()
	store := mappings.NewMemoryStore()
	engine := processor.NewFillEngine(processor.FillConfig{})
	runs := services.NewRunService(services.NewMemoryRuns())
	templateSvc := services.NewTemplateService(templates, store, blob, nil)
	sessions := services.NewEditorSessions(templates, store, 0)
	t.Cleanup(func() { sessions.Sweep(time.Now().Add(24 * time.Hour)) })

	router := NewRouter(Services{
		Templates: templateSvc,
		Mappings:  services.NewMappingService(templates, store),
		Fill:      services.NewFillService(templateSvc, store, engine, blob, runs),
		Bundles:   services.NewBundleService(bundles, templateSvc, store, engine, blob, runs, 2),
		Editor:    sessions,
		Runs:      runs,
	}, []string{"http://localhost:3000"})
	return &testServer{router: router, bundles: bundles}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) uploadFile(t *testing.T, path, field, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, name string, data []byte) models.PdfTemplate {
	t.Helper()
	w := s.uploadFile(t, "/api/v1/templates", "template", name+".pdf", data, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res struct {
		Template models.PdfTemplate `json:"template"`
	}
	decode(t, w, &res)
	return res.Template
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var res ErrorResponse
	decode(t, w, &res)
	return res.Code
}

func TestHealthAndCatalog(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Fields []struct {
			Key string `json:"key"`
		} `json:"fields"`
		Groups []string `json:"groups"`
	}
	decode(t, w, &res)
	assert.NotEmpty(t, res.Fields)
	assert.NotEmpty(t, res.Groups)
}

func TestCORS(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/templates", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Bundle-Failures")
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Run-Id")

	// a foreign origin must not get a preflight pass
	req = httptest.NewRequest(http.MethodOptions, "/api/v1/templates", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSOriginLists(t *testing.T) {
	serve := func(mw gin.HandlerFunc, origin string) *httptest.ResponseRecorder {
		r := gin.New()
		r.Use(mw)
		r.GET("/health", Health)
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := serve(CORS([]string{"*"}), "http://anything.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(CORS(nil), "http://localhost:3000")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(CORS(nil), "")
	assert.Equal(t, http.StatusOK, w.Code, "same-origin requests carry no Origin header")
}

func TestTemplateLifecycle(t *testing.T) {
	s := newServer(t)

	w := s.uploadFile(t, "/api/v1/templates", "template", "notes.pdf", []byte("not a pdf"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, CodeTemplateLoad, errorCode(t, w))

	w = s.uploadFile(t, "/api/v1/templates", "template", "notes.docx", []byte("PK"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "conversion is not configured")

	w = s.do(t, http.MethodPost, "/api/v1/templates", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	tpl := s.upload(t, "Visa Form", pdftest.Pages(2))
	assert.Equal(t, 2, tpl.PageCount)

	w = s.do(t, http.MethodGet, "/api/v1/templates/"+tpl.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.PdfTemplate
	decode(t, w, &got)
	assert.Equal(t, "Visa Form", got.Name)

	w = s.do(t, http.MethodGet, "/api/v1/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total int `json:"total"`
	}
	decode(t, w, &list)
	assert.Equal(t, 1, list.Total)

	w = s.do(t, http.MethodDelete, "/api/v1/templates/"+tpl.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/templates/"+tpl.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, errorCode(t, w))
}

func TestMappingsCRUD(t *testing.T) {
	s := newServer(t)
	tpl := s.upload(t, "form", pdftest.Pages(2))
	base := "/api/v1/templates/" + tpl.ID + "/mappings"

	w := s.do(t, http.MethodPost, base, map[string]any{
		"field_key": "first_name", "page_number": 3, "x_coordinate": 10, "y_coordinate": 10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodePageOutOfRange, errorCode(t, w))

	w = s.do(t, http.MethodPost, base, map[string]any{
		"field_key": "first_name", "page_number": 2, "x_coordinate": 10, "y_coordinate": 20, "width": 120,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.FieldMapping
	decode(t, w, &created)
	require.NotEmpty(t, created.ID)
	require.NotNil(t, created.Width)

	w = s.do(t, http.MethodPatch, "/api/v1/mappings/"+created.ID, map[string]any{"x_coordinate": 42, "width": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.FieldMapping
	decode(t, w, &updated)
	assert.Equal(t, 42.0, updated.XCoordinate)
	assert.Equal(t, 20.0, updated.YCoordinate)
	assert.Nil(t, updated.Width)

	w = s.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Mappings []models.FieldMapping `json:"mappings"`
	}
	decode(t, w, &list)
	require.Len(t, list.Mappings, 1)

	w = s.do(t, http.MethodDelete, "/api/v1/mappings/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodPatch, "/api/v1/mappings/"+created.ID, map[string]any{"x_coordinate": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetect(t *testing.T) {
	s := newServer(t)
	form := pdftest.WithWidgets(pdftest.Widget{Name: "nombre", Rect: [4]float64{100, 700, 250, 714}})

	w := s.uploadFile(t, "/api/v1/detect", "file", "form.pdf", form, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res services.DetectResult
	decode(t, w, &res)
	assert.Equal(t, 1, res.Found)

	tpl := s.upload(t, "form", form)
	w = s.do(t, http.MethodPost, "/api/v1/templates/"+tpl.ID+"/detect", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &res)
	require.Len(t, res.Mappings, 1)
	assert.NotEmpty(t, res.Mappings[0].ID)

	plain := s.upload(t, "plain", pdftest.Letter())
	w = s.do(t, http.MethodPost, "/api/v1/templates/"+plain.ID+"/detect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	assert.Zero(t, res.Found)
	assert.NotEmpty(t, res.Message)
}

func TestFill(t *testing.T) {
	s := newServer(t)
	tpl := s.upload(t, "Solicitud", pdftest.Letter())
	w := s.do(t, http.MethodPost, "/api/v1/templates/"+tpl.ID+"/mappings", map[string]any{
		"field_key": "first_name", "page_number": 1, "x_coordinate": 100, "y_coordinate": 100,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/templates/"+tpl.ID+"/fill?archive=true", map[string]any{
		"subject": map[string]string{"first_name": "Ana"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Solicitud.pdf")
	assert.NotEmpty(t, w.Header().Get("X-Run-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Archive-Path"))
	n, err := pdftest.PageCount(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	w = s.do(t, http.MethodPost, "/api/v1/templates/"+tpl.ID+"/fill?archive=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/templates/missing/fill", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/runs?kind=fill", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var runs RunsResponse
	decode(t, w, &runs)
	assert.Equal(t, int64(2), runs.Total)
	assert.Equal(t, 1, runs.TotalPages)
	assert.Equal(t, 50, runs.Limit)

	w = s.do(t, http.MethodGet, "/api/v1/runs/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats services.RunStats
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.ByStatus[models.RunStatusCompleted])
	assert.Equal(t, 1, stats.ByStatus[models.RunStatusFailed])
}

func TestAssembleBundle(t *testing.T) {
	s := newServer(t)
	cover := s.upload(t, "Cover", pdftest.Letter())
	annex := s.upload(t, "Annex", pdftest.Pages(2))
	gone := s.upload(t, "Gone", pdftest.Letter())
	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/templates/"+gone.ID, nil).Code)

	s.bundles.Put(models.Bundle{ID: "b-1", Name: "Residencia", Items: []models.BundleTemplate{
		{ID: "i-1", TemplateID: annex.ID, DisplayOrder: 3},
		{ID: "i-2", TemplateID: gone.ID, DisplayOrder: 2},
		{ID: "i-3", TemplateID: cover.ID, DisplayOrder: 1},
	}})

	w := s.do(t, http.MethodPost, "/api/v1/bundles/b-1/assemble", map[string]any{"subject": map[string]string{}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("X-Bundle-Failures"))
	assert.Equal(t, "2", w.Header().Get("X-Bundle-Files"))

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"01_Cover.pdf", "03_Annex.pdf"}, names)

	s.bundles.Put(models.Bundle{ID: "b-2", Name: "Empty", Items: []models.BundleTemplate{
		{ID: "i-4", TemplateID: gone.ID},
	}})
	w = s.do(t, http.MethodPost, "/api/v1/bundles/b-2/assemble", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var res ErrorResponse
	decode(t, w, &res)
	assert.Equal(t, CodeEmptyBundle, res.Code)
	assert.Len(t, res.Failures, 1)

	w = s.do(t, http.MethodPost, "/api/v1/bundles/nope/assemble", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditorSession(t *testing.T) {
	s := newServer(t)
	tpl := s.upload(t, "form", pdftest.Pages(2))

	w := s.do(t, http.MethodPost, "/api/v1/templates/"+tpl.ID+"/editor/sessions", map[string]any{"scale": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var st services.EditorState
	decode(t, w, &st)
	require.NotEmpty(t, st.SessionID)
	assert.Equal(t, 2.0, st.Scale)
	path := "/api/v1/editor/sessions/" + st.SessionID

	w = s.do(t, http.MethodPost, path+"/events", map[string]any{"events": []map[string]any{
		{"type": "pointer_down", "x": 200, "y": 300},
		{"type": "place", "field_key": "last_name"},
		{"type": "flush"},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &st)
	require.Len(t, st.Fields, 1)
	assert.Equal(t, 100.0, st.Fields[0].Mapping.XCoordinate)
	assert.Equal(t, 150.0, st.Fields[0].Mapping.YCoordinate)

	w = s.do(t, http.MethodPost, path+"/events", map[string]any{"events": []map[string]any{
		{"type": "page", "page": 2},
		{"type": "page", "page": 7},
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var failed EventsResponse
	decode(t, w, &failed)
	assert.Equal(t, CodePageOutOfRange, failed.Code)
	require.NotNil(t, failed.EditorState)
	assert.Equal(t, 2, failed.Page)

	w = s.do(t, http.MethodPost, path+"/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/templates/"+tpl.ID+"/mappings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Mappings []models.FieldMapping `json:"mappings"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Mappings, 1)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, path+"/reconcile", nil).Code)
}
