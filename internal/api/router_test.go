package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/orion/internal/api/workspace"
	"github.com/liliang-cn/orion/internal/client"
	"github.com/liliang-cn/orion/internal/domain"
	"github.com/liliang-cn/orion/internal/service"
	"github.com/liliang-cn/orion/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBackend stands in for the analysis backend
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	r := gin.New()
	r.POST("/upload", func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"fileId":  "file-1",
			"columns": []gin.H{{"name": "region", "type": "string"}, {"name": "sales", "type": "number"}},
			"summary": gin.H{"sales": gin.H{"totalCount": fh.Size}},
		})
	})
	r.POST("/suggestions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"suggestions": []string{"Top regions?"}})
	})
	r.POST("/analyze", func(c *gin.Context) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		_ = c.ShouldBindJSON(&req)
		if req.Prompt == "fail" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed", "requestId": "backend-req-1", "type": "analysis_error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"insights":    "West leads.",
			"chartStatus": "success",
			"charts": []gin.H{{
				"type": "bar", "x": "region", "y": "sales",
				"data": []gin.H{{"region": "West", "sales": 10}, {"region": "East", "sales": 4}},
			}},
		})
	})
	r.POST("/contextual-suggestions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"suggestions": []string{"And by month?"}})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newRouter(t *testing.T, apiKey string) *gin.Engine {
	t.Helper()
	backend := fakeBackend(t)
	st := store.New(store.NewReducer(), nil)
	svc := service.NewWorkspaceService(st, client.New(backend.URL), nil, nil)
	return SetupRouter(svc, RouterConfig{APIKey: apiKey, AllowOrigins: []string{"*"}})
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func uploadCSV(t *testing.T, r http.Handler, name string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, _ = part.Write([]byte("region,sales\nWest,10\nEast,4\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId"`
	Status    int    `json:"status"`
	Type      string `json:"type"`
}

func TestHealth(t *testing.T) {
	w := do(newRouter(t, ""), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestUploadAskFlow(t *testing.T) {
	r := newRouter(t, "")

	w := uploadCSV(t, r, "Sales.csv")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	schema := decode[domain.DatasetSchema](t, w)
	assert.Equal(t, "file-1", schema.FileID)
	assert.Equal(t, "Sales.csv", schema.FileName)

	state := decode[workspace.StateResponse](t, do(r, http.MethodGet, "/api/state", nil))
	require.Len(t, state.State.ChatThreads, 1)
	assert.Equal(t, "Sales", state.State.ChatThreads[0].Title)
	assert.Equal(t, "file-1", state.CurrentFileID)
	assert.Equal(t, []string{"Top regions?"}, state.State.Suggestions)

	w = do(r, http.MethodPost, "/api/ask", gin.H{"prompt": "sales by region"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	msg := decode[domain.ChatMessage](t, w)
	assert.Equal(t, "West leads.", msg.Content)
	require.Len(t, msg.Charts, 1)

	threadID := state.State.ActiveThreadID
	w = do(r, http.MethodGet, "/api/threads/"+threadID+"/messages/"+msg.ID+"/charts", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	charts := decode[struct {
		ChartStatus string `json:"chartStatus"`
		Plans       []struct {
			Layout string `json:"layout"`
			XKey   string `json:"xKey"`
			Rows   int    `json:"rows"`
		} `json:"plans"`
	}](t, w)
	assert.Equal(t, "success", charts.ChartStatus)
	require.Len(t, charts.Plans, 1)
	assert.Equal(t, "bar", charts.Plans[0].Layout)
	assert.Equal(t, 2, charts.Plans[0].Rows)

	w = do(r, http.MethodGet, "/api/suggestions/contextual", nil)
	assert.JSONEq(t, `{"suggestions":["And by month?"]}`, w.Body.String())

	state = decode[workspace.StateResponse](t, do(r, http.MethodGet, "/api/state", nil))
	assert.Len(t, state.CurrentMessages, 2)
	assert.Equal(t, "sales by region", state.State.ChatThreads[0].Title)
}

func TestAskBackendErrorIsBadGateway(t *testing.T) {
	r := newRouter(t, "")
	require.Equal(t, http.StatusOK, uploadCSV(t, r, "Sales.csv").Code)

	w := do(r, http.MethodPost, "/api/ask", gin.H{"prompt": "fail"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, "Analysis failed", body.Error)
	assert.Equal(t, "backend-req-1", body.RequestID)
	assert.Equal(t, http.StatusInternalServerError, body.Status)

	state := decode[workspace.StateResponse](t, do(r, http.MethodGet, "/api/state", nil))
	require.Len(t, state.CurrentMessages, 2)
	assert.Equal(t, "I encountered an error: Analysis failed (Request ID: backend-req-1)", state.CurrentMessages[1].Content)
}

func TestAskWithoutDataset(t *testing.T) {
	r := newRouter(t, "")
	w := do(r, http.MethodPost, "/api/ask", gin.H{"prompt": "hello"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, "invalid_request", body.Type)
	assert.Equal(t, w.Header().Get("X-Request-ID"), body.RequestID)

	w = do(r, http.MethodPost, "/api/ask", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRejections(t *testing.T) {
	r := newRouter(t, "")

	w := do(r, http.MethodPost, "/api/upload", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file uploaded", decode[errorBody](t, w).Error)

	w = uploadCSV(t, r, "notes.txt")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(decode[errorBody](t, w).Error, "unsupported file type"))
}

func TestThreadRoutes(t *testing.T) {
	r := newRouter(t, "")

	w := do(r, http.MethodPost, "/api/threads", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	a := decode[domain.ChatThread](t, w)
	assert.Equal(t, domain.DefaultThreadTitle, a.Title)

	b := decode[domain.ChatThread](t, do(r, http.MethodPost, "/api/threads", nil))

	w = do(r, http.MethodPut, "/api/threads/"+a.ID+"/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, a.ID, decode[workspace.StateResponse](t, w).State.ActiveThreadID)

	w = do(r, http.MethodPatch, "/api/threads/"+b.ID, gin.H{"title": "Budget"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Budget", decode[domain.ChatThread](t, w).Title)

	w = do(r, http.MethodPatch, "/api/threads/"+b.ID, gin.H{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodDelete, "/api/threads/"+a.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodDelete, "/api/threads/"+a.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, w).Type)

	w = do(r, http.MethodPut, "/api/threads/missing/active", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	state := decode[workspace.StateResponse](t, do(r, http.MethodGet, "/api/state", nil))
	assert.Equal(t, b.ID, state.State.ActiveThreadID)
	assert.Equal(t, []string{"Budget"}, state.State.ThreadTitles())
}

func TestReset(t *testing.T) {
	r := newRouter(t, "")
	require.Equal(t, http.StatusOK, uploadCSV(t, r, "Sales.csv").Code)

	w := do(r, http.MethodPost, "/api/reset", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	state := decode[workspace.StateResponse](t, do(r, http.MethodGet, "/api/state", nil))
	assert.Empty(t, state.State.ChatThreads)
	assert.Nil(t, state.CurrentSchema)
}

func TestAPIKeyRequired(t *testing.T) {
	r := newRouter(t, "secret")

	w := do(r, http.MethodGet, "/api/state", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.Header.Set("X-API-Key", "secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", nil).Code)
}
