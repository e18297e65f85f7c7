package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"biostats-go/internal/config"
	"biostats-go/internal/middleware"
	"biostats-go/internal/models"
	"biostats-go/internal/repository"
	"biostats-go/internal/service"
	"biostats-go/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminPassword = "admin-pass"
	ingestKey     = "ingest-key"
)

const catalogYAML = `
datasets:
  - name: bc5cdr
    configs:
      - name: bc5cdr_bigbio_kb
        schema: bigbio_kb
        splits:
          train:
            samples_count: 2
            entities_type_counter:
              Disease: 12
              Chemical: 7
          test:
            samples_count: 1
            entities_type_counter:
              Disease: 3
`

const trainJSONL = `{"id":"1","passages":[{"type":"title","text":["Naloxone reverses"]},{"type":"abstract","text":["a b c"]}]}
{"id":"2","passages":[{"type":"title","text":["x"]},{"type":"abstract","text":["one two"]}]}
`

type testServer struct {
	engine *gin.Engine
	redis  *redis.Client
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Database.Path = ":memory:"
	cfg.JWT.SecretKey = "test-secret"
	cfg.Admin.Password = adminPassword
	cfg.Ingest.APIKey = ingestKey
	config.SetDefaults(cfg)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := models.Open(":memory:")
	require.NoError(t, err)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	jwtManager := utils.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Algorithm, cfg.JWT.GetExpireDuration())
	auth := service.NewAuthService(repository.NewUserRepository(db), jwtManager, cfg.Admin, logger)
	require.NoError(t, auth.InitAdmin())

	engine := SetupRouter(cfg, jwtManager, logger, db, client, prometheus.NewRegistry())
	return &testServer{engine: engine, redis: client}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

func (s *testServer) login(t *testing.T, username, password string) map[string]string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/login",
		fmt.Sprintf(`{"username":%q,"password":%q}`, username, password),
		map[string]string{"Content-Type": "application/json"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &resp)
	return map[string]string{"Authorization": "Bearer " + resp.AccessToken}
}

// seed 以管理员身份导入目录和 train 划分
func (s *testServer) seed(t *testing.T) map[string]string {
	t.Helper()
	admin := s.login(t, "admin", adminPassword)

	w := s.do(t, http.MethodPost, "/api/admin/catalog/import", catalogYAML, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/admin/datasets/bc5cdr/configs/bc5cdr_bigbio_kb/splits/train", trainJSONL, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return admin
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "BigBio")

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `biostats_http_requests_total{method="GET",path="/",status="200"} 1`)
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	w := s.do(t, http.MethodGet, "/api/datasets", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var datasets struct {
		Datasets []string `json:"datasets"`
	}
	decode(t, w, &datasets)
	assert.Equal(t, []string{"bc5cdr"}, datasets.Datasets)

	w = s.do(t, http.MethodGet, "/api/datasets/bc5cdr", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"bc5cdr"`)

	w = s.do(t, http.MethodGet, "/api/datasets/bc5cdr/configs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"schema":"bigbio_kb"`)

	w = s.do(t, http.MethodGet, "/api/datasets/unknown/configs", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardFlow(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	w := s.do(t, http.MethodGet, "/api/dashboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sessionID := w.Header().Get(middleware.SessionHeader)
	require.NotEmpty(t, sessionID)

	var view struct {
		Title   string `json:"title"`
		Config  string `json:"config"`
		Fetched bool   `json:"fetched"`
	}
	decode(t, w, &view)
	assert.Equal(t, "Dataset stats for bc5cdr", view.Title)
	assert.Equal(t, "bc5cdr_bigbio_kb", view.Config)
	assert.False(t, view.Fetched)

	session := map[string]string{middleware.SessionHeader: sessionID}

	// 未 fetch 前不能查看标签
	w = s.do(t, http.MethodGet, "/api/dashboard/labels", "", session)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/dashboard/fetch", "", session)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, sessionID, w.Header().Get(middleware.SessionHeader))

	var fetched struct {
		Fetched      bool `json:"fetched"`
		TokenLengths struct {
			Columns []string `json:"columns"`
		} `json:"token_lengths"`
		Counters []string `json:"counters"`
	}
	env := decode(t, w, &fetched)
	assert.Equal(t, "统计完成", env.Message)
	assert.True(t, fetched.Fetched)
	assert.Equal(t, []string{"title", "abstract", "total_token_length", "split"}, fetched.TokenLengths.Columns)
	assert.Equal(t, []string{"entities_type_counter"}, fetched.Counters)

	w = s.do(t, http.MethodGet, "/api/dashboard/labels?counter_type=entities_type_counter&min=5", "", session)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var labels struct {
		Filter int64 `json:"filter"`
	}
	decode(t, w, &labels)
	assert.Equal(t, int64(5), labels.Filter)

	w = s.do(t, http.MethodGet, "/api/dashboard/token_lengths.csv", "", session)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "bc5cdr_bigbio_kb_token_lengths.csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "title,abstract,total_token_length,split", lines[0])
	assert.Equal(t, "2,3,5,train", lines[1])

	w = s.do(t, http.MethodGet, "/api/dashboard/token_lengths.jsonl", "", session)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "bc5cdr_bigbio_kb_token_lengths.jsonl")
	lines = strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"title":2,"abstract":3,"total_token_length":5,"split":"train"}`, lines[0])

	// 不同会话互不影响
	w = s.do(t, http.MethodGet, "/api/dashboard/token_lengths.csv", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardFetchWithoutTrainSplit(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", adminPassword)

	manifest := `
datasets:
  - name: chemprot
    configs:
      - name: chemprot_bigbio_kb
        schema: bigbio_kb
        splits:
          validation:
            samples_count: 1
            labels_counter:
              "CPR:3": 4
`
	w := s.do(t, http.MethodPost, "/api/admin/catalog/import", manifest, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	session := map[string]string{middleware.SessionHeader: "0b7e4f1e-5d0a-4c43-9a57-2f0f3a3c2e10"}
	w = s.do(t, http.MethodPost, "/api/dashboard/fetch", "", session)
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "train")
}

func TestDashboardProgressStream(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	sessionID := "6f1c1d52-3a55-4b2b-9d52-0c6d1c1b8a11"
	progress := service.NewProgressStore(s.redis, time.Minute)
	require.NoError(t, progress.Set(context.Background(), sessionID, &service.ProgressState{Split: "train", Done: 1, Total: 2}))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/progress", nil).WithContext(ctx)
	req.Header.Set(middleware.SessionHeader, sessionID)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, `data: {"session_id":"`+sessionID+`","type":"connected"}`)
	assert.Contains(t, body, `"split":"train","done":1,"total":2`)
}

func TestAdminRoles(t *testing.T) {
	s := newTestServer(t)
	admin := s.seed(t)
	jsonHeaders := func(h map[string]string) map[string]string {
		out := map[string]string{"Content-Type": "application/json"}
		for k, v := range h {
			out[k] = v
		}
		return out
	}

	w := s.do(t, http.MethodGet, "/api/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/users", `{"username":"curator","password":"curator1"}`, jsonHeaders(admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/admin/users", `{"username":"curator","password":"curator1"}`, jsonHeaders(admin))
	assert.Equal(t, http.StatusConflict, w.Code)
	w = s.do(t, http.MethodPost, "/api/admin/users", `{"username":"x","password":"curator1"}`, jsonHeaders(admin))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	editor := s.login(t, "curator", "curator1")

	w = s.do(t, http.MethodGet, "/api/me", "", editor)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"editor"`)

	// editor 可以维护内容，不能管理用户和删除数据集
	w = s.do(t, http.MethodPost, "/api/admin/datasets/bc5cdr/configs/bc5cdr_bigbio_kb/splits/test",
		`{"id":"3","passages":[{"type":"title","text":["t"]}]}`, editor)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodGet, "/api/admin/users", "", editor)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodDelete, "/api/admin/datasets/bc5cdr", "", editor)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/datasets/bc5cdr/configs/missing/splits/train", trainJSONL, editor)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPost, "/api/admin/datasets/bc5cdr/configs/bc5cdr_bigbio_kb/splits/train", "{broken", editor)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/admin/catalog/import", "", editor)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/admin/hub/import", `{"dataset":"bc5cdr"}`, jsonHeaders(editor))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/users?page=1&per_page=1", "", admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":2`)

	w = s.do(t, http.MethodDelete, "/api/admin/datasets/bc5cdr", "", admin)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, "/api/admin/datasets/bc5cdr", "", admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngestRecords(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	body := `{"dataset":"bc5cdr","config":"bc5cdr_bigbio_kb","split":"test","records":[{"id":"9","passages":[]}]}`

	w := s.do(t, http.MethodPost, "/api/ingest/records", body, map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/ingest/records", body, map[string]string{
		"Content-Type":                "application/json",
		middleware.IngestAPIKeyHeader: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/ingest/records", body, map[string]string{
		"Content-Type":                "application/json",
		middleware.IngestAPIKeyHeader: ingestKey,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"records":1`)

	w = s.do(t, http.MethodPost, "/api/ingest/records",
		`{"dataset":"bc5cdr","config":"bc5cdr_bigbio_kb","split":"bad split","records":[{}]}`,
		map[string]string{"Content-Type": "application/json", middleware.IngestAPIKeyHeader: ingestKey})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
