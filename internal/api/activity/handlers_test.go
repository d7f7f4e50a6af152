package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rodrigo270695/portalAD-sub001/internal/audit"
	"github.com/Rodrigo270695/portalAD-sub001/internal/config"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/repositories"
	"github.com/Rodrigo270695/portalAD-sub001/internal/export"
	"github.com/Rodrigo270695/portalAD-sub001/internal/middleware"
	"github.com/Rodrigo270695/portalAD-sub001/internal/storage/local"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Test setup helpers
// ---------------------------------------------------------------------------

var activityCols = []string{
	"id", "user_id", "action", "description", "ip_address", "user_agent",
	"device_type", "app_state", "route", "metadata", "created_at",
}

var rowTime = time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)

func activityRows(ids ...int64) *sqlmock.Rows {
	rows := sqlmock.NewRows(activityCols)
	for _, id := range ids {
		rows.AddRow(id, "user-1", "page_view", "Viewed /dashboard", "10.0.0.1",
			"Mozilla/5.0 (Windows NT 10.0)", "desktop", "active", "/dashboard",
			[]byte(`{"response_time_ms":12.5}`), rowTime)
	}
	return rows
}

type loggedCall struct {
	action      string
	description string
	data        models.Metadata
}

// recordingLogger is an audit.Logger keeping every call.
type recordingLogger struct {
	mu    sync.Mutex
	calls []loggedCall
}

func (l *recordingLogger) Log(_ context.Context, action, description string, data models.Metadata) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, loggedCall{action, description, data})
}

type testEnv struct {
	mock   sqlmock.Sqlmock
	logger *recordingLogger
	router *gin.Engine
	store  *local.LocalStorage
}

func newTestEnv(t *testing.T, withArchive bool) *testEnv {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repositories.NewActivityLogRepository(sqlx.NewDb(db, "sqlmock"))
	logger := &recordingLogger{}

	env := &testEnv{mock: mock, logger: logger}

	var archiver *export.Archiver
	if withArchive {
		store, err := local.New(&config.LocalStorageConfig{BasePath: t.TempDir()})
		require.NoError(t, err)
		env.store = store
		archiver = export.NewArchiver(repo, store, "activity-exports", 2)
	}

	h := NewHandlers(logger, repo, audit.NewReports(repo), archiver, time.UTC, 2)

	r := gin.New()
	r.POST("/activity", h.RecordHandler())
	r.GET("/activity", h.ListHandler())
	r.GET("/activity/:id", h.GetHandler())
	r.GET("/activity/export", h.ExportHandler())
	r.POST("/activity/exports", h.CreateArchiveHandler())
	r.GET("/activity/exports", h.ListArchivesHandler())
	r.GET("/activity/exports/*path", h.DownloadArchiveHandler())
	r.GET("/activity/stats", func(c *gin.Context) {
		c.Set(middleware.SessionStartKey, time.Now().Add(-30*time.Minute))
	}, h.StatsHandler())
	r.GET("/activity/stats/anonymous", h.StatsHandler())

	env.router = r
	return env
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// RecordHandler
// ---------------------------------------------------------------------------

func TestRecordHandler_ForwardsToEnricher(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(http.MethodPost, "/activity",
		`{"action":"report_opened","description":"Opened sales report","additional_data":{"report":"weekly","response_time_ms":"caller"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	require.Len(t, env.logger.calls, 1)
	call := env.logger.calls[0]
	assert.Equal(t, "report_opened", call.action)
	assert.Equal(t, "Opened sales report", call.description)
	assert.Equal(t, "weekly", call.data["report"])
}

func TestRecordHandler_OptionalFields(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(http.MethodPost, "/activity", `{"action":"logout"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.logger.calls, 1)
	assert.Equal(t, "", env.logger.calls[0].description)
	assert.Nil(t, env.logger.calls[0].data)
}

func TestRecordHandler_MalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"action":`},
		{"action wrong type", `{"action":42}`},
		{"description wrong type", `{"action":"x","description":["a"]}`},
		{"additional_data wrong type", `{"action":"x","additional_data":[1,2]}`},
		{"missing action", `{"description":"no action"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false)
			w := env.do(http.MethodPost, "/activity", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, env.logger.calls, "malformed payloads must not reach the enricher")
		})
	}
}

// ---------------------------------------------------------------------------
// ListHandler
// ---------------------------------------------------------------------------

func TestListHandler_Paginated(t *testing.T) {
	env := newTestEnv(t, false)
	env.mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-1", "page_view").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	env.mock.ExpectQuery("SELECT id, user_id").
		WithArgs("user-1", "page_view", 2, 2).
		WillReturnRows(activityRows(7))

	w := env.do(http.MethodGet, "/activity?user_id=user-1&action=page_view&page=2&per_page=2", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Activities []models.ActivityLog `json:"activities"`
		Pagination map[string]int       `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Activities, 1)
	assert.Equal(t, int64(7), body.Activities[0].ID)
	assert.Equal(t, map[string]int{"page": 2, "per_page": 2, "total": 3}, body.Pagination)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestListHandler_DateOnlyToIsInclusive(t *testing.T) {
	env := newTestEnv(t, false)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 23, 59, 59, 999999999, time.UTC)
	env.mock.ExpectQuery("SELECT COUNT").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	env.mock.ExpectQuery("SELECT id, user_id").
		WithArgs(from, to, 20, 0).
		WillReturnRows(activityRows())

	w := env.do(http.MethodGet, "/activity?from=2026-03-01&to=2026-03-02&per_page=500", "")

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestListHandler_InvalidFilters(t *testing.T) {
	for _, q := range []string{
		"device_type=watch",
		"from=yesterday",
		"to=03/02/2026",
		"from=2026-03-05&to=2026-03-01",
	} {
		env := newTestEnv(t, false)
		w := env.do(http.MethodGet, "/activity?"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestListHandler_DBError(t *testing.T) {
	env := newTestEnv(t, false)
	env.mock.ExpectQuery("SELECT COUNT").WillReturnError(sqlmock.ErrCancelled)

	w := env.do(http.MethodGet, "/activity", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// ---------------------------------------------------------------------------
// GetHandler
// ---------------------------------------------------------------------------

func TestGetHandler(t *testing.T) {
	env := newTestEnv(t, false)
	env.mock.ExpectQuery("SELECT id, user_id").
		WithArgs(int64(7)).
		WillReturnRows(activityRows(7))

	w := env.do(http.MethodGet, "/activity/7", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got models.ActivityLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "page_view", got.Action)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestGetHandler_Errors(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		env := newTestEnv(t, false)
		for _, id := range []string{"abc", "0", "-3"} {
			w := env.do(http.MethodGet, "/activity/"+id, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, id)
		}
	})

	t.Run("not found", func(t *testing.T) {
		env := newTestEnv(t, false)
		env.mock.ExpectQuery("SELECT id, user_id").WithArgs(int64(9)).WillReturnRows(activityRows())

		w := env.do(http.MethodGet, "/activity/9", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Activity not found"}`, w.Body.String())
	})

	t.Run("db error", func(t *testing.T) {
		env := newTestEnv(t, false)
		env.mock.ExpectQuery("SELECT id, user_id").WillReturnError(sqlmock.ErrCancelled)

		w := env.do(http.MethodGet, "/activity/9", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

// ---------------------------------------------------------------------------
// ExportHandler
// ---------------------------------------------------------------------------

func TestExportHandler_StreamsCSVAttachment(t *testing.T) {
	env := newTestEnv(t, false)
	// batch size 2: a full batch, then a short one ends the walk
	env.mock.ExpectQuery("SELECT id, user_id").WillReturnRows(activityRows(9, 8))
	env.mock.ExpectQuery("SELECT id, user_id").WillReturnRows(activityRows(7))

	w := env.do(http.MethodGet, "/activity/export", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="activity-\d{8}-\d{6}\.csv"$`, w.Header().Get("Content-Disposition"))

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "id,created_at,user_id,action"))
	assert.True(t, strings.HasPrefix(lines[1], "9,"))
	assert.True(t, strings.HasPrefix(lines[3], "7,"))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestExportHandler_InvalidFilter(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(http.MethodGet, "/activity/export?device_type=fridge", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))
}

// ---------------------------------------------------------------------------
// Archive handlers
// ---------------------------------------------------------------------------

func TestArchiveHandlers_NotConfigured(t *testing.T) {
	env := newTestEnv(t, false)
	for _, tc := range []struct{ method, target string }{
		{http.MethodPost, "/activity/exports"},
		{http.MethodGet, "/activity/exports"},
		{http.MethodGet, "/activity/exports/2026/03/04/a.csv"},
	} {
		w := env.do(tc.method, tc.target, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, tc.target)
	}
}

func TestArchiveHandlers_CreateListDownload(t *testing.T) {
	env := newTestEnv(t, true)
	env.mock.ExpectQuery("SELECT id, user_id").WillReturnRows(activityRows(5))

	w := env.do(http.MethodPost, "/activity/exports", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Name     string `json:"name"`
		Rows     int    `json:"rows"`
		Checksum string `json:"checksum"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 1, created.Rows)
	assert.Len(t, created.Checksum, 64)
	assert.Regexp(t, `^\d{4}/\d{2}/\d{2}/activity-.*\.csv$`, created.Name)

	w = env.do(http.MethodGet, "/activity/exports", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.Name)

	w = env.do(http.MethodGet, "/activity/exports/"+created.Name, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, created.Checksum, w.Header().Get("X-Checksum-SHA256"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "id,created_at"))
}

func TestDownloadArchiveHandler_Errors(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(http.MethodGet, "/activity/exports/2026/01/01/missing.csv", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/activity/exports/2026//a.csv", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---------------------------------------------------------------------------
// StatsHandler
// ---------------------------------------------------------------------------

func TestStatsHandler(t *testing.T) {
	env := newTestEnv(t, false)
	env.mock.ExpectQuery("SELECT AVG").
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(120.5))

	w := env.do(http.MethodGet, "/activity/stats", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"average_response_time_ms":120.5,"session_duration_minutes":30}`, w.Body.String())
}

func TestStatsHandler_NoSessionAndQueryFailure(t *testing.T) {
	env := newTestEnv(t, false)
	env.mock.ExpectQuery("SELECT AVG").WillReturnError(sqlmock.ErrCancelled)

	w := env.do(http.MethodGet, "/activity/stats/anonymous", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"average_response_time_ms":0,"session_duration_minutes":0}`, w.Body.String())
}
