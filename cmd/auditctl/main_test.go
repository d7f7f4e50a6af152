package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rodrigo270695/portalAD-sub001/internal/auth"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/repositories"
)

func TestMain(m *testing.M) {
	os.Setenv("PORTAL_JWT_SECRET", "test-jwt-secret-that-is-32-chars!!")
	os.Exit(m.Run())
}

type batchSource struct {
	batches [][]*models.ActivityLog
	err     error
}

func (s *batchSource) Stream(_ context.Context, _ repositories.ActivityFilters, _ int, fn func([]*models.ActivityLog) error) error {
	for _, b := range s.batches {
		if err := fn(b); err != nil {
			return err
		}
	}
	return s.err
}

func record(action string) *models.ActivityLog {
	return &models.ActivityLog{Action: action, DeviceType: models.DeviceDesktop, AppState: "active",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), Metadata: models.Metadata{}}
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func TestRootCommand_Subcommands(t *testing.T) {
	for _, path := range [][]string{
		{"export"},
		{"archives", "create"},
		{"archives", "list"},
		{"archives", "verify"},
		{"stats"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "version"},
		{"token"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestExportCommand_FilterFlags(t *testing.T) {
	cmd := newExportCmd()
	for _, name := range []string{"user", "action", "device", "search", "from", "to", "out"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

// ---------------------------------------------------------------------------
// runExport
// ---------------------------------------------------------------------------

func TestRunExport_WritesEveryBatch(t *testing.T) {
	src := &batchSource{batches: [][]*models.ActivityLog{
		{record("page_view"), record("file_download")},
		{record("model_created")},
	}}
	var buf bytes.Buffer

	rows, err := runExport(context.Background(), &buf, src, repositories.ActivityFilters{}, 2)

	require.NoError(t, err)
	assert.Equal(t, 3, rows)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4, "header plus three records")
	assert.Contains(t, lines[3], "model_created")
}

func TestRunExport_ReportsPartialProgress(t *testing.T) {
	src := &batchSource{batches: [][]*models.ActivityLog{{record("page_view")}}, err: errors.New("connection reset")}

	rows, err := runExport(context.Background(), &bytes.Buffer{}, src, repositories.ActivityFilters{}, 10)

	assert.Equal(t, 1, rows)
	assert.ErrorContains(t, err, "after 1 rows")
}

// ---------------------------------------------------------------------------
// issueToken
// ---------------------------------------------------------------------------

func TestIssueToken_DefaultScopes(t *testing.T) {
	token, err := issueToken("42", "ana@example.com", nil, time.Hour)
	require.NoError(t, err)

	claims, err := auth.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, auth.DefaultScopes(), claims.Scopes)
}

func TestIssueToken_Rejects(t *testing.T) {
	_, err := issueToken("42", "", []string{"modules:write"}, time.Hour)
	assert.ErrorContains(t, err, "invalid scope")

	_, err = issueToken("42", "", nil, 0)
	assert.ErrorContains(t, err, "ttl must be positive")
}
