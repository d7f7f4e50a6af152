package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/lifecycle"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type recordingPublisher struct {
	events []lifecycle.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev lifecycle.Event) {
	p.events = append(p.events, ev)
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var circuitCols = []string{"id", "zonal_id", "code", "name", "address", "active", "created_at", "updated_at"}

var created = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func circuitRow(name string) *sqlmock.Rows {
	return sqlmock.NewRows(circuitCols).
		AddRow(int64(7), int64(1), "CIR-007", name, "Av. Grau 123", true, created, created)
}

// ---------------------------------------------------------------------------
// CircuitRepository
// ---------------------------------------------------------------------------

func TestCircuitCreate_PublishesAfterInsert(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &recordingPublisher{}
	repo := NewCircuitRepository(db, pub)

	mock.ExpectQuery("INSERT INTO circuits").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	c := &models.Circuit{Code: "CIR-007", Name: "Centro", Active: true}
	require.NoError(t, repo.Create(context.Background(), c))

	assert.Equal(t, int64(7), c.ID)
	require.Len(t, pub.events, 1)
	assert.Equal(t, lifecycle.Created, pub.events[0].Kind)
	assert.Equal(t, "Circuit", pub.events[0].EntityType)
	assert.Equal(t, int64(7), pub.events[0].EntityID)
	assert.Equal(t, "Centro", pub.events[0].After["name"])
}

func TestCircuitCreate_FailureDoesNotPublish(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &recordingPublisher{}
	repo := NewCircuitRepository(db, pub)

	mock.ExpectQuery("INSERT INTO circuits").WillReturnError(errDB)

	err := repo.Create(context.Background(), &models.Circuit{Code: "X"})
	assert.ErrorIs(t, err, errDB)
	assert.Empty(t, pub.events)
}

func TestCircuitCreate_NilPublisher(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCircuitRepository(db, nil)

	mock.ExpectQuery("INSERT INTO circuits").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	assert.NoError(t, repo.Create(context.Background(), &models.Circuit{Code: "X"}))
}

func TestCircuitUpdate_PublishesBeforeAndAfter(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &recordingPublisher{}
	repo := NewCircuitRepository(db, pub)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM circuits WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(7)).
		WillReturnRows(circuitRow("Centro"))
	mock.ExpectExec("UPDATE circuits SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	zonal := int64(1)
	addr := "Av. Grau 123"
	c := &models.Circuit{ID: 7, ZonalID: &zonal, Code: "CIR-007", Name: "Centro Norte", Address: &addr, Active: true}
	require.NoError(t, repo.Update(context.Background(), c))

	assert.True(t, c.CreatedAt.Equal(created), "created_at is carried over")
	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, lifecycle.Updated, ev.Kind)
	assert.Equal(t, "Centro", ev.Before["name"])
	assert.Equal(t, "Centro Norte", ev.After["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitUpdate_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &recordingPublisher{}
	repo := NewCircuitRepository(db, pub)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM circuits").WillReturnRows(sqlmock.NewRows(circuitCols))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &models.Circuit{ID: 99})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Empty(t, pub.events)
}

func TestCircuitUpdate_CommitErrorDoesNotPublish(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &recordingPublisher{}
	repo := NewCircuitRepository(db, pub)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM circuits").WillReturnRows(circuitRow("Centro"))
	mock.ExpectExec("UPDATE circuits SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errDB)

	err := repo.Update(context.Background(), &models.Circuit{ID: 7, Name: "Centro Norte"})
	assert.ErrorIs(t, err, errDB)
	assert.Empty(t, pub.events)
}

func TestCircuitDelete_PublishesSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &recordingPublisher{}
	repo := NewCircuitRepository(db, pub)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM circuits").WillReturnRows(circuitRow("Centro"))
	mock.ExpectExec("DELETE FROM circuits").WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 7))
	require.Len(t, pub.events, 1)
	assert.Equal(t, lifecycle.Deleted, pub.events[0].Kind)
	assert.Equal(t, "CIR-007", pub.events[0].Before["code"])
	assert.Nil(t, pub.events[0].After)
}

func TestCircuitGet_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCircuitRepository(db, nil)
	mock.ExpectQuery("SELECT \\* FROM circuits").WillReturnRows(sqlmock.NewRows(circuitCols))

	c, err := repo.Get(context.Background(), 1)
	assert.NoError(t, err)
	assert.Nil(t, c)
}

// ---------------------------------------------------------------------------
// TackRepository
// ---------------------------------------------------------------------------

var tackCols = []string{"id", "circuit_id", "name", "active", "created_at", "updated_at"}

func TestTackCreateAndDelete(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &recordingPublisher{}
	repo := NewTackRepository(db, pub)

	mock.ExpectQuery("INSERT INTO tacks").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM tacks").
		WillReturnRows(sqlmock.NewRows(tackCols).AddRow(int64(3), int64(7), "Ruta 1", true, created, created))
	mock.ExpectExec("DELETE FROM tacks").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), &models.Tack{CircuitID: 7, Name: "Ruta 1", Active: true}))
	require.NoError(t, repo.Delete(context.Background(), 3))

	require.Len(t, pub.events, 2)
	assert.Equal(t, "Tack", pub.events[0].EntityType)
	assert.Equal(t, lifecycle.Deleted, pub.events[1].Kind)
}

// ---------------------------------------------------------------------------
// SellerRepository
// ---------------------------------------------------------------------------

var sellerCols = []string{"id", "circuit_id", "dni", "name", "phone", "active", "created_at", "updated_at"}

func TestSellerUpdate_Publishes(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &recordingPublisher{}
	repo := NewSellerRepository(db, pub)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM sellers").
		WillReturnRows(sqlmock.NewRows(sellerCols).
			AddRow(int64(5), nil, "44556677", "Ana", "999111222", true, created, created))
	mock.ExpectExec("UPDATE sellers SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	phone := "999000111"
	require.NoError(t, repo.Update(context.Background(),
		&models.Seller{ID: 5, DNI: "44556677", Name: "Ana", Phone: &phone, Active: true}))

	require.Len(t, pub.events, 1)
	assert.Equal(t, "999111222", pub.events[0].Before["phone"])
	assert.Equal(t, "999000111", pub.events[0].After["phone"])
}

func TestSellerGetByDNI_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSellerRepository(db, nil)
	mock.ExpectQuery("SELECT \\* FROM sellers WHERE dni").WillReturnRows(sqlmock.NewRows(sellerCols))

	s, err := repo.GetByDNI(context.Background(), "000")
	assert.NoError(t, err)
	assert.Nil(t, s)
}

// ---------------------------------------------------------------------------
// ShareRepository
// ---------------------------------------------------------------------------

var shareCols = []string{"id", "circuit_id", "period", "product", "target", "created_at", "updated_at"}

func TestShareCreate_Publishes(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &recordingPublisher{}
	repo := NewShareRepository(db, pub)

	mock.ExpectQuery("INSERT INTO shares").
		WithArgs(int64(7), "2026-03", "prepaid", 1500.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	require.NoError(t, repo.Create(context.Background(),
		&models.Share{CircuitID: 7, Period: "2026-03", Product: "prepaid", Target: 1500}))
	require.Len(t, pub.events, 1)
	assert.Equal(t, "Share", pub.events[0].EntityType)
	assert.Equal(t, 1500.0, pub.events[0].After["target"])
}

func TestShareListByPeriod(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewShareRepository(db, nil)
	mock.ExpectQuery("SELECT \\* FROM shares WHERE period").
		WithArgs("2026-03").
		WillReturnRows(sqlmock.NewRows(shareCols).
			AddRow(int64(11), int64(7), "2026-03", "prepaid", 1500.0, created, created))

	shares, err := repo.ListByPeriod(context.Background(), "2026-03")
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, "prepaid", shares[0].Product)
}
