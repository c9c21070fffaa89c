package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwheritage/heritage-data-etl/internal/domain"
)

// stubConn records every statement the store executes. Registered under a
// unique driver name per test database because database/sql forbids
// re-registration.
type stubConn struct {
	execs     []execCall
	failExec  bool
	begins    int
	commits   int
	rollbacks int
}

type execCall struct {
	query string
	args  []driver.Value
}

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c *stubConn) Close() error                        { return nil }

func (c *stubConn) Begin() (driver.Tx, error) {
	c.begins++
	return &stubTx{conn: c}, nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	values := make([]driver.Value, len(args))
	for i, a := range args {
		values[i] = a.Value
	}
	c.execs = append(c.execs, execCall{query: query, args: values})
	if c.failExec {
		return nil, errors.New("exec fail")
	}
	return driver.RowsAffected(1), nil
}

type stubTx struct{ conn *stubConn }

func (t *stubTx) Commit() error {
	t.conn.commits++
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.rollbacks++
	return nil
}

func newStubStore(t *testing.T) (*Store, *stubConn) {
	t.Helper()
	conn := &stubConn{}
	name := fmt.Sprintf("stubpg-%s-%d", t.Name(), time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Store{db: db, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}, conn
}

func testBuilding(entry string) domain.ListedBuilding {
	address := "10 Keats Grove"
	postcode := "NW3 2RR"
	listDate := "1968-03-01"
	return domain.ListedBuilding{
		ListEntryNumber: entry,
		Name:            "Keats House",
		Grade:           domain.GradeIIStar,
		AddressLine1:    &address,
		Town:            "London",
		Postcode:        &postcode,
		Borough:         "Camden",
		Location:        "POINT(-0.168 51.555)",
		Lng:             -0.168,
		Lat:             51.555,
		ListDate:        &listDate,
		DataSource:      domain.DataSourceHistoricEngland,
	}
}

func testArea(name string) domain.ConservationArea {
	ref := "CA2"
	hectares := 123.9
	return domain.ConservationArea{
		Name:                 name,
		Reference:            &ref,
		Borough:              "Camden",
		BoundaryWKT:          "MULTIPOLYGON(((0 0,1 0,1 1,0 1,0 0)))",
		AreaHectares:         &hectares,
		HasArticle4:          true,
		Article4Restrictions: []string{"basement excavation", "roof extensions"},
		DataSource:           domain.DataSourceLondonDatastore,
	}
}

func TestNewStore(t *testing.T) {
	t.Run("empty DSN", func(t *testing.T) {
		_, err := NewStore(context.Background(), "", slog.New(slog.NewTextHandler(io.Discard, nil)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL")
	})
}

func TestBuildingStoreLoadBatch(t *testing.T) {
	t.Run("batch runs in one transaction", func(t *testing.T) {
		store, conn := newStubStore(t)

		err := store.Buildings().LoadBatch(context.Background(), []domain.ListedBuilding{
			testBuilding("1379211"),
			testBuilding("1113261"),
		})
		require.NoError(t, err)

		assert.Equal(t, 1, conn.begins)
		assert.Equal(t, 1, conn.commits)
		assert.Zero(t, conn.rollbacks)
		require.Len(t, conn.execs, 2)

		call := conn.execs[0]
		assert.Contains(t, call.query, "INSERT INTO listed_buildings")
		assert.Contains(t, call.query, "ON CONFLICT (list_entry_number)")
		assert.Contains(t, call.query, "ST_SetSRID(ST_MakePoint($9, $10), 4326)")
		require.Len(t, call.args, 15)
		assert.Equal(t, "1379211", call.args[0])
		assert.Equal(t, "II*", call.args[2])
		assert.Equal(t, "Camden", call.args[7])
		assert.Equal(t, -0.168, call.args[8])
		assert.Equal(t, 51.555, call.args[9])
		assert.Equal(t, "1968-03-01", call.args[10])
		assert.Nil(t, call.args[11])
	})

	t.Run("failed exec rolls back", func(t *testing.T) {
		store, conn := newStubStore(t)
		conn.failExec = true

		err := store.Buildings().LoadBatch(context.Background(), []domain.ListedBuilding{
			testBuilding("1379211"),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1379211")
		assert.Equal(t, 1, conn.rollbacks)
		assert.Zero(t, conn.commits)
	})
}

func TestBuildingStoreLoad(t *testing.T) {
	store, conn := newStubStore(t)

	err := store.Buildings().Load(context.Background(), testBuilding("1379211"))
	require.NoError(t, err)

	assert.Zero(t, conn.begins)
	require.Len(t, conn.execs, 1)
	assert.Contains(t, conn.execs[0].query, "INSERT INTO listed_buildings")
}

func TestAreaStoreLoadBatch(t *testing.T) {
	t.Run("batch runs in one transaction", func(t *testing.T) {
		store, conn := newStubStore(t)

		err := store.Areas().LoadBatch(context.Background(), []domain.ConservationArea{
			testArea("Hampstead"),
		})
		require.NoError(t, err)

		assert.Equal(t, 1, conn.begins)
		assert.Equal(t, 1, conn.commits)
		require.Len(t, conn.execs, 1)

		call := conn.execs[0]
		assert.Contains(t, call.query, "INSERT INTO conservation_areas")
		assert.Contains(t, call.query, "ON CONFLICT (borough, reference)")
		assert.Contains(t, call.query, "ST_GeomFromText($5, 4326)")
		require.Len(t, call.args, 13)
		assert.Equal(t, "Hampstead", call.args[0])
		assert.Equal(t, "CA2", call.args[1])
		assert.Equal(t, "Camden", call.args[2])
		assert.Equal(t, "MULTIPOLYGON(((0 0,1 0,1 1,0 1,0 0)))", call.args[4])
		assert.Equal(t, true, call.args[9])
		assert.Equal(t, "basement excavation,roof extensions", call.args[10])
	})

	t.Run("empty restrictions travel as NULL", func(t *testing.T) {
		store, conn := newStubStore(t)

		area := testArea("Belsize")
		area.HasArticle4 = false
		area.Article4Restrictions = nil

		err := store.Areas().Load(context.Background(), area)
		require.NoError(t, err)

		require.Len(t, conn.execs, 1)
		assert.Nil(t, conn.execs[0].args[10])
	})

	t.Run("failed exec rolls back with area name", func(t *testing.T) {
		store, conn := newStubStore(t)
		conn.failExec = true

		err := store.Areas().LoadBatch(context.Background(), []domain.ConservationArea{
			testArea("Hampstead"),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Hampstead")
		assert.Equal(t, 1, conn.rollbacks)
	})
}
