package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"parishregistry/internal/infra/persistence/postgres/testutil"
	"parishregistry/pkg/domain"

	"github.com/stretchr/testify/require"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "", domain.NewRulesEngine())
	require.NoError(t, err)
	return store, conn
}

func seatRecord(tx domain.Transaction, parish string) (domain.SacramentalRecord, error) {
	return tx.SaveRecord(domain.SacramentalRecord{
		ParishID:  parish,
		Sacrament: domain.SacramentBaptism,
		Locator:   domain.Locator{Book: "1", Folio: "1", Entry: "1"},
		Status:    domain.StatusSeated,
		Payload:   domain.Payload{Baptism: &domain.BaptismDetails{Person: domain.Person{FirstName: "Ana", LastName: "Ruiz"}}},
	})
}

func TestNewStoreCreatesTableAndLoadsSnapshot(t *testing.T) {
	db, conn := testutil.NewStubDB()
	records := map[string]domain.SacramentalRecord{
		"r1": {
			Base:      domain.Base{ID: "r1"},
			ParishID:  "p1",
			Sacrament: domain.SacramentBaptism,
			Locator:   domain.Locator{Book: "2", Folio: "10", Entry: "7"},
			Status:    domain.StatusSeated,
		},
	}
	payload, err := json.Marshal(records)
	require.NoError(t, err)
	conn.Tables["state"] = []map[string]any{{"bucket": "records", "payload": payload}}

	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore(context.Background(), "ignored", nil)
	require.NoError(t, err)
	require.Len(t, store.ListRecords("p1", domain.SacramentBaptism), 1)
	require.Contains(t, conn.Execs[0], "CREATE TABLE IF NOT EXISTS state")
	require.NotNil(t, store.DB())
}

func TestRunInTransactionPersistsBuckets(t *testing.T) {
	store, conn := openStub(t)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := seatRecord(tx, "p1")
		return err
	})
	require.NoError(t, err)

	rows := conn.Rows("state")
	require.Len(t, rows, 3)
	buckets := map[string][]byte{}
	for _, row := range rows {
		buckets[row["bucket"].(string)] = row["payload"].([]byte)
	}
	var persisted map[string]domain.SacramentalRecord
	require.NoError(t, json.Unmarshal(buckets["records"], &persisted))
	require.Len(t, persisted, 1)
}

func TestRunInTransactionRestoresMemoryOnPersistFailure(t *testing.T) {
	store, conn := openStub(t)
	conn.FailCommit = true

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := seatRecord(tx, "p1"); err != nil {
			return err
		}
		_, err := tx.AllocateNext(domain.LedgerScope{ParishID: "p1", Sacrament: domain.SacramentBaptism, Kind: domain.BookSupplementary})
		return err
	})
	require.Error(t, err)
	require.Equal(t, domain.FailureStorage, domain.KindOf(err))
	var storageErr domain.StorageError
	require.ErrorAs(t, err, &storageErr)

	require.Empty(t, store.ListRecords("p1", domain.SacramentBaptism))
	require.NoError(t, store.View(context.Background(), func(v domain.TransactionView) error {
		_, ok := v.FindLedgerHead(domain.LedgerScope{ParishID: "p1", Sacrament: domain.SacramentBaptism, Kind: domain.BookSupplementary})
		require.False(t, ok)
		return nil
	}))
}

func TestRunInTransactionSkipsPersistOnCallbackError(t *testing.T) {
	store, conn := openStub(t)
	before := len(conn.Execs)
	_, err := store.RunInTransaction(context.Background(), func(domain.Transaction) error {
		return domain.ValidationError{Fields: []string{"decree_number"}}
	})
	require.Error(t, err)
	require.Equal(t, domain.FailureValidation, domain.KindOf(err))
	require.Len(t, conn.Execs, before)
}

func TestNewStorePingFailure(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	_, err := NewStore(context.Background(), "", nil)
	require.ErrorContains(t, err, "ping postgres")
}
