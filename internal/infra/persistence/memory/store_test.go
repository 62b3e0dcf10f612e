package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"parishregistry/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baptismScope = domain.LedgerScope{ParishID: "p1", Sacrament: domain.SacramentBaptism, Kind: domain.BookSupplementary}

func seated(parish string, loc domain.Locator) domain.SacramentalRecord {
	return domain.SacramentalRecord{
		ParishID:  parish,
		Sacrament: domain.SacramentBaptism,
		Locator:   loc,
		Status:    domain.StatusSeated,
		Payload:   domain.Payload{Baptism: &domain.BaptismDetails{Godparents: []string{"Luis"}}},
	}
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, ok := tx.FindRecord("p1", domain.SacramentBaptism, "missing")
		assert.False(t, ok)
		created, err := tx.SaveRecord(seated("p1", domain.Locator{Book: "1", Folio: "1", Entry: "1"}))
		if err != nil {
			return err
		}
		assert.NotEmpty(t, created.ID)
		assert.Len(t, tx.Snapshot().ListRecords("p1", domain.SacramentBaptism), 1)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, store.ListRecords("p1", domain.SacramentBaptism), 1)

	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	require.Empty(t, store.ListRecords("p1", domain.SacramentBaptism))
	store.ImportState(snapshot)
	require.Len(t, store.ListRecords("p1", domain.SacramentBaptism), 1)
	require.NotNil(t, store.RulesEngine())
	require.NotNil(t, store.NowFunc())
}

func TestStoreDiscardsStateOnCallbackError(t *testing.T) {
	store := NewStore(nil)
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.AllocateNext(baptismScope); err != nil {
			return err
		}
		if _, err := tx.SaveRecord(seated("p1", domain.Locator{Book: "1", Folio: "1", Entry: "1"})); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Empty(t, store.ListRecords("p1", domain.SacramentBaptism))
	require.NoError(t, store.View(context.Background(), func(v domain.TransactionView) error {
		_, ok := v.FindLedgerHead(baptismScope)
		assert.False(t, ok, "ledger advance must roll back")
		return nil
	}))
}

func TestStoreRuleViolation(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	res, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.SaveRecord(seated("p1", domain.Locator{}))
		return e
	})
	var violation domain.RuleViolationError
	require.ErrorAs(t, err, &violation)
	require.True(t, res.HasBlocking())
	require.Equal(t, domain.FailureInvariant, domain.KindOf(err))
	require.Empty(t, store.ListRecords("p1", domain.SacramentBaptism))
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock, Message: "blocked"}}}, nil
}

func TestStoreCancelledContext(t *testing.T) {
	store := NewStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	_, err := store.RunInTransaction(ctx, func(domain.Transaction) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestAllocateNextIsMonotonicAndHonorsLock(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var got []domain.Locator
	for i := 0; i < 3; i++ {
		_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			loc, err := tx.AllocateNext(baptismScope)
			got = append(got, loc)
			return err
		})
		require.NoError(t, err)
	}
	require.Equal(t, []domain.Locator{
		{Book: "1", Folio: "1", Entry: "1"},
		{Book: "1", Folio: "1", Entry: "2"},
		{Book: "1", Folio: "1", Entry: "3"},
	}, got)

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		head := domain.NewLedgerHead(baptismScope)
		head.Entry = 4
		head.Locked = true
		_, err := tx.ConfigureLedger(head)
		return err
	})
	require.NoError(t, err)

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.AllocateNext(baptismScope)
		return err
	})
	var locked domain.LedgerLockedError
	require.ErrorAs(t, err, &locked)
	require.Equal(t, baptismScope, locked.Scope)
}

func TestAllocateNextValidatesScope(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.AllocateNext(domain.LedgerScope{ParishID: "p1", Sacrament: "funeral", Kind: domain.BookOrdinary})
		return err
	})
	require.Equal(t, domain.FailureValidation, domain.KindOf(err))
}

func TestUpdateRecordKeepsIdentity(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return base })

	var id string
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		r, err := tx.SaveRecord(seated("p1", domain.Locator{Book: "2", Folio: "10", Entry: "7"}))
		id = r.ID
		return err
	})
	require.NoError(t, err)

	store.SetNowFunc(func() time.Time { return base.Add(time.Hour) })
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateRecord(id, func(r *domain.SacramentalRecord) error {
			r.ID = "other"
			r.ParishID = "p2"
			r.Status = domain.StatusAnnulled
			return nil
		})
		return err
	})
	require.NoError(t, err)

	r, ok := store.FindRecord("p1", domain.SacramentBaptism, id)
	require.True(t, ok)
	assert.Equal(t, domain.StatusAnnulled, r.Status)
	assert.Equal(t, base, r.CreatedAt)
	assert.Equal(t, base.Add(time.Hour), r.UpdatedAt)

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateRecord("missing", func(*domain.SacramentalRecord) error { return nil })
		return err
	})
	var nf domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.EntityRecord, nf.Entity)
}

func TestFindRecordByLocatorPrefersActiveEntry(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	loc := domain.Locator{Book: "3", Folio: "4", Entry: "5"}
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		annulled := seated("p1", loc)
		annulled.Status = domain.StatusAnnulled
		if _, err := tx.SaveRecord(annulled); err != nil {
			return err
		}
		_, err := tx.SaveRecord(seated("p1", domain.Locator{Book: " 3", Folio: "4 ", Entry: "5"}))
		return err
	})
	require.NoError(t, err)

	found, ok := store.FindRecordByLocator("p1", domain.SacramentBaptism, loc)
	require.True(t, ok)
	assert.Equal(t, domain.StatusSeated, found.Status)

	_, ok = store.FindRecordByLocator("p1", domain.SacramentConfirmation, loc)
	assert.False(t, ok)
	_, ok = store.FindRecordByLocator("p2", domain.SacramentBaptism, loc)
	assert.False(t, ok)
}

func TestDeleteDecreeTombstones(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var id string
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		d, err := tx.SaveDecree(domain.DecreeRecord{ParishID: "p1", DecreeNumber: "045-2025", Kind: domain.DecreeCorrection})
		id = d.ID
		return err
	})
	require.NoError(t, err)
	require.Len(t, store.ListDecrees("p1"), 1)

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.DeleteDecree(id)
		return err
	})
	require.NoError(t, err)

	_, ok := store.FindDecree(id)
	assert.False(t, ok)
	assert.Empty(t, store.ListDecrees("p1"))
	require.NoError(t, store.View(ctx, func(v domain.TransactionView) error {
		d, ok := v.FindDecreeAny(id)
		assert.True(t, ok)
		assert.NotNil(t, d.DeletedAt)
		assert.Len(t, v.ListAllDecrees(), 1)
		return nil
	}))

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.DeleteDecree(id)
		return err
	})
	assert.Equal(t, domain.FailureNotFound, domain.KindOf(err))
}

func TestSnapshotIsolationFromCallers(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var id string
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		r, err := tx.SaveRecord(seated("p1", domain.Locator{Book: "1", Folio: "1", Entry: "1"}))
		id = r.ID
		return err
	})
	require.NoError(t, err)

	r, _ := store.FindRecord("p1", domain.SacramentBaptism, id)
	r.Payload.Baptism.Godparents[0] = "mutated"
	again, _ := store.FindRecord("p1", domain.SacramentBaptism, id)
	assert.Equal(t, "Luis", again.Payload.Baptism.Godparents[0])
}

func TestImportStateMigratesLegacySnapshot(t *testing.T) {
	store := NewStore(nil)
	scope := domain.LedgerScope{ParishID: "p1", Sacrament: domain.SacramentConfirmation, Kind: domain.BookOrdinary}
	store.ImportState(Snapshot{
		Records: map[string]domain.SacramentalRecord{
			"r1": {ParishID: "p1", Sacrament: domain.SacramentConfirmation, Locator: domain.Locator{Book: "1", Folio: "1", Entry: "1"}},
			"r2": {ParishID: "p1", Sacrament: domain.SacramentConfirmation},
		},
		Ledger: map[string]domain.LedgerHead{"stale": {Scope: scope}},
	})

	r1, ok := store.FindRecord("p1", domain.SacramentConfirmation, "r1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusSeated, r1.Status)
	r2, _ := store.FindRecord("p1", domain.SacramentConfirmation, "r2")
	assert.Equal(t, domain.StatusPending, r2.Status)

	require.NoError(t, store.View(context.Background(), func(v domain.TransactionView) error {
		head, ok := v.FindLedgerHead(scope)
		require.True(t, ok)
		assert.Equal(t, 1, head.Entry)
		return nil
	}))
}

func TestBucketsRoundTrip(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.AllocateNext(baptismScope); err != nil {
			return err
		}
		_, err := tx.SaveRecord(seated("p1", domain.Locator{Book: "1", Folio: "1", Entry: "1"}))
		return err
	})
	require.NoError(t, err)

	encoded, err := EncodeBuckets(store.ExportState())
	require.NoError(t, err)
	require.Len(t, encoded, len(Buckets()))

	var decoded Snapshot
	for bucket, payload := range encoded {
		require.NoError(t, DecodeBucket(&decoded, bucket, payload))
	}
	require.NoError(t, DecodeBucket(&decoded, "unknown", []byte("{")))
	require.Error(t, DecodeBucket(&decoded, BucketRecords, []byte("{")))

	other := NewStore(nil)
	other.ImportState(decoded)
	assert.Len(t, other.ListRecords("p1", domain.SacramentBaptism), 1)
}
