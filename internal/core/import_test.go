package core

import (
	"context"
	"testing"

	"parishregistry/internal/importer"
	"parishregistry/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legacyRow(book, folio, entry, first string) importer.RawRow {
	return importer.RawRow{
		"Libro":     book,
		"Folio":     folio,
		"Partida":   entry,
		"Nombres":   first,
		"Apellidos": "Quispe",
		"Fecha":     "12/08/1978",
	}
}

func TestReconcileImportAgainstRegister(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	existing := seedRecord(t, svc, domain.SacramentBaptism, domain.Locator{Book: "1", Folio: "2", Entry: "3"}, baptismPayload("Ana", "Quispe"))

	rows := []importer.RawRow{legacyRow("1", "2", "3", "Ana"), legacyRow("1", "2", "4", "Rosa")}
	res, err := svc.ReconcileImport(ctx, testParish, domain.SacramentBaptism, rows)
	require.NoError(t, err)

	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, importer.ReasonExisting, res.Duplicates[0].Reason)
	assert.Equal(t, existing.ID, res.Duplicates[0].ExistingID)
	require.Len(t, res.ToInsert, 1)
	assert.Equal(t, 1, res.ToInsert[0].Row)

	records, err := svc.ListRecords(ctx, testParish, domain.SacramentBaptism)
	require.NoError(t, err)
	assert.Len(t, records, 1, "reconciling writes nothing")
}

func TestImportRecordsInsertsOnlySafeRows(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedRecord(t, svc, domain.SacramentBaptism, domain.Locator{Book: "1", Folio: "2", Entry: "3"}, baptismPayload("Ana", "Quispe"))

	bad := legacyRow("1", "2", "5", "Luis")
	bad["Fecha"] = "ayer"
	rows := []importer.RawRow{
		legacyRow("1", "2", "3", "Ana"),
		legacyRow("1", "2", "4", "Rosa"),
		legacyRow("1", "2", "4", "Rosa"),
		bad,
	}
	res, err := svc.ImportRecords(ctx, testParish, domain.SacramentBaptism, rows)
	require.NoError(t, err)

	require.Len(t, res.ToInsert, 1)
	inserted := res.ToInsert[0].Record
	assert.Equal(t, "id-1", inserted.ID)
	assert.Equal(t, fixedNow, inserted.CreatedAt)
	assert.Len(t, res.Duplicates, 2)
	require.Len(t, res.RowErrors, 1)
	assert.Equal(t, 3, res.RowErrors[0].Row)

	stored, ok := svc.Store().FindRecord(testParish, domain.SacramentBaptism, "id-1")
	require.True(t, ok)
	assert.Equal(t, domain.Locator{Book: "1", Folio: "2", Entry: "4"}, stored.Locator)
	assert.Equal(t, domain.StatusSeated, stored.Status)
	assert.False(t, stored.IsSupplementary)

	again, err := svc.ImportRecords(ctx, testParish, domain.SacramentBaptism, rows)
	require.NoError(t, err)
	assert.Empty(t, again.ToInsert, "a second import of the same rows inserts nothing")
}

func TestImportRecordsRejectsUnknownScope(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ImportRecords(context.Background(), testParish, "burial", nil)
	assert.Equal(t, domain.FailureValidation, domain.KindOf(err))
	_, err = svc.ReconcileImport(context.Background(), "", domain.SacramentBaptism, nil)
	assert.Equal(t, domain.FailureValidation, domain.KindOf(err))
}
