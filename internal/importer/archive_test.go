package importer

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"parishregistry/internal/blob"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	data := "\ufefflibro,folio,numero,nombres\n1,2,3,Ana\n1,2\n"
	rows, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, RawRow{"libro": "1", "folio": "2", "numero": "3", "nombres": "Ana"}, rows[0])
	assert.Equal(t, "", rows[1]["numero"])

	rows, err = ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = ReadCSV(strings.NewReader("a,b\n\"unterminated\n"))
	require.Error(t, err)
}

func TestReadJSON(t *testing.T) {
	rows, err := ReadJSON(strings.NewReader(`[{"libro": 1, "folio": "2", "numero": 3.0, "difunto": false, "notas": null}]`))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, RawRow{"libro": "1", "folio": "2", "numero": "3.0", "difunto": "false", "notas": ""}, rows[0])

	_, err = ReadJSON(strings.NewReader(`[{"libro": {"n": 1}}]`))
	require.ErrorContains(t, err, "unsupported value")
	_, err = ReadJSON(strings.NewReader(`{`))
	require.Error(t, err)
}

func TestLoadArchivesPreservesKeyOrder(t *testing.T) {
	ctx := context.Background()
	store, err := blob.Open(ctx, blob.Config{Driver: blob.DriverMemory})
	require.NoError(t, err)

	keys := []string{"legacy/b.csv", "legacy/a.json", "legacy/c.csv"}
	_, err = store.Put(ctx, keys[0], strings.NewReader("libro,folio,numero\n1,1,1\n1,1,2\n"), blob.PutOptions{})
	require.NoError(t, err)
	_, err = store.Put(ctx, keys[1], strings.NewReader(`[{"libro":"2","folio":"1","numero":"1"}]`), blob.PutOptions{})
	require.NoError(t, err)
	_, err = store.Put(ctx, keys[2], strings.NewReader("libro,folio,numero\n3,1,1\n"), blob.PutOptions{})
	require.NoError(t, err)

	archives, err := LoadArchives(ctx, store, keys)
	require.NoError(t, err)
	require.Len(t, archives, 3)
	for i, a := range archives {
		assert.Equal(t, keys[i], a.Key)
	}
	rows := Rows(archives)
	require.Len(t, rows, 4)
	assert.Equal(t, "1", rows[0]["libro"])
	assert.Equal(t, "2", rows[2]["libro"])
	assert.Equal(t, "3", rows[3]["libro"])
}

func TestLoadArchivesFailsOnMissingKey(t *testing.T) {
	ctx := context.Background()
	store, err := blob.Open(ctx, blob.Config{Driver: blob.DriverMemory})
	require.NoError(t, err)
	_, err = LoadArchives(ctx, store, []string{"legacy/missing.csv"})
	require.ErrorIs(t, err, blob.ErrNotFound)
	require.ErrorContains(t, err, "legacy/missing.csv")
}

func TestWriteReport(t *testing.T) {
	ctx := context.Background()
	store, err := blob.Open(ctx, blob.Config{Driver: blob.DriverMemory})
	require.NoError(t, err)

	report := Report{
		ParishID:  "p1",
		Sacrament: "baptism",
		Sources:   []string{"legacy/b.csv"},
		Inserted:  1,
		Result: Result{
			ToInsert:   []Candidate{{Row: 0, Key: "1|1|1"}},
			Duplicates: []Duplicate{{Row: 1, Key: "1|1|1", Reason: ReasonBatch}},
			RowErrors:  []RowError{},
		},
	}
	info, err := WriteReport(ctx, store, "reports/p1.json", report)
	require.NoError(t, err)
	assert.Equal(t, "application/json", info.ContentType)

	_, rc, err := store.Get(ctx, "reports/p1.json")
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 1, decoded.Inserted)
	assert.Equal(t, ReasonBatch, decoded.Result.Duplicates[0].Reason)

	_, err = WriteReport(ctx, store, "reports/p1.json", report)
	require.ErrorIs(t, err, blob.ErrExists)
}
