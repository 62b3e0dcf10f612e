package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"parishregistry/internal/blob"
)

// ReadCSV reads a legacy spreadsheet export. The first record is the header;
// short rows leave trailing columns blank.
func ReadCSV(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []RawRow{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	rows := []RawRow{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+1, err)
		}
		row := make(RawRow, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
}

// ReadJSON reads an array of objects. Scalars are kept in their textual form.
func ReadJSON(r io.Reader) ([]RawRow, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var objects []map[string]any
	if err := dec.Decode(&objects); err != nil {
		return nil, fmt.Errorf("decode json rows: %w", err)
	}
	rows := make([]RawRow, 0, len(objects))
	for i, obj := range objects {
		row := make(RawRow, len(obj))
		for k, v := range obj {
			switch val := v.(type) {
			case nil:
				row[k] = ""
			case string:
				row[k] = val
			case json.Number:
				row[k] = val.String()
			case bool:
				row[k] = fmt.Sprint(val)
			default:
				return nil, fmt.Errorf("row %d column %q: unsupported value %T", i, k, v)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Archive is one legacy export fetched from blob storage.
type Archive struct {
	Key  string
	Rows []RawRow
}

const maxConcurrentFetches = 4

// LoadArchives fetches and parses archives concurrently. Results follow the
// order of keys. Keys ending in .json are read as JSON, anything else as CSV.
func LoadArchives(ctx context.Context, store blob.Store, keys []string) ([]Archive, error) {
	out := make([]Archive, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			rows, err := loadArchive(gctx, store, key)
			if err != nil {
				return fmt.Errorf("archive %s: %w", key, err)
			}
			out[i] = Archive{Key: key, Rows: rows}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func loadArchive(ctx context.Context, store blob.Store, key string) ([]RawRow, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	if strings.EqualFold(path.Ext(key), ".json") {
		return ReadJSON(rc)
	}
	return ReadCSV(rc)
}

// Rows flattens archives in order.
func Rows(archives []Archive) []RawRow {
	var out []RawRow
	for _, a := range archives {
		out = append(out, a.Rows...)
	}
	return out
}

// Report is the persisted summary of a reconcile run.
type Report struct {
	ParishID  string   `json:"parish_id"`
	Sacrament string   `json:"sacrament"`
	Sources   []string `json:"sources,omitempty"`
	Inserted  int      `json:"inserted"`
	Result    Result   `json:"result"`
}

// WriteReport stores report as JSON under key. Existing keys are not
// overwritten.
func WriteReport(ctx context.Context, store blob.Store, key string, report Report) (blob.Info, error) {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode report: %w", err)
	}
	return store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"parish":    report.ParishID,
			"sacrament": report.Sacrament,
		},
	})
}
