// Package importer maps legacy register spreadsheets onto register entries
// and sorts them into safe inserts, duplicates and rejected rows.
package importer

import (
	"fmt"
	"strings"
	"time"

	"parishregistry/pkg/domain"
)

// RawRow is one legacy row keyed by its original column names.
type RawRow map[string]string

// DuplicateReason says what a duplicate row collided with.
type DuplicateReason string

// Duplicate reasons.
const (
	ReasonExisting DuplicateReason = "existing"
	ReasonBatch    DuplicateReason = "batch"
)

// Candidate is a row that is safe to insert.
type Candidate struct {
	Row    int                      `json:"row"`
	Key    string                   `json:"key"`
	Record domain.SacramentalRecord `json:"record"`
}

// Duplicate is a row whose locator is already taken. ExistingID is set for
// ReasonExisting; FirstRow is set for ReasonBatch.
type Duplicate struct {
	Row        int             `json:"row"`
	Key        string          `json:"key"`
	Reason     DuplicateReason `json:"reason"`
	ExistingID string          `json:"existing_id,omitempty"`
	FirstRow   int             `json:"first_row,omitempty"`
}

// RowError is one structural problem found in a row.
type RowError struct {
	Row     int    `json:"row"`
	Field   Field  `json:"field"`
	Message string `json:"message"`
}

// Result partitions an import batch. Rows are zero-based input indexes.
type Result struct {
	ToInsert   []Candidate `json:"to_insert"`
	Duplicates []Duplicate `json:"duplicates"`
	RowErrors  []RowError  `json:"row_errors"`
}

// Reconciler maps rows for one parish register.
type Reconciler struct {
	ParishID  string
	Sacrament domain.SacramentType
	// Aliases defaults to DefaultAliases when nil.
	Aliases AliasTable
}

// Reconcile classifies rows against existing entries. It performs no writes
// and returns the same partition for the same inputs.
//
// A row is a duplicate when its locator key matches an existing entry (any
// status) or an earlier row of the batch that was accepted for insertion.
// Rows with structural errors are never inserted; a row may be reported both
// as a duplicate and with errors.
func (r Reconciler) Reconcile(rows []RawRow, existing []domain.SacramentalRecord) Result {
	aliases := r.Aliases
	if aliases == nil {
		aliases = DefaultAliases()
	}
	taken := make(map[string]string, len(existing))
	for _, rec := range existing {
		if !rec.Locator.Complete() {
			continue
		}
		if _, ok := taken[rec.Locator.Key()]; !ok {
			taken[rec.Locator.Key()] = rec.ID
		}
	}

	res := Result{
		ToInsert:   []Candidate{},
		Duplicates: []Duplicate{},
		RowErrors:  []RowError{},
	}
	accepted := make(map[string]int)
	for i, row := range rows {
		record, errs := r.mapRow(aliases, row)
		for _, e := range errs {
			e.Row = i
			res.RowErrors = append(res.RowErrors, e)
		}

		duplicate := false
		if record.Locator.Complete() {
			key := record.Locator.Key()
			if id, ok := taken[key]; ok {
				res.Duplicates = append(res.Duplicates, Duplicate{Row: i, Key: key, Reason: ReasonExisting, ExistingID: id})
				duplicate = true
			} else if first, ok := accepted[key]; ok {
				res.Duplicates = append(res.Duplicates, Duplicate{Row: i, Key: key, Reason: ReasonBatch, FirstRow: first})
				duplicate = true
			}
			if !duplicate && len(errs) == 0 {
				accepted[key] = i
				res.ToInsert = append(res.ToInsert, Candidate{Row: i, Key: key, Record: record})
			}
		}
	}
	return res
}

func (r Reconciler) mapRow(aliases AliasTable, row RawRow) (domain.SacramentalRecord, []RowError) {
	idx := newIndex(row)
	get := func(f Field) string { return aliases.lookup(idx, f) }

	var errs []RowError
	require := func(fields ...Field) {
		for _, f := range fields {
			if get(f) == "" {
				errs = append(errs, RowError{Field: f, Message: "required"})
			}
		}
	}
	date := func(f Field) string {
		raw := get(f)
		if raw == "" {
			return ""
		}
		iso, err := NormalizeDate(raw)
		if err != nil {
			errs = append(errs, RowError{Field: f, Message: err.Error()})
			return raw
		}
		return iso
	}

	require(FieldBook, FieldFolio, FieldEntry, FieldSacramentDate)
	record := domain.SacramentalRecord{
		ParishID:  r.ParishID,
		Sacrament: r.Sacrament,
		Locator: domain.Locator{
			Book:  get(FieldBook),
			Folio: get(FieldFolio),
			Entry: get(FieldEntry),
		},
		Status: r.Sacrament.SeatedStatus(),
	}
	record.Payload.Celebration = domain.Celebration{
		Date:             date(FieldSacramentDate),
		Place:            get(FieldPlace),
		Minister:         get(FieldMinister),
		MinisterOfRecord: get(FieldMinisterOfRecord),
		Notes:            get(FieldNotes),
	}

	person := domain.Person{FirstName: get(FieldFirstName), LastName: get(FieldLastName)}
	switch r.Sacrament {
	case domain.SacramentBaptism:
		require(FieldFirstName, FieldLastName)
		sex, err := NormalizeSex(get(FieldSex))
		if err != nil {
			errs = append(errs, RowError{Field: FieldSex, Message: err.Error()})
		}
		record.Payload.Baptism = &domain.BaptismDetails{
			Person:     person,
			Sex:        sex,
			BirthDate:  date(FieldBirthDate),
			BirthPlace: get(FieldBirthPlace),
			FatherName: get(FieldFatherName),
			MotherName: get(FieldMotherName),
			Godparents: splitList(get(FieldGodparents)),
		}
	case domain.SacramentConfirmation:
		require(FieldFirstName, FieldLastName)
		record.Payload.Confirmation = &domain.ConfirmationDetails{
			Person:     person,
			BirthDate:  date(FieldBirthDate),
			FatherName: get(FieldFatherName),
			MotherName: get(FieldMotherName),
			Godparent:  get(FieldGodparents),
		}
	case domain.SacramentMarriage:
		require(FieldGroomFirstName, FieldGroomLastName, FieldBrideFirstName, FieldBrideLastName)
		record.Payload.Marriage = &domain.MarriageDetails{
			Groom:     domain.Person{FirstName: get(FieldGroomFirstName), LastName: get(FieldGroomLastName)},
			Bride:     domain.Person{FirstName: get(FieldBrideFirstName), LastName: get(FieldBrideLastName)},
			Witnesses: splitList(get(FieldWitnesses)),
		}
	}
	return record, errs
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "02-01-2006", "2-1-2006"}

// NormalizeDate accepts YYYY-MM-DD, DD/MM/YYYY or DD-MM-YYYY and returns the
// ISO form.
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("malformed date %q", raw)
}

// NormalizeSex maps legacy sex codes to M or F. Blank stays blank.
func NormalizeSex(raw string) (string, error) {
	switch strings.TrimSpace(raw) {
	case "":
		return "", nil
	case "1", "M", "m", "H", "h", "V", "v":
		return "M", nil
	case "2", "F", "f":
		return "F", nil
	}
	return "", fmt.Errorf("unknown sex code %q", raw)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == ',' || r == '|' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
