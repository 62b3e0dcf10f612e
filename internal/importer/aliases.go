package importer

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is a canonical import column.
type Field string

// Canonical import columns.
const (
	FieldBook             Field = "book"
	FieldFolio            Field = "folio"
	FieldEntry            Field = "entry"
	FieldFirstName        Field = "first_name"
	FieldLastName         Field = "last_name"
	FieldSacramentDate    Field = "sacrament_date"
	FieldPlace            Field = "place"
	FieldMinister         Field = "minister"
	FieldMinisterOfRecord Field = "minister_of_record"
	FieldNotes            Field = "notes"
	FieldSex              Field = "sex"
	FieldBirthDate        Field = "birth_date"
	FieldBirthPlace       Field = "birth_place"
	FieldFatherName       Field = "father_name"
	FieldMotherName       Field = "mother_name"
	FieldGodparents       Field = "godparents"
	FieldGroomFirstName   Field = "groom_first_name"
	FieldGroomLastName    Field = "groom_last_name"
	FieldBrideFirstName   Field = "bride_first_name"
	FieldBrideLastName    Field = "bride_last_name"
	FieldWitnesses        Field = "witnesses"
)

// AliasTable lists, per canonical field, the legacy column names that may
// carry it. Order is precedence: the first alias with a non-empty value wins.
type AliasTable map[Field][]string

// DefaultAliases returns the alias table for the legacy parish spreadsheets.
func DefaultAliases() AliasTable {
	return AliasTable{
		FieldBook:             {"libro", "book", "numero_libro", "nro_libro", "book_number", "bookNumber"},
		FieldFolio:            {"folio", "pagina", "página", "page", "page_number", "pageNumber", "numero_folio"},
		FieldEntry:            {"numero", "número", "partida", "entry", "entry_number", "entryNumber", "nro_partida", "acta"},
		FieldFirstName:        {"nombres", "nombre", "first_name", "firstName", "given_name"},
		FieldLastName:         {"apellidos", "apellido", "last_name", "lastName", "surname"},
		FieldSacramentDate:    {"fecha_sacramento", "fecha_bautismo", "fecha_confirmacion", "fecha_matrimonio", "fecha", "sacrament_date", "date"},
		FieldPlace:            {"lugar", "lugar_celebracion", "place"},
		FieldMinister:         {"ministro", "celebrante", "minister"},
		FieldMinisterOfRecord: {"ministro_que_certifica", "parroco", "párroco", "da_fe", "minister_of_record"},
		FieldNotes:            {"observaciones", "notas", "notes"},
		FieldSex:              {"sexo", "genero", "género", "sex", "gender"},
		FieldBirthDate:        {"fecha_nacimiento", "nacimiento", "birth_date", "birthDate"},
		FieldBirthPlace:       {"lugar_nacimiento", "birth_place", "birthPlace"},
		FieldFatherName:       {"padre", "nombre_padre", "father", "father_name"},
		FieldMotherName:       {"madre", "nombre_madre", "mother", "mother_name"},
		FieldGodparents:       {"padrinos", "padrino", "madrina", "godparents", "godparent"},
		FieldGroomFirstName:   {"nombres_esposo", "nombre_novio", "groom_first_name"},
		FieldGroomLastName:    {"apellidos_esposo", "apellido_novio", "groom_last_name"},
		FieldBrideFirstName:   {"nombres_esposa", "nombre_novia", "bride_first_name"},
		FieldBrideLastName:    {"apellidos_esposa", "apellido_novia", "bride_last_name"},
		FieldWitnesses:        {"testigos", "witnesses"},
	}
}

// Validate reports aliases that normalize to the same header under two
// different fields, which would make lookups ambiguous.
func (t AliasTable) Validate() error {
	owner := make(map[string]Field)
	for field, aliases := range t {
		for _, alias := range aliases {
			key := NormalizeHeader(alias)
			if key == "" {
				return fmt.Errorf("field %s: blank alias", field)
			}
			if prev, ok := owner[key]; ok && prev != field {
				return fmt.Errorf("alias %q claimed by %s and %s", alias, prev, field)
			}
			owner[key] = field
		}
	}
	return nil
}

// NormalizeHeader folds a legacy column name for comparison: accents are
// stripped, case is folded, and spaces, underscores, dashes and dots are
// dropped.
func NormalizeHeader(h string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), h)
	if err != nil {
		stripped = h
	}
	folded := cases.Fold().String(stripped)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '.', '\t':
			return -1
		}
		return r
	}, folded)
}

// index maps normalized headers of one row to their values.
type index map[string]string

// newIndex keeps, for headers that fold together, the first non-empty value
// in header order.
func newIndex(row RawRow) index {
	headers := make([]string, 0, len(row))
	for header := range row {
		headers = append(headers, header)
	}
	sort.Strings(headers)
	idx := make(index, len(row))
	for _, header := range headers {
		key := NormalizeHeader(header)
		value := strings.TrimSpace(row[header])
		if prev, ok := idx[key]; ok && prev != "" {
			continue
		}
		idx[key] = value
	}
	return idx
}

func (t AliasTable) lookup(idx index, field Field) string {
	for _, alias := range t[field] {
		if v := idx[NormalizeHeader(alias)]; v != "" {
			return v
		}
	}
	return ""
}
