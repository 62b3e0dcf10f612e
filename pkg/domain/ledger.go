package domain

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultEntriesPerFolio is the folio capacity given to freshly created heads.
const DefaultEntriesPerFolio = 10

// LedgerScope keys one numbering sequence.
type LedgerScope struct {
	ParishID  string        `json:"parish_id" yaml:"parish_id"`
	Sacrament SacramentType `json:"sacrament" yaml:"sacrament"`
	Kind      BookKind      `json:"kind" yaml:"kind"`
}

// Key returns the storage key of the scope.
func (s LedgerScope) Key() string {
	return s.ParishID + "/" + string(s.Sacrament) + "/" + string(s.Kind)
}

func (s LedgerScope) String() string { return s.Key() }

// Validate checks that the scope names a parish, a known sacrament and a known book kind.
func (s LedgerScope) Validate() error {
	var missing []string
	if s.ParishID == "" {
		missing = append(missing, "parish_id")
	}
	if !s.Sacrament.Valid() {
		missing = append(missing, "sacrament")
	}
	if !s.Kind.Valid() {
		missing = append(missing, "book_kind")
	}
	if len(missing) > 0 {
		return ValidationError{Fields: missing}
	}
	return nil
}

// LedgerHead is the counter state of one numbering sequence.
type LedgerHead struct {
	Scope           LedgerScope `json:"scope"`
	Book            int         `json:"book"`
	Folio           int         `json:"folio"`
	Entry           int         `json:"entry"`
	EntriesPerFolio int         `json:"entries_per_folio"`
	Locked          bool        `json:"locked"`
	// RestartEntryOnFolio is a reserved policy flag; allocation does not consult it.
	RestartEntryOnFolio bool      `json:"restart_entry_on_folio"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewLedgerHead returns the default head created lazily on first allocation.
func NewLedgerHead(scope LedgerScope) LedgerHead {
	return LedgerHead{
		Scope:           scope,
		Book:            1,
		Folio:           1,
		Entry:           1,
		EntriesPerFolio: DefaultEntriesPerFolio,
	}
}

// Current returns the locator the head would assign next.
func (h LedgerHead) Current() Locator {
	return Locator{
		Book:  strconv.Itoa(h.Book),
		Folio: strconv.Itoa(h.Folio),
		Entry: strconv.Itoa(h.Entry),
	}
}

// Advance returns the current head as the newly assigned locator and moves
// the entry counter forward by one. Book and folio are left untouched:
// rollover on EntriesPerFolio is not applied.
func (h *LedgerHead) Advance() (Locator, error) {
	if h.Locked {
		return Locator{}, LedgerLockedError{Scope: h.Scope}
	}
	assigned := h.Current()
	h.Entry++
	return assigned, nil
}

// Validate checks the head values accepted by ConfigureLedger.
func (h LedgerHead) Validate() error {
	if err := h.Scope.Validate(); err != nil {
		return err
	}
	var bad []string
	if h.Book < 1 {
		bad = append(bad, "book")
	}
	if h.Folio < 1 {
		bad = append(bad, "folio")
	}
	if h.Entry < 1 {
		bad = append(bad, "entry")
	}
	if h.EntriesPerFolio < 0 {
		bad = append(bad, "entries_per_folio")
	}
	if len(bad) > 0 {
		return ValidationError{Fields: bad, Reason: fmt.Sprintf("ledger %s values must be positive", h.Scope)}
	}
	return nil
}
