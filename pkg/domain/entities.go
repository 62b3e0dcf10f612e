// Package domain defines the persistent register entities, value types, and
// rule evaluation primitives used by parishregistry.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the register.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityRecord identifies a sacramental register entry.
	EntityRecord EntityType = "sacramental_record"
	// EntityDecree identifies a correction/replacement/reposition decree.
	EntityDecree EntityType = "decree"
	// EntityLedger identifies a numbering ledger head.
	EntityLedger EntityType = "ledger_head"
	// EntityConcept identifies an annulment concept.
	EntityConcept EntityType = "annulment_concept"
)

// SacramentType selects one of the three registers kept by a parish.
type SacramentType string

// Registers kept by a parish.
const (
	SacramentBaptism      SacramentType = "baptism"
	SacramentConfirmation SacramentType = "confirmation"
	SacramentMarriage     SacramentType = "marriage"
)

// SacramentTypes lists every supported register in a stable order.
func SacramentTypes() []SacramentType {
	return []SacramentType{SacramentBaptism, SacramentConfirmation, SacramentMarriage}
}

// Valid reports whether the sacrament type is one of the supported registers.
func (s SacramentType) Valid() bool {
	switch s {
	case SacramentBaptism, SacramentConfirmation, SacramentMarriage:
		return true
	}
	return false
}

// SeatedStatus returns the terminal state of an entry that holds an official
// locator in this register. Marriages are "celebrated"; the rest are "seated".
func (s SacramentType) SeatedStatus() RecordStatus {
	if s == SacramentMarriage {
		return StatusCelebrated
	}
	return StatusSeated
}

// RecordStatus captures where an entry is in its archival lifecycle.
type RecordStatus string

// Canonical record statuses.
const (
	// StatusPending marks an entry captured without an official locator.
	StatusPending RecordStatus = "pending"
	// StatusSeated marks an entry that is part of the legal register.
	StatusSeated RecordStatus = "seated"
	// StatusCelebrated is the marriage register's equivalent of StatusSeated.
	StatusCelebrated RecordStatus = "celebrated"
	// StatusAnnulled marks an entry superseded by a decree. Never removed.
	StatusAnnulled RecordStatus = "annulled"
)

// Official reports whether the status places the entry in the legal register.
func (s RecordStatus) Official() bool {
	return s == StatusSeated || s == StatusCelebrated
}

// BookKind separates the ordinary register from the supplementary one used
// exclusively for decree-created entries.
type BookKind string

// Register book kinds.
const (
	BookOrdinary      BookKind = "ordinary"
	BookSupplementary BookKind = "supplementary"
)

// Valid reports whether the book kind is known.
func (k BookKind) Valid() bool {
	return k == BookOrdinary || k == BookSupplementary
}

// DecreeKind names the three decree workflows.
type DecreeKind string

// Decree workflows.
const (
	DecreeCorrection  DecreeKind = "correction"
	DecreeReplacement DecreeKind = "replacement"
	DecreeReposition  DecreeKind = "reposition"
)

// Valid reports whether the decree kind is known.
func (k DecreeKind) Valid() bool {
	switch k {
	case DecreeCorrection, DecreeReplacement, DecreeReposition:
		return true
	}
	return false
}

// Locator is the (book, folio, entry) triple identifying an entry's position
// in a physical register. Values are kept as text because legacy books carry
// suffixed numbers ("12bis").
type Locator struct {
	Book  string `json:"book" yaml:"book"`
	Folio string `json:"folio" yaml:"folio"`
	Entry string `json:"entry" yaml:"entry"`
}

// IsZero reports whether every component is blank.
func (l Locator) IsZero() bool {
	return strings.TrimSpace(l.Book) == "" && strings.TrimSpace(l.Folio) == "" && strings.TrimSpace(l.Entry) == ""
}

// Complete reports whether every component is present.
func (l Locator) Complete() bool {
	return strings.TrimSpace(l.Book) != "" && strings.TrimSpace(l.Folio) != "" && strings.TrimSpace(l.Entry) != ""
}

// Key returns the natural key used for collision checks: trimmed and
// case-insensitive.
func (l Locator) Key() string {
	return LocatorKey(l.Book, l.Folio, l.Entry)
}

// LocatorKey builds the natural key from raw components.
func LocatorKey(book, folio, entry string) string {
	norm := func(v string) string { return strings.ToLower(strings.TrimSpace(v)) }
	return norm(book) + "|" + norm(folio) + "|" + norm(entry)
}

func (l Locator) String() string {
	return "book " + l.Book + ", folio " + l.Folio + ", entry " + l.Entry
}

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SacramentalRecord is one entry of a parish register.
type SacramentalRecord struct {
	Base
	ParishID           string        `json:"parish_id"`
	Sacrament          SacramentType `json:"sacrament"`
	Locator            Locator       `json:"locator"`
	Status             RecordStatus  `json:"status"`
	IsSupplementary    bool          `json:"is_supplementary"`
	MarginalNote       *string       `json:"marginal_note,omitempty"`
	AnnulmentConceptID *string       `json:"annulment_concept_id,omitempty"`
	LinkedDecreeID     *string       `json:"linked_decree_id,omitempty"`
	Payload            Payload       `json:"payload"`
}

// DecreeRecord documents one correction, replacement or reposition.
type DecreeRecord struct {
	Base
	ParishID           string        `json:"parish_id"`
	Sacrament          SacramentType `json:"sacrament"`
	Kind               DecreeKind    `json:"kind"`
	DecreeNumber       string        `json:"decree_number"`
	DecreeDate         time.Time     `json:"decree_date"`
	AnnulmentConceptID string        `json:"annulment_concept_id"`
	Observations       string        `json:"observations,omitempty"`
	TargetName         string        `json:"target_name"`
	Reference          string        `json:"reference,omitempty"`
	OriginalRecordID   *string       `json:"original_record_id,omitempty"`
	// OriginalLocator is immutable audit data captured at decree time.
	OriginalLocator *Locator   `json:"original_locator,omitempty"`
	NewRecordID     string     `json:"new_record_id"`
	NewLocator      Locator    `json:"new_locator"`
	CreatedBy       string     `json:"created_by"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

// Live reports whether the decree has not been deleted.
func (d DecreeRecord) Live() bool { return d.DeletedAt == nil }

// NumberKey normalizes a decree number for parish-wide uniqueness checks.
func NumberKey(number string) string {
	return strings.ToLower(strings.TrimSpace(number))
}

// AnnulmentConcept is a reason code offered for a decree of a given kind.
type AnnulmentConcept struct {
	ID      string     `json:"id" yaml:"id"`
	ScopeID string     `json:"scope_id" yaml:"scope_id"`
	Code    string     `json:"code" yaml:"code"`
	Label   string     `json:"label" yaml:"label"`
	Kind    DecreeKind `json:"kind" yaml:"kind"`
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Action describes the type of change recorded in a transaction.
type Action string

// Change actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change describes a mutation applied within a transaction.
type Change struct {
	Entity EntityType `json:"entity"`
	Action Action     `json:"action"`
	Before any        `json:"before,omitempty"`
	After  any        `json:"after,omitempty"`
}

// Violation reports a rule outcome.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id,omitempty"`
}

// Result aggregates rule violations.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true when any violation blocks commit.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when a transaction is blocked by rules.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	if len(e.Result.Violations) == 0 {
		return "transaction blocked by rules"
	}
	return "transaction blocked by rules: " + e.Result.Violations[0].Message
}
