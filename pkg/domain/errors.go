package domain

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind discriminates the failures a register operation can report.
// Callers branch on it to explain exactly why an operation was refused.
type FailureKind string

// Failure kinds.
const (
	FailureNone                  FailureKind = ""
	FailureValidation            FailureKind = "validation"
	FailureNotFound              FailureKind = "not_found"
	FailureAlreadyAnnulled       FailureKind = "already_annulled"
	FailureDuplicateDecreeNumber FailureKind = "duplicate_decree_number"
	FailureLedgerLocked          FailureKind = "ledger_locked"
	FailureInvariant             FailureKind = "invariant"
	FailureStorage               FailureKind = "storage"
)

// ValidationError lists missing or malformed fields.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e ValidationError) Error() string {
	msg := "validation failed"
	if e.Reason != "" {
		msg = e.Reason
	}
	if len(e.Fields) == 0 {
		return msg
	}
	return msg + ": " + strings.Join(e.Fields, ", ")
}

// Kind implements kinded.
func (ValidationError) Kind() FailureKind { return FailureValidation }

// NotFoundError is returned when a locator or id does not resolve.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Kind implements kinded.
func (NotFoundError) Kind() FailureKind { return FailureNotFound }

// AlreadyAnnulledError is returned when a decree targets an entry that a
// previous decree already annulled.
type AlreadyAnnulledError struct {
	RecordID string
	Locator  Locator
}

func (e AlreadyAnnulledError) Error() string {
	return fmt.Sprintf("entry at %s (%s) is already annulled", e.Locator, e.RecordID)
}

// Kind implements kinded.
func (AlreadyAnnulledError) Kind() FailureKind { return FailureAlreadyAnnulled }

// DuplicateDecreeNumberError is returned when the parish already holds a
// live decree with the same number.
type DuplicateDecreeNumberError struct {
	Number     string
	ExistingID string
}

func (e DuplicateDecreeNumberError) Error() string {
	return fmt.Sprintf("decree number %q already used by decree %s", e.Number, e.ExistingID)
}

// Kind implements kinded.
func (DuplicateDecreeNumberError) Kind() FailureKind { return FailureDuplicateDecreeNumber }

// LedgerLockedError is returned when allocation is attempted on a locked ledger.
type LedgerLockedError struct {
	Scope LedgerScope
}

func (e LedgerLockedError) Error() string {
	return fmt.Sprintf("numbering ledger %s is locked", e.Scope)
}

// Kind implements kinded.
func (LedgerLockedError) Kind() FailureKind { return FailureLedgerLocked }

// LedgerHeadTakenError is returned when the locator a ledger hands out is
// already held by another entry of the register. Like a locked ledger it
// blocks allocation until the head is reseeded.
type LedgerHeadTakenError struct {
	Scope    LedgerScope
	Locator  Locator
	RecordID string
}

func (e LedgerHeadTakenError) Error() string {
	return fmt.Sprintf("numbering ledger %s: next locator %s is already held by entry %s", e.Scope, e.Locator, e.RecordID)
}

// Kind implements kinded.
func (LedgerHeadTakenError) Kind() FailureKind { return FailureLedgerLocked }

// StorageError wraps an underlying persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e StorageError) Unwrap() error { return e.Err }

// Kind implements kinded.
func (StorageError) Kind() FailureKind { return FailureStorage }

// Kind implements kinded.
func (RuleViolationError) Kind() FailureKind { return FailureInvariant }

type kinded interface {
	Kind() FailureKind
}

// KindOf classifies err. Errors that carry no kind are storage failures.
func KindOf(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return FailureStorage
}
