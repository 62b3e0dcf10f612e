package domain

import "context"

// Transaction exposes the register operations that a persistence
// implementation must support within an atomic scope. Everything written
// through one Transaction commits together or not at all.
type Transaction interface {
	Snapshot() TransactionView
	SaveRecord(SacramentalRecord) (SacramentalRecord, error)
	UpdateRecord(id string, mutator func(*SacramentalRecord) error) (SacramentalRecord, error)
	SaveDecree(DecreeRecord) (DecreeRecord, error)
	DeleteDecree(id string) (DecreeRecord, error)
	AllocateNext(scope LedgerScope) (Locator, error)
	ConfigureLedger(head LedgerHead) (LedgerHead, error)
	FindRecord(parishID string, sacrament SacramentType, id string) (SacramentalRecord, bool)
	FindRecordByLocator(parishID string, sacrament SacramentType, locator Locator) (SacramentalRecord, bool)
	FindDecree(id string) (DecreeRecord, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// read paths.
type TransactionView interface {
	FindRecord(parishID string, sacrament SacramentType, id string) (SacramentalRecord, bool)
	FindRecordByLocator(parishID string, sacrament SacramentType, locator Locator) (SacramentalRecord, bool)
	ListRecords(parishID string, sacrament SacramentType) []SacramentalRecord
	ListAllRecords() []SacramentalRecord
	// FindDecree resolves live decrees only.
	FindDecree(id string) (DecreeRecord, bool)
	// FindDecreeAny also resolves deleted (tombstoned) decrees.
	FindDecreeAny(id string) (DecreeRecord, bool)
	ListDecrees(parishID string) []DecreeRecord
	ListAllDecrees() []DecreeRecord
	FindLedgerHead(scope LedgerScope) (LedgerHead, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	FindRecord(parishID string, sacrament SacramentType, id string) (SacramentalRecord, bool)
	FindRecordByLocator(parishID string, sacrament SacramentType, locator Locator) (SacramentalRecord, bool)
	ListRecords(parishID string, sacrament SacramentType) []SacramentalRecord
	FindDecree(id string) (DecreeRecord, bool)
	ListDecrees(parishID string) []DecreeRecord
}
