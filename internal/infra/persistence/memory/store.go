// Package memory provides an in-memory implementation of the register
// persistence store used for tests and ephemeral environments, and as the
// transactional engine underneath the snapshotting backends.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"parishregistry/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// SacramentalRecord aliases domain.SacramentalRecord.
	SacramentalRecord = domain.SacramentalRecord
	// DecreeRecord aliases domain.DecreeRecord.
	DecreeRecord = domain.DecreeRecord
	// LedgerHead aliases domain.LedgerHead.
	LedgerHead = domain.LedgerHead
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	records map[string]SacramentalRecord
	decrees map[string]DecreeRecord
	ledger  map[string]LedgerHead
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Records map[string]SacramentalRecord `json:"records"`
	Decrees map[string]DecreeRecord      `json:"decrees"`
	Ledger  map[string]LedgerHead        `json:"ledger"`
}

func newMemoryState() memoryState {
	return memoryState{
		records: make(map[string]SacramentalRecord),
		decrees: make(map[string]DecreeRecord),
		ledger:  make(map[string]LedgerHead),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Records: make(map[string]SacramentalRecord, len(state.records)),
		Decrees: make(map[string]DecreeRecord, len(state.decrees)),
		Ledger:  make(map[string]LedgerHead, len(state.ledger)),
	}
	for k, v := range state.records {
		s.Records[k] = cloneRecord(v)
	}
	for k, v := range state.decrees {
		s.Decrees[k] = cloneDecree(v)
	}
	for k, v := range state.ledger {
		s.Ledger[k] = v
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Records {
		state.records[k] = cloneRecord(v)
	}
	for k, v := range s.Decrees {
		state.decrees[k] = cloneDecree(v)
	}
	for k, v := range s.Ledger {
		state.ledger[k] = v
	}
	return state
}

// migrateSnapshot normalizes snapshots written by older builds: nil buckets,
// blank statuses and heads persisted before their counters were validated.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Records == nil {
		snapshot.Records = map[string]SacramentalRecord{}
	}
	if snapshot.Decrees == nil {
		snapshot.Decrees = map[string]DecreeRecord{}
	}
	if snapshot.Ledger == nil {
		snapshot.Ledger = map[string]LedgerHead{}
	}
	for id, record := range snapshot.Records {
		if record.ID == "" {
			record.ID = id
		}
		if record.Status == "" {
			if record.Locator.Complete() {
				record.Status = record.Sacrament.SeatedStatus()
			} else {
				record.Status = domain.StatusPending
			}
		}
		snapshot.Records[id] = record
	}
	for id, decree := range snapshot.Decrees {
		if decree.ID == "" {
			decree.ID = id
		}
		snapshot.Decrees[id] = decree
	}
	for key, head := range snapshot.Ledger {
		if head.Book < 1 {
			head.Book = 1
		}
		if head.Folio < 1 {
			head.Folio = 1
		}
		if head.Entry < 1 {
			head.Entry = 1
		}
		if head.Scope.Key() != key {
			// Heads are addressed by their scope; drop entries whose key drifted.
			delete(snapshot.Ledger, key)
			snapshot.Ledger[head.Scope.Key()] = head
			continue
		}
		snapshot.Ledger[key] = head
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.records {
		cloned.records[k] = cloneRecord(v)
	}
	for k, v := range s.decrees {
		cloned.decrees[k] = cloneDecree(v)
	}
	for k, v := range s.ledger {
		cloned.ledger[k] = v
	}
	return cloned
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneRecord(r SacramentalRecord) SacramentalRecord {
	cp := r
	cp.MarginalNote = cloneString(r.MarginalNote)
	cp.AnnulmentConceptID = cloneString(r.AnnulmentConceptID)
	cp.LinkedDecreeID = cloneString(r.LinkedDecreeID)
	cp.Payload = r.Payload.Clone()
	return cp
}

func cloneDecree(d DecreeRecord) DecreeRecord {
	cp := d
	cp.OriginalRecordID = cloneString(d.OriginalRecordID)
	if d.OriginalLocator != nil {
		loc := *d.OriginalLocator
		cp.OriginalLocator = &loc
	}
	if d.DeletedAt != nil {
		at := *d.DeletedAt
		cp.DeletedAt = &at
	}
	return cp
}

func sortRecords(out []SacramentalRecord) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}

func sortDecrees(out []DecreeRecord) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}

// Store provides an in-memory transactional store for the register.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// SetNowFunc overrides the time provider stamped on writes.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of the transactional state to rules.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) FindRecord(parishID string, sacrament domain.SacramentType, id string) (SacramentalRecord, bool) {
	return findRecord(v.state, parishID, sacrament, id)
}

func (v transactionView) FindRecordByLocator(parishID string, sacrament domain.SacramentType, locator domain.Locator) (SacramentalRecord, bool) {
	return findRecordByLocator(v.state, parishID, sacrament, locator)
}

// ListRecords returns the parish register for one sacrament.
func (v transactionView) ListRecords(parishID string, sacrament domain.SacramentType) []SacramentalRecord {
	out := make([]SacramentalRecord, 0)
	for _, r := range v.state.records {
		if r.ParishID == parishID && r.Sacrament == sacrament {
			out = append(out, cloneRecord(r))
		}
	}
	sortRecords(out)
	return out
}

// ListAllRecords returns every record across parishes.
func (v transactionView) ListAllRecords() []SacramentalRecord {
	out := make([]SacramentalRecord, 0, len(v.state.records))
	for _, r := range v.state.records {
		out = append(out, cloneRecord(r))
	}
	sortRecords(out)
	return out
}

func (v transactionView) FindDecree(id string) (DecreeRecord, bool) {
	d, ok := v.state.decrees[id]
	if !ok || !d.Live() {
		return DecreeRecord{}, false
	}
	return cloneDecree(d), true
}

func (v transactionView) FindDecreeAny(id string) (DecreeRecord, bool) {
	d, ok := v.state.decrees[id]
	if !ok {
		return DecreeRecord{}, false
	}
	return cloneDecree(d), true
}

// ListDecrees returns the live decrees of a parish.
func (v transactionView) ListDecrees(parishID string) []DecreeRecord {
	out := make([]DecreeRecord, 0)
	for _, d := range v.state.decrees {
		if d.ParishID == parishID && d.Live() {
			out = append(out, cloneDecree(d))
		}
	}
	sortDecrees(out)
	return out
}

// ListAllDecrees returns every decree, tombstones included.
func (v transactionView) ListAllDecrees() []DecreeRecord {
	out := make([]DecreeRecord, 0, len(v.state.decrees))
	for _, d := range v.state.decrees {
		out = append(out, cloneDecree(d))
	}
	sortDecrees(out)
	return out
}

func (v transactionView) FindLedgerHead(scope domain.LedgerScope) (LedgerHead, bool) {
	h, ok := v.state.ledger[scope.Key()]
	return h, ok
}

func findRecord(state *memoryState, parishID string, sacrament domain.SacramentType, id string) (SacramentalRecord, bool) {
	r, ok := state.records[id]
	if !ok || r.ParishID != parishID || r.Sacrament != sacrament {
		return SacramentalRecord{}, false
	}
	return cloneRecord(r), true
}

// findRecordByLocator prefers the entry that currently holds the locator;
// when only annulled entries carry it, the most recently updated one is
// returned so callers can report why it cannot be targeted.
func findRecordByLocator(state *memoryState, parishID string, sacrament domain.SacramentType, locator domain.Locator) (SacramentalRecord, bool) {
	key := locator.Key()
	var (
		annulled SacramentalRecord
		found    bool
	)
	for _, r := range state.records {
		if r.ParishID != parishID || r.Sacrament != sacrament || r.Locator.Key() != key {
			continue
		}
		if r.Status != domain.StatusAnnulled {
			return cloneRecord(r), true
		}
		if !found || r.UpdatedAt.After(annulled.UpdatedAt) || (r.UpdatedAt.Equal(annulled.UpdatedAt) && r.ID > annulled.ID) {
			annulled = r
			found = true
		}
	}
	if !found {
		return SacramentalRecord{}, false
	}
	return cloneRecord(annulled), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the live state only when fn succeeds and no blocking rule
// fires, so a failure at any step leaves records, decrees and ledger heads
// exactly as they were.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

// FindRecord resolves a record by id within a parish register.
func (s *Store) FindRecord(parishID string, sacrament domain.SacramentType, id string) (SacramentalRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findRecord(&s.state, parishID, sacrament, id)
}

// FindRecordByLocator resolves a record by its official locator.
func (s *Store) FindRecordByLocator(parishID string, sacrament domain.SacramentType, locator domain.Locator) (SacramentalRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findRecordByLocator(&s.state, parishID, sacrament, locator)
}

// ListRecords returns the parish register for one sacrament.
func (s *Store) ListRecords(parishID string, sacrament domain.SacramentType) []SacramentalRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListRecords(parishID, sacrament)
}

// FindDecree resolves a live decree.
func (s *Store) FindDecree(id string) (DecreeRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindDecree(id)
}

// ListDecrees returns the live decrees of a parish.
func (s *Store) ListDecrees(parishID string) []DecreeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListDecrees(parishID)
}

// helper to record and append change entries.
func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindRecord exposes record lookup within the transaction scope.
func (tx *transaction) FindRecord(parishID string, sacrament domain.SacramentType, id string) (SacramentalRecord, bool) {
	return findRecord(&tx.state, parishID, sacrament, id)
}

// FindRecordByLocator exposes locator lookup within the transaction scope.
func (tx *transaction) FindRecordByLocator(parishID string, sacrament domain.SacramentType, locator domain.Locator) (SacramentalRecord, bool) {
	return findRecordByLocator(&tx.state, parishID, sacrament, locator)
}

// FindDecree exposes live decree lookup within the transaction scope.
func (tx *transaction) FindDecree(id string) (DecreeRecord, bool) {
	return newTransactionView(&tx.state).FindDecree(id)
}

// SaveRecord upserts a record. A blank ID is assigned; ParishID and
// Sacrament of an existing record cannot change.
func (tx *transaction) SaveRecord(r SacramentalRecord) (SacramentalRecord, error) {
	if r.ParishID == "" {
		return SacramentalRecord{}, domain.ValidationError{Fields: []string{"parish_id"}}
	}
	if !r.Sacrament.Valid() {
		return SacramentalRecord{}, domain.ValidationError{Fields: []string{"sacrament"}}
	}
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if r.Status == "" {
		r.Status = domain.StatusPending
	}
	current, exists := tx.state.records[r.ID]
	if exists {
		if current.ParishID != r.ParishID || current.Sacrament != r.Sacrament {
			return SacramentalRecord{}, fmt.Errorf("record %q belongs to %s/%s", r.ID, current.ParishID, current.Sacrament)
		}
		r.CreatedAt = current.CreatedAt
		r.UpdatedAt = tx.now
		tx.state.records[r.ID] = cloneRecord(r)
		tx.recordChange(Change{Entity: domain.EntityRecord, Action: domain.ActionUpdate, Before: cloneRecord(current), After: cloneRecord(r)})
		return cloneRecord(r), nil
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.records[r.ID] = cloneRecord(r)
	tx.recordChange(Change{Entity: domain.EntityRecord, Action: domain.ActionCreate, After: cloneRecord(r)})
	return cloneRecord(r), nil
}

// UpdateRecord mutates a record using the provided mutator function.
func (tx *transaction) UpdateRecord(id string, mutator func(*SacramentalRecord) error) (SacramentalRecord, error) {
	current, ok := tx.state.records[id]
	if !ok {
		return SacramentalRecord{}, domain.NotFoundError{Entity: domain.EntityRecord, ID: id}
	}
	before := cloneRecord(current)
	if err := mutator(&current); err != nil {
		return SacramentalRecord{}, err
	}
	current.ID = id
	current.ParishID = before.ParishID
	current.Sacrament = before.Sacrament
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.records[id] = cloneRecord(current)
	tx.recordChange(Change{Entity: domain.EntityRecord, Action: domain.ActionUpdate, Before: before, After: cloneRecord(current)})
	return cloneRecord(current), nil
}

// SaveDecree upserts a decree.
func (tx *transaction) SaveDecree(d DecreeRecord) (DecreeRecord, error) {
	if d.ParishID == "" {
		return DecreeRecord{}, domain.ValidationError{Fields: []string{"parish_id"}}
	}
	if d.ID == "" {
		d.ID = tx.store.newID()
	}
	current, exists := tx.state.decrees[d.ID]
	if exists {
		if current.ParishID != d.ParishID {
			return DecreeRecord{}, fmt.Errorf("decree %q belongs to parish %s", d.ID, current.ParishID)
		}
		d.CreatedAt = current.CreatedAt
		d.UpdatedAt = tx.now
		tx.state.decrees[d.ID] = cloneDecree(d)
		tx.recordChange(Change{Entity: domain.EntityDecree, Action: domain.ActionUpdate, Before: cloneDecree(current), After: cloneDecree(d)})
		return cloneDecree(d), nil
	}
	d.CreatedAt = tx.now
	d.UpdatedAt = tx.now
	tx.state.decrees[d.ID] = cloneDecree(d)
	tx.recordChange(Change{Entity: domain.EntityDecree, Action: domain.ActionCreate, After: cloneDecree(d)})
	return cloneDecree(d), nil
}

// DeleteDecree tombstones a live decree. Records linked to it keep resolving
// their link to the tombstone.
func (tx *transaction) DeleteDecree(id string) (DecreeRecord, error) {
	current, ok := tx.state.decrees[id]
	if !ok || !current.Live() {
		return DecreeRecord{}, domain.NotFoundError{Entity: domain.EntityDecree, ID: id}
	}
	before := cloneDecree(current)
	at := tx.now
	current.DeletedAt = &at
	current.UpdatedAt = tx.now
	tx.state.decrees[id] = cloneDecree(current)
	tx.recordChange(Change{Entity: domain.EntityDecree, Action: domain.ActionDelete, Before: before, After: cloneDecree(current)})
	return cloneDecree(current), nil
}

// AllocateNext assigns the scope's current head and advances it. The head is
// created lazily with default values on first use.
func (tx *transaction) AllocateNext(scope domain.LedgerScope) (domain.Locator, error) {
	if err := scope.Validate(); err != nil {
		return domain.Locator{}, err
	}
	head, ok := tx.state.ledger[scope.Key()]
	if !ok {
		head = domain.NewLedgerHead(scope)
	}
	before := head
	assigned, err := head.Advance()
	if err != nil {
		return domain.Locator{}, err
	}
	head.UpdatedAt = tx.now
	tx.state.ledger[scope.Key()] = head
	action := domain.ActionUpdate
	if !ok {
		action = domain.ActionCreate
	}
	tx.recordChange(Change{Entity: domain.EntityLedger, Action: action, Before: before, After: head})
	return assigned, nil
}

// ConfigureLedger replaces a scope's head values.
func (tx *transaction) ConfigureLedger(head LedgerHead) (LedgerHead, error) {
	if err := head.Validate(); err != nil {
		return LedgerHead{}, err
	}
	before, existed := tx.state.ledger[head.Scope.Key()]
	head.UpdatedAt = tx.now
	tx.state.ledger[head.Scope.Key()] = head
	action := domain.ActionCreate
	if existed {
		action = domain.ActionUpdate
	}
	tx.recordChange(Change{Entity: domain.EntityLedger, Action: action, Before: before, After: head})
	return head, nil
}
