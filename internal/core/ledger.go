package core

import (
	"context"

	"parishregistry/pkg/domain"
)

// AllocateNext assigns the next locator of scope in its own transaction.
func (s *Service) AllocateNext(ctx context.Context, scope LedgerScope) (Locator, error) {
	var assigned Locator
	_, err := s.run(ctx, "allocate_next", EntityLedger, ActionUpdate, func(tx Transaction) (string, error) {
		loc, err := tx.AllocateNext(scope)
		if err != nil {
			return scope.Key(), err
		}
		assigned = loc
		return scope.Key(), nil
	})
	if err != nil {
		return Locator{}, err
	}
	return assigned, nil
}

// LedgerHead returns the current head of scope. A scope never allocated from
// reports the default head, which is not persisted by this call.
func (s *Service) LedgerHead(ctx context.Context, scope LedgerScope) (LedgerHead, error) {
	if err := scope.Validate(); err != nil {
		return LedgerHead{}, err
	}
	var head LedgerHead
	err := s.view(ctx, "ledger_head", func(v TransactionView) error {
		if h, ok := v.FindLedgerHead(scope); ok {
			head = h
			return nil
		}
		head = domain.NewLedgerHead(scope)
		return nil
	})
	return head, err
}

// LedgerHeadHolder returns the live entry that already holds the locator
// scope's ledger would hand out next. A decree run against such a head fails
// with LedgerHeadTakenError.
func (s *Service) LedgerHeadHolder(ctx context.Context, scope LedgerScope) (SacramentalRecord, bool, error) {
	if err := scope.Validate(); err != nil {
		return SacramentalRecord{}, false, err
	}
	var (
		holder SacramentalRecord
		found  bool
	)
	err := s.view(ctx, "ledger_head_holder", func(v TransactionView) error {
		head, ok := v.FindLedgerHead(scope)
		if !ok {
			head = domain.NewLedgerHead(scope)
		}
		holder, found = LocatorHolder(v, scope.ParishID, scope.Sacrament, head.Current())
		return nil
	})
	return holder, found, err
}

// ConfigureLedger seeds or replaces the head values of a scope. A zero
// EntriesPerFolio keeps the default capacity.
func (s *Service) ConfigureLedger(ctx context.Context, head LedgerHead) (LedgerHead, error) {
	if head.EntriesPerFolio == 0 {
		head.EntriesPerFolio = domain.DefaultEntriesPerFolio
	}
	var saved LedgerHead
	_, err := s.run(ctx, "configure_ledger", EntityLedger, ActionUpdate, func(tx Transaction) (string, error) {
		h, err := tx.ConfigureLedger(head)
		if err != nil {
			return head.Scope.Key(), err
		}
		saved = h
		return h.Scope.Key(), nil
	})
	if err != nil {
		return LedgerHead{}, err
	}
	return saved, nil
}
