package core

import (
	"context"

	"parishregistry/internal/importer"
)

func (s *Service) reconciler(parishID string, sacrament SacramentType) importer.Reconciler {
	return importer.Reconciler{ParishID: parishID, Sacrament: sacrament, Aliases: importer.DefaultAliases()}
}

// ReconcileImport classifies legacy rows against the current register
// without writing anything.
func (s *Service) ReconcileImport(ctx context.Context, parishID string, sacrament SacramentType, rows []importer.RawRow) (importer.Result, error) {
	if _, err := requestScope(parishID, sacrament); err != nil {
		return importer.Result{}, err
	}
	var res importer.Result
	err := s.view(ctx, "reconcile_import", func(v TransactionView) error {
		res = s.reconciler(parishID, sacrament).Reconcile(rows, v.ListRecords(parishID, sacrament))
		return nil
	})
	return res, err
}

// ImportRecords reconciles rows against the register and inserts the safe
// ones in a single transaction. The returned candidates carry the stored
// records; duplicates and rejected rows are reported, not inserted.
func (s *Service) ImportRecords(ctx context.Context, parishID string, sacrament SacramentType, rows []importer.RawRow) (importer.Result, error) {
	var res importer.Result
	_, err := s.run(ctx, "import_records", EntityRecord, ActionCreate, func(tx Transaction) (string, error) {
		scope := parishID + "/" + string(sacrament)
		if _, err := requestScope(parishID, sacrament); err != nil {
			return scope, err
		}
		res = s.reconciler(parishID, sacrament).Reconcile(rows, tx.Snapshot().ListRecords(parishID, sacrament))
		for i, candidate := range res.ToInsert {
			record := candidate.Record
			record.ID = s.newID()
			saved, err := tx.SaveRecord(record)
			if err != nil {
				return scope, err
			}
			res.ToInsert[i].Record = saved
		}
		return scope, nil
	})
	if err != nil {
		return importer.Result{}, err
	}
	return res, nil
}
