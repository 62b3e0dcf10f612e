package core

import (
	"context"
	"fmt"

	"parishregistry/pkg/domain"
)

// SupplementaryEntriesRule requires entries created by a decree to sit in the
// supplementary book in the register's terminal state. A later decree may
// still annul them.
func SupplementaryEntriesRule() domain.Rule {
	return supplementaryEntriesRule{}
}

type supplementaryEntriesRule struct{}

func (supplementaryEntriesRule) Name() string { return "supplementary_entries" }

func (supplementaryEntriesRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, decree := range view.ListAllDecrees() {
		record, ok := view.FindRecord(decree.ParishID, decree.Sacrament, decree.NewRecordID)
		if !ok {
			continue
		}
		if record.IsSupplementary && (record.Status == record.Sacrament.SeatedStatus() || record.Status == domain.StatusAnnulled) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "supplementary_entries",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("entry %s created by decree %s must be a %s supplementary entry (supplementary=%t status=%s)", record.ID, decree.ID, record.Sacrament.SeatedStatus(), record.IsSupplementary, record.Status),
			Entity:   domain.EntityRecord,
			EntityID: record.ID,
		})
	}
	return res, nil
}
