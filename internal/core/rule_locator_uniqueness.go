package core

import (
	"context"
	"fmt"

	"parishregistry/pkg/domain"
)

// NewLocatorUniquenessRule blocks commits that leave two non-annulled entries
// of one parish register on the same locator.
func NewLocatorUniquenessRule() domain.Rule {
	return locatorUniquenessRule{}
}

type locatorUniquenessRule struct{}

func (locatorUniquenessRule) Name() string { return "locator_uniqueness" }

func (locatorUniquenessRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	holders := make(map[string]string)
	res := domain.Result{}
	for _, record := range view.ListAllRecords() {
		if record.Status == domain.StatusAnnulled || !record.Locator.Complete() {
			continue
		}
		key := record.ParishID + "/" + string(record.Sacrament) + "/" + record.Locator.Key()
		if holder, taken := holders[key]; taken {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "locator_uniqueness",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("%s %s of parish %s is held by %s and %s", record.Sacrament, record.Locator, record.ParishID, holder, record.ID),
				Entity:   domain.EntityRecord,
				EntityID: record.ID,
			})
			continue
		}
		holders[key] = record.ID
	}
	return res, nil
}
