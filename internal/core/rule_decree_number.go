package core

import (
	"context"
	"fmt"

	"parishregistry/pkg/domain"
)

// NewDecreeNumberUniqueRule blocks two live decrees of one parish sharing a
// number, regardless of kind or sacrament.
func NewDecreeNumberUniqueRule() domain.Rule {
	return decreeNumberUniqueRule{}
}

type decreeNumberUniqueRule struct{}

func (decreeNumberUniqueRule) Name() string { return "decree_number_unique" }

func (decreeNumberUniqueRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	seen := make(map[string]string)
	for _, decree := range view.ListAllDecrees() {
		if !decree.Live() {
			continue
		}
		key := decree.ParishID + "/" + domain.NumberKey(decree.DecreeNumber)
		if first, dup := seen[key]; dup {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "decree_number_unique",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("decree number %q used by %s and %s", decree.DecreeNumber, first, decree.ID),
				Entity:   domain.EntityDecree,
				EntityID: decree.ID,
			})
			continue
		}
		seen[key] = decree.ID
	}
	return res, nil
}
