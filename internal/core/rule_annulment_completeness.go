package core

import (
	"context"
	"fmt"
	"strings"

	"parishregistry/pkg/domain"
)

// NewAnnulmentCompletenessRule requires every annulled entry to carry a
// marginal note and a decree link.
func NewAnnulmentCompletenessRule() domain.Rule {
	return annulmentCompletenessRule{}
}

type annulmentCompletenessRule struct{}

func (annulmentCompletenessRule) Name() string { return "annulment_completeness" }

func (annulmentCompletenessRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, record := range view.ListAllRecords() {
		if record.Status != domain.StatusAnnulled {
			continue
		}
		var missing []string
		if record.MarginalNote == nil || strings.TrimSpace(*record.MarginalNote) == "" {
			missing = append(missing, "marginal note")
		}
		if record.LinkedDecreeID == nil || *record.LinkedDecreeID == "" {
			missing = append(missing, "decree link")
		}
		if len(missing) == 0 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "annulment_completeness",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("annulled entry %s lacks %s", record.ID, strings.Join(missing, " and ")),
			Entity:   domain.EntityRecord,
			EntityID: record.ID,
		})
	}
	return res, nil
}
