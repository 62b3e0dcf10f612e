package core

import (
	"context"
	"fmt"

	"parishregistry/pkg/domain"
)

// DecreeLinksRule enforces referential integrity between decrees and the
// entries they connect. Tombstoned decrees still satisfy record links.
func DecreeLinksRule() domain.Rule {
	return decreeLinksRule{}
}

type decreeLinksRule struct{}

func (decreeLinksRule) Name() string { return "decree_links" }

func (decreeLinksRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	for _, record := range view.ListAllRecords() {
		if record.LinkedDecreeID == nil {
			continue
		}
		decree, ok := view.FindDecreeAny(*record.LinkedDecreeID)
		switch {
		case !ok:
			res.Violations = append(res.Violations, decreeLinkViolation(domain.EntityRecord, record.ID,
				fmt.Sprintf("entry %s links missing decree %s", record.ID, *record.LinkedDecreeID)))
		case decree.ParishID != record.ParishID || decree.Sacrament != record.Sacrament:
			res.Violations = append(res.Violations, decreeLinkViolation(domain.EntityRecord, record.ID,
				fmt.Sprintf("entry %s links decree %s of another register", record.ID, decree.ID)))
		}
	}

	for _, decree := range view.ListAllDecrees() {
		if _, ok := view.FindRecord(decree.ParishID, decree.Sacrament, decree.NewRecordID); !ok {
			res.Violations = append(res.Violations, decreeLinkViolation(domain.EntityDecree, decree.ID,
				fmt.Sprintf("decree %s references missing new entry %s", decree.ID, decree.NewRecordID)))
		}
		if decree.OriginalRecordID == nil {
			continue
		}
		if decree.Kind == domain.DecreeReposition {
			res.Violations = append(res.Violations, decreeLinkViolation(domain.EntityDecree, decree.ID,
				fmt.Sprintf("reposition decree %s references an original entry", decree.ID)))
			continue
		}
		if _, ok := view.FindRecord(decree.ParishID, decree.Sacrament, *decree.OriginalRecordID); !ok {
			res.Violations = append(res.Violations, decreeLinkViolation(domain.EntityDecree, decree.ID,
				fmt.Sprintf("decree %s references missing original entry %s", decree.ID, *decree.OriginalRecordID)))
		}
	}
	return res, nil
}

func decreeLinkViolation(entity domain.EntityType, id, message string) domain.Violation {
	return domain.Violation{
		Rule:     "decree_links",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   entity,
		EntityID: id,
	}
}
