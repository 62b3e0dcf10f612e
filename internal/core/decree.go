package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parishregistry/internal/catalog"
	"parishregistry/internal/marginalnote"
	"parishregistry/pkg/domain"
)

// DecreeRequest carries everything a decree workflow needs. Original is the
// locator of the entry being superseded; reposition ignores it.
type DecreeRequest struct {
	ParishID           string               `json:"parish_id" yaml:"parish_id"`
	Sacrament          domain.SacramentType `json:"sacrament" yaml:"sacrament"`
	DecreeNumber       string               `json:"decree_number" yaml:"decree_number"`
	DecreeDate         time.Time            `json:"decree_date" yaml:"decree_date"`
	AnnulmentConceptID string               `json:"annulment_concept_id" yaml:"annulment_concept_id"`
	Observations       string               `json:"observations,omitempty" yaml:"observations,omitempty"`
	TargetName         string               `json:"target_name,omitempty" yaml:"target_name,omitempty"`
	Reference          string               `json:"reference,omitempty" yaml:"reference,omitempty"`
	Original           *domain.Locator      `json:"original,omitempty" yaml:"original,omitempty"`
	NewEntry           domain.Payload       `json:"new_entry" yaml:"new_entry"`
	CreatedBy          string               `json:"created_by,omitempty" yaml:"created_by,omitempty"`
}

// DecreeOutcome reports what a decree workflow committed. OriginalFound
// reports whether an original entry was resolved and annulled.
type DecreeOutcome struct {
	DecreeID      string             `json:"decree_id"`
	Decree        DecreeRecord       `json:"decree"`
	NewRecord     SacramentalRecord  `json:"new_record"`
	NewLocator    Locator            `json:"new_locator"`
	OriginalFound bool               `json:"original_found"`
	Original      *SacramentalRecord `json:"original,omitempty"`
	Result        Result             `json:"result"`
}

// RunCorrection annuls the entry at req.Original and seats its corrected
// version in the supplementary book. The original must exist and must not be
// annulled already.
func (s *Service) RunCorrection(ctx context.Context, req DecreeRequest) (DecreeOutcome, error) {
	return s.runDecree(ctx, domain.DecreeCorrection, req)
}

// RunReplacement seats a replacement entry. When req.Original resolves, that
// entry is annulled as in a correction; otherwise the decree proceeds with
// only the supplied locator kept for audit.
func (s *Service) RunReplacement(ctx context.Context, req DecreeRequest) (DecreeOutcome, error) {
	return s.runDecree(ctx, domain.DecreeReplacement, req)
}

// RunReposition seats an entry that has no locatable original. No lookup is
// made and the decree never references an original entry.
func (s *Service) RunReposition(ctx context.Context, req DecreeRequest) (DecreeOutcome, error) {
	return s.runDecree(ctx, domain.DecreeReposition, req)
}

func (s *Service) runDecree(ctx context.Context, kind DecreeKind, req DecreeRequest) (DecreeOutcome, error) {
	var out DecreeOutcome
	res, err := s.run(ctx, "run_"+string(kind), EntityDecree, ActionCreate, func(tx Transaction) (string, error) {
		adapter, err := requestScope(req.ParishID, req.Sacrament)
		if err != nil {
			return "", err
		}

		original, err := locateOriginal(tx, kind, req)
		if err != nil {
			return "", err
		}

		targetName := strings.TrimSpace(req.TargetName)
		if targetName == "" {
			targetName = adapter.targetName(req.NewEntry)
		}
		if err := validateDecreeFields(adapter, req.DecreeNumber, req.DecreeDate, req.AnnulmentConceptID, targetName, req.NewEntry); err != nil {
			return "", err
		}
		if err := s.checkConcept(ctx, req.ParishID, kind, req.AnnulmentConceptID); err != nil {
			return "", err
		}
		if err := checkDecreeNumber(tx.Snapshot(), req.ParishID, req.DecreeNumber, ""); err != nil {
			return "", err
		}

		scope := LedgerScope{ParishID: req.ParishID, Sacrament: req.Sacrament, Kind: domain.BookSupplementary}
		newLocator, err := tx.AllocateNext(scope)
		if err != nil {
			return "", err
		}
		if holder, ok := LocatorHolder(tx.Snapshot(), req.ParishID, req.Sacrament, newLocator); ok {
			return "", domain.LedgerHeadTakenError{Scope: scope, Locator: newLocator, RecordID: holder.ID}
		}

		decreeID := s.newID()
		conceptID := req.AnnulmentConceptID
		newRecord, err := tx.SaveRecord(SacramentalRecord{
			Base:               domain.Base{ID: s.newID()},
			ParishID:           req.ParishID,
			Sacrament:          req.Sacrament,
			Locator:            newLocator,
			Status:             req.Sacrament.SeatedStatus(),
			IsSupplementary:    true,
			AnnulmentConceptID: &conceptID,
			LinkedDecreeID:     &decreeID,
			Payload:            req.NewEntry.Clone(),
		})
		if err != nil {
			return "", err
		}

		decree := DecreeRecord{
			Base:               domain.Base{ID: decreeID},
			ParishID:           req.ParishID,
			Sacrament:          req.Sacrament,
			Kind:               kind,
			DecreeNumber:       strings.TrimSpace(req.DecreeNumber),
			DecreeDate:         req.DecreeDate,
			AnnulmentConceptID: conceptID,
			Observations:       req.Observations,
			TargetName:         targetName,
			Reference:          req.Reference,
			NewRecordID:        newRecord.ID,
			NewLocator:         newLocator,
			CreatedBy:          req.CreatedBy,
		}
		if kind != domain.DecreeReposition && req.Original != nil && !req.Original.IsZero() {
			snapshot := *req.Original
			decree.OriginalLocator = &snapshot
		}

		if original != nil {
			annulled, err := annulOriginal(tx, original.ID, decree)
			if err != nil {
				return "", err
			}
			originalID := annulled.ID
			decree.OriginalRecordID = &originalID
			out.Original = &annulled
			out.OriginalFound = true
		}

		saved, err := tx.SaveDecree(decree)
		if err != nil {
			return "", err
		}
		out.DecreeID = saved.ID
		out.Decree = saved
		out.NewRecord = newRecord
		out.NewLocator = newLocator
		return saved.ID, nil
	})
	if err != nil {
		return DecreeOutcome{Result: res}, err
	}
	out.Result = res
	return out, nil
}

// LocatorHolder returns the live entry of the register that holds loc, in
// either book. Annulled entries do not hold their locator.
func LocatorHolder(view TransactionView, parishID string, sacrament SacramentType, loc Locator) (SacramentalRecord, bool) {
	key := loc.Key()
	for _, r := range view.ListRecords(parishID, sacrament) {
		if r.Status != domain.StatusAnnulled && r.Locator.Key() == key {
			return r, true
		}
	}
	return SacramentalRecord{}, false
}

func requestScope(parishID string, sacrament SacramentType) (sacramentAdapter, error) {
	var missing []string
	if strings.TrimSpace(parishID) == "" {
		missing = append(missing, "parish_id")
	}
	adapter, ok := adapterFor(sacrament)
	if !ok {
		missing = append(missing, "sacrament")
	}
	if len(missing) > 0 {
		return sacramentAdapter{}, domain.ValidationError{Fields: missing}
	}
	return adapter, nil
}

// locateOriginal resolves the entry a decree supersedes. It returns nil when
// the workflow proceeds without one.
func locateOriginal(tx Transaction, kind DecreeKind, req DecreeRequest) (*SacramentalRecord, error) {
	switch kind {
	case domain.DecreeReposition:
		return nil, nil
	case domain.DecreeCorrection:
		if req.Original == nil || !req.Original.Complete() {
			return nil, domain.ValidationError{Fields: []string{"original_locator"}}
		}
	case domain.DecreeReplacement:
		if req.Original == nil || !req.Original.Complete() {
			return nil, nil
		}
	}
	record, ok := tx.FindRecordByLocator(req.ParishID, req.Sacrament, *req.Original)
	if !ok {
		if kind == domain.DecreeReplacement {
			return nil, nil
		}
		return nil, domain.NotFoundError{Entity: EntityRecord, ID: req.Original.String()}
	}
	if record.Status == domain.StatusAnnulled {
		return nil, domain.AlreadyAnnulledError{RecordID: record.ID, Locator: record.Locator}
	}
	return &record, nil
}

func validateDecreeFields(adapter sacramentAdapter, number string, date time.Time, conceptID, targetName string, entry Payload) error {
	missing := blankFields(field{"decree_number", number})
	if date.IsZero() {
		missing = append(missing, "decree_date")
	}
	missing = append(missing, blankFields(
		field{"annulment_concept_id", conceptID},
		field{"target_name", targetName},
	)...)
	missing = append(missing, adapter.requiredNewEntryFields(entry)...)
	if len(missing) > 0 {
		return domain.ValidationError{Fields: missing, Reason: "decree request incomplete"}
	}
	return nil
}

func (s *Service) checkConcept(ctx context.Context, parishID string, kind DecreeKind, conceptID string) error {
	if s.catalog == nil {
		return nil
	}
	ok, err := catalog.Contains(ctx, s.catalog, parishID, kind, conceptID)
	if err != nil {
		return fmt.Errorf("list annulment concepts: %w", err)
	}
	if !ok {
		return domain.ValidationError{
			Fields: []string{"annulment_concept_id"},
			Reason: fmt.Sprintf("annulment concept %q is not offered for %s decrees", conceptID, kind),
		}
	}
	return nil
}

// checkDecreeNumber enforces parish-wide number uniqueness across every
// decree kind and sacrament. exceptID excludes the decree being edited.
func checkDecreeNumber(view TransactionView, parishID, number, exceptID string) error {
	key := domain.NumberKey(number)
	for _, d := range view.ListDecrees(parishID) {
		if d.ID != exceptID && domain.NumberKey(d.DecreeNumber) == key {
			return domain.DuplicateDecreeNumberError{Number: strings.TrimSpace(number), ExistingID: d.ID}
		}
	}
	return nil
}

func annulOriginal(tx Transaction, id string, decree DecreeRecord) (SacramentalRecord, error) {
	note := marginalnote.Generate(decree.DecreeNumber, decree.DecreeDate, decree.NewLocator)
	conceptID := decree.AnnulmentConceptID
	decreeID := decree.ID
	return tx.UpdateRecord(id, func(r *SacramentalRecord) error {
		r.Status = domain.StatusAnnulled
		r.MarginalNote = &note
		r.AnnulmentConceptID = &conceptID
		r.LinkedDecreeID = &decreeID
		return nil
	})
}

// DecreePatch amends a decree. Nil fields are left unchanged.
type DecreePatch struct {
	DecreeNumber       *string         `json:"decree_number,omitempty" yaml:"decree_number,omitempty"`
	DecreeDate         *time.Time      `json:"decree_date,omitempty" yaml:"decree_date,omitempty"`
	AnnulmentConceptID *string         `json:"annulment_concept_id,omitempty" yaml:"annulment_concept_id,omitempty"`
	Observations       *string         `json:"observations,omitempty" yaml:"observations,omitempty"`
	TargetName         *string         `json:"target_name,omitempty" yaml:"target_name,omitempty"`
	Reference          *string         `json:"reference,omitempty" yaml:"reference,omitempty"`
	NewEntry           *domain.Payload `json:"new_entry,omitempty" yaml:"new_entry,omitempty"`
}

// UpdateDecree amends a live decree. The supplementary entry keeps the
// locator it was allocated; its payload is overwritten when the patch carries
// one, and the original entry's marginal note is regenerated. Once a later
// decree has annulled the supplementary entry it is left untouched, and a
// patch carrying a new entry fails with AlreadyAnnulledError.
func (s *Service) UpdateDecree(ctx context.Context, parishID, decreeID string, patch DecreePatch) (DecreeRecord, error) {
	var updated DecreeRecord
	_, err := s.run(ctx, "update_decree", EntityDecree, ActionUpdate, func(tx Transaction) (string, error) {
		decree, ok := tx.FindDecree(decreeID)
		if !ok || decree.ParishID != parishID {
			return decreeID, domain.NotFoundError{Entity: EntityDecree, ID: decreeID}
		}
		adapter, err := requestScope(decree.ParishID, decree.Sacrament)
		if err != nil {
			return decreeID, err
		}
		newRecord, ok := tx.FindRecord(decree.ParishID, decree.Sacrament, decree.NewRecordID)
		if !ok {
			return decreeID, domain.NotFoundError{Entity: EntityRecord, ID: decree.NewRecordID}
		}

		// A later decree that annulled the entry owns it from then on.
		superseded := newRecord.LinkedDecreeID == nil || *newRecord.LinkedDecreeID != decree.ID
		if superseded && patch.NewEntry != nil {
			return decreeID, domain.AlreadyAnnulledError{RecordID: newRecord.ID, Locator: newRecord.Locator}
		}

		applyDecreePatch(&decree, patch)
		entry := newRecord.Payload
		if patch.NewEntry != nil {
			entry = patch.NewEntry.Clone()
			if patch.TargetName == nil {
				if name := adapter.targetName(entry); name != "" {
					decree.TargetName = name
				}
			}
		}
		if err := validateDecreeFields(adapter, decree.DecreeNumber, decree.DecreeDate, decree.AnnulmentConceptID, decree.TargetName, entry); err != nil {
			return decreeID, err
		}
		if err := s.checkConcept(ctx, decree.ParishID, decree.Kind, decree.AnnulmentConceptID); err != nil {
			return decreeID, err
		}
		if err := checkDecreeNumber(tx.Snapshot(), decree.ParishID, decree.DecreeNumber, decree.ID); err != nil {
			return decreeID, err
		}

		if !superseded {
			conceptID := decree.AnnulmentConceptID
			if _, err := tx.UpdateRecord(newRecord.ID, func(r *SacramentalRecord) error {
				r.Payload = entry
				r.AnnulmentConceptID = &conceptID
				return nil
			}); err != nil {
				return decreeID, err
			}
		}

		if decree.OriginalRecordID != nil {
			original, ok := tx.FindRecord(decree.ParishID, decree.Sacrament, *decree.OriginalRecordID)
			if !ok {
				return decreeID, domain.NotFoundError{Entity: EntityRecord, ID: *decree.OriginalRecordID}
			}
			if _, err := annulOriginal(tx, original.ID, decree); err != nil {
				return decreeID, err
			}
		}

		saved, err := tx.SaveDecree(decree)
		if err != nil {
			return decreeID, err
		}
		updated = saved
		return saved.ID, nil
	})
	if err != nil {
		return DecreeRecord{}, err
	}
	return updated, nil
}

func applyDecreePatch(d *DecreeRecord, patch DecreePatch) {
	if patch.DecreeNumber != nil {
		d.DecreeNumber = strings.TrimSpace(*patch.DecreeNumber)
	}
	if patch.DecreeDate != nil {
		d.DecreeDate = *patch.DecreeDate
	}
	if patch.AnnulmentConceptID != nil {
		d.AnnulmentConceptID = *patch.AnnulmentConceptID
	}
	if patch.Observations != nil {
		d.Observations = *patch.Observations
	}
	if patch.TargetName != nil {
		d.TargetName = strings.TrimSpace(*patch.TargetName)
	}
	if patch.Reference != nil {
		d.Reference = *patch.Reference
	}
}

// DeleteDecree removes a decree from the parish's decree list. The annulled
// original stays annulled and the supplementary entry stays seated; both keep
// resolving their link to the deleted decree.
func (s *Service) DeleteDecree(ctx context.Context, parishID, decreeID string) (DecreeRecord, error) {
	var deleted DecreeRecord
	_, err := s.run(ctx, "delete_decree", EntityDecree, ActionDelete, func(tx Transaction) (string, error) {
		decree, ok := tx.FindDecree(decreeID)
		if !ok || decree.ParishID != parishID {
			return decreeID, domain.NotFoundError{Entity: EntityDecree, ID: decreeID}
		}
		d, err := tx.DeleteDecree(decreeID)
		if err != nil {
			return decreeID, err
		}
		deleted = d
		return d.ID, nil
	})
	if err != nil {
		return DecreeRecord{}, err
	}
	return deleted, nil
}

// GetDecree returns a live decree of the parish.
func (s *Service) GetDecree(ctx context.Context, parishID, decreeID string) (DecreeRecord, error) {
	var decree DecreeRecord
	err := s.view(ctx, "get_decree", func(v TransactionView) error {
		d, ok := v.FindDecree(decreeID)
		if !ok || d.ParishID != parishID {
			return domain.NotFoundError{Entity: EntityDecree, ID: decreeID}
		}
		decree = d
		return nil
	})
	return decree, err
}

// ListDecrees returns the parish's live decrees, oldest first.
func (s *Service) ListDecrees(ctx context.Context, parishID string) ([]DecreeRecord, error) {
	var decrees []DecreeRecord
	err := s.view(ctx, "list_decrees", func(v TransactionView) error {
		decrees = v.ListDecrees(parishID)
		return nil
	})
	return decrees, err
}

// ListRecords returns one parish register, annulled entries included.
func (s *Service) ListRecords(ctx context.Context, parishID string, sacrament SacramentType) ([]SacramentalRecord, error) {
	var records []SacramentalRecord
	err := s.view(ctx, "list_records", func(v TransactionView) error {
		records = v.ListRecords(parishID, sacrament)
		return nil
	})
	return records, err
}
