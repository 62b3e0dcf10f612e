package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"parishregistry/pkg/domain"

	"github.com/stretchr/testify/require"
)

const testParish = "parish-1"

var fixedNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() Clock { return ClockFunc(func() time.Time { return fixedNow }) }

func sequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("%s-%d", prefix, n.Add(1)) }
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithClock(fixedClock()), WithIDGenerator(sequentialIDs("id"))}
	return NewInMemoryService(NewDefaultRulesEngine(), append(base, opts...)...)
}

func baptismPayload(first, last string) domain.Payload {
	return domain.Payload{
		Celebration: domain.Celebration{
			Date:             "2025-02-01",
			Place:            "Parroquia San Pedro",
			Minister:         "P. Andrés Villca",
			MinisterOfRecord: "P. Mario Condori",
		},
		Baptism: &domain.BaptismDetails{
			Person:     domain.Person{FirstName: first, LastName: last},
			BirthDate:  "2024-12-24",
			BirthPlace: "La Paz",
			FatherName: "José " + last,
			MotherName: "María Choque",
		},
	}
}

func confirmationPayload() domain.Payload {
	return domain.Payload{
		Celebration: domain.Celebration{Date: "2025-05-01", Minister: "Mons. Ruiz", MinisterOfRecord: "P. Mario Condori"},
		Confirmation: &domain.ConfirmationDetails{
			Person:     domain.Person{FirstName: "Lucía", LastName: "Flores"},
			FatherName: "Raúl Flores",
			MotherName: "Ana Vargas",
			Godparent:  "Teresa Vargas",
		},
	}
}

func marriagePayload() domain.Payload {
	return domain.Payload{
		Celebration: domain.Celebration{Date: "2025-06-14", Minister: "P. Andrés Villca", MinisterOfRecord: "P. Mario Condori"},
		Marriage: &domain.MarriageDetails{
			Groom:     domain.Person{FirstName: "Pedro", LastName: "Ruiz"},
			Bride:     domain.Person{FirstName: "Rosa", LastName: "Mamani"},
			Witnesses: []string{"Juan Pérez"},
		},
	}
}

func decreeRequest(number string, original *domain.Locator) DecreeRequest {
	return DecreeRequest{
		ParishID:           testParish,
		Sacrament:          domain.SacramentBaptism,
		DecreeNumber:       number,
		DecreeDate:         time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC),
		AnnulmentConceptID: "cor-nombre",
		Original:           original,
		NewEntry:           baptismPayload("Juan Carlos", "Mamani"),
		CreatedBy:          "secretaria",
	}
}

// seedRecord stores a seated ordinary entry directly through the store.
func seedRecord(t *testing.T, svc *Service, sacrament domain.SacramentType, loc domain.Locator, payload domain.Payload) domain.SacramentalRecord {
	t.Helper()
	var saved domain.SacramentalRecord
	_, err := svc.Store().RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		saved, err = tx.SaveRecord(domain.SacramentalRecord{
			ParishID:  testParish,
			Sacrament: sacrament,
			Locator:   loc,
			Status:    sacrament.SeatedStatus(),
			Payload:   payload,
		})
		return err
	})
	require.NoError(t, err)
	return saved
}

func supplementaryScope(sacrament domain.SacramentType) domain.LedgerScope {
	return domain.LedgerScope{ParishID: testParish, Sacrament: sacrament, Kind: domain.BookSupplementary}
}

func configureHead(t *testing.T, svc *Service, sacrament domain.SacramentType, book, folio, entry int) {
	t.Helper()
	_, err := svc.ConfigureLedger(context.Background(), domain.LedgerHead{
		Scope: supplementaryScope(sacrament),
		Book:  book,
		Folio: folio,
		Entry: entry,
	})
	require.NoError(t, err)
}
