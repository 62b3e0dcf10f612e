package core

import (
	"strings"

	"parishregistry/pkg/domain"
)

// sacramentAdapter supplies the per-register parts of the decree workflow.
type sacramentAdapter struct {
	sacrament domain.SacramentType
	// missing lists required new-entry fields that are blank.
	missing func(domain.Payload) []string
	// targetName names the person (or couple) the decree is about.
	targetName func(domain.Payload) string
}

var sacramentAdapters = map[domain.SacramentType]sacramentAdapter{
	domain.SacramentBaptism: {
		sacrament: domain.SacramentBaptism,
		missing: func(p domain.Payload) []string {
			b := p.Baptism
			if b == nil {
				return []string{"baptism"}
			}
			return blankFields(
				field{"baptism.person.first_name", b.Person.FirstName},
				field{"baptism.person.last_name", b.Person.LastName},
				field{"baptism.birth_date", b.BirthDate},
				field{"baptism.birth_place", b.BirthPlace},
				field{"baptism.father_name", b.FatherName},
				field{"baptism.mother_name", b.MotherName},
			)
		},
		targetName: func(p domain.Payload) string {
			if p.Baptism == nil {
				return ""
			}
			return p.Baptism.Person.FullName()
		},
	},
	domain.SacramentConfirmation: {
		sacrament: domain.SacramentConfirmation,
		missing: func(p domain.Payload) []string {
			c := p.Confirmation
			if c == nil {
				return []string{"confirmation"}
			}
			return blankFields(
				field{"confirmation.person.first_name", c.Person.FirstName},
				field{"confirmation.person.last_name", c.Person.LastName},
				field{"confirmation.father_name", c.FatherName},
				field{"confirmation.mother_name", c.MotherName},
				field{"confirmation.godparent", c.Godparent},
			)
		},
		targetName: func(p domain.Payload) string {
			if p.Confirmation == nil {
				return ""
			}
			return p.Confirmation.Person.FullName()
		},
	},
	domain.SacramentMarriage: {
		sacrament: domain.SacramentMarriage,
		missing: func(p domain.Payload) []string {
			m := p.Marriage
			if m == nil {
				return []string{"marriage"}
			}
			out := blankFields(
				field{"marriage.groom.first_name", m.Groom.FirstName},
				field{"marriage.groom.last_name", m.Groom.LastName},
				field{"marriage.bride.first_name", m.Bride.FirstName},
				field{"marriage.bride.last_name", m.Bride.LastName},
			)
			witnesses := 0
			for _, w := range m.Witnesses {
				if strings.TrimSpace(w) != "" {
					witnesses++
				}
			}
			if witnesses == 0 {
				out = append(out, "marriage.witnesses")
			}
			return out
		},
		targetName: func(p domain.Payload) string {
			if p.Marriage == nil {
				return ""
			}
			groom, bride := p.Marriage.Groom.FullName(), p.Marriage.Bride.FullName()
			if groom == "" || bride == "" {
				return groom + bride
			}
			return groom + " y " + bride
		},
	},
}

func adapterFor(s domain.SacramentType) (sacramentAdapter, bool) {
	a, ok := sacramentAdapters[s]
	return a, ok
}

// requiredNewEntryFields returns the blank required fields of a new entry:
// the celebration fields shared by every register, then the register's own.
func (a sacramentAdapter) requiredNewEntryFields(p domain.Payload) []string {
	missing := blankFields(
		field{"celebration.date", p.Celebration.Date},
		field{"celebration.minister", p.Celebration.Minister},
		field{"celebration.minister_of_record", p.Celebration.MinisterOfRecord},
	)
	variant := a.missing(p)
	missing = append(missing, variant...)
	absent := len(variant) == 1 && variant[0] == string(a.sacrament)
	if !absent && !p.Matches(a.sacrament) {
		missing = append(missing, "payload")
	}
	return missing
}

type field struct {
	name  string
	value string
}

func blankFields(fields ...field) []string {
	var out []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			out = append(out, f.name)
		}
	}
	return out
}
