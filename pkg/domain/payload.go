package domain

// Payload carries the sacrament-specific content of an entry. The core treats
// it as opaque apart from required-field presence on the new-entry step.
// Exactly one of Baptism, Confirmation or Marriage is set, matching the
// record's sacrament type.
type Payload struct {
	Celebration  Celebration          `json:"celebration" yaml:"celebration"`
	Baptism      *BaptismDetails      `json:"baptism,omitempty" yaml:"baptism,omitempty"`
	Confirmation *ConfirmationDetails `json:"confirmation,omitempty" yaml:"confirmation,omitempty"`
	Marriage     *MarriageDetails     `json:"marriage,omitempty" yaml:"marriage,omitempty"`
}

// Celebration holds the fields every sacrament records.
type Celebration struct {
	Date             string `json:"date" yaml:"date"`
	Place            string `json:"place,omitempty" yaml:"place,omitempty"`
	Minister         string `json:"minister" yaml:"minister"`
	MinisterOfRecord string `json:"minister_of_record" yaml:"minister_of_record"`
	Notes            string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Person is a named participant.
type Person struct {
	FirstName string `json:"first_name" yaml:"first_name"`
	LastName  string `json:"last_name" yaml:"last_name"`
}

// FullName joins first and last name.
func (p Person) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// BaptismDetails is the baptism register payload.
type BaptismDetails struct {
	Person     Person   `json:"person" yaml:"person"`
	Sex        string   `json:"sex,omitempty" yaml:"sex,omitempty"`
	BirthDate  string   `json:"birth_date" yaml:"birth_date"`
	BirthPlace string   `json:"birth_place" yaml:"birth_place"`
	FatherName string   `json:"father_name" yaml:"father_name"`
	MotherName string   `json:"mother_name" yaml:"mother_name"`
	Godparents []string `json:"godparents,omitempty" yaml:"godparents,omitempty"`
}

// ConfirmationDetails is the confirmation register payload.
type ConfirmationDetails struct {
	Person     Person `json:"person" yaml:"person"`
	BirthDate  string `json:"birth_date,omitempty" yaml:"birth_date,omitempty"`
	FatherName string `json:"father_name" yaml:"father_name"`
	MotherName string `json:"mother_name" yaml:"mother_name"`
	Godparent  string `json:"godparent" yaml:"godparent"`
}

// MarriageDetails is the marriage register payload.
type MarriageDetails struct {
	Groom     Person   `json:"groom" yaml:"groom"`
	Bride     Person   `json:"bride" yaml:"bride"`
	Witnesses []string `json:"witnesses" yaml:"witnesses"`
}

// Clone returns a deep copy of the payload.
func (p Payload) Clone() Payload {
	cp := p
	if p.Baptism != nil {
		b := *p.Baptism
		b.Godparents = append([]string(nil), p.Baptism.Godparents...)
		cp.Baptism = &b
	}
	if p.Confirmation != nil {
		c := *p.Confirmation
		cp.Confirmation = &c
	}
	if p.Marriage != nil {
		m := *p.Marriage
		m.Witnesses = append([]string(nil), p.Marriage.Witnesses...)
		cp.Marriage = &m
	}
	return cp
}

// Matches reports whether the payload variant agrees with the sacrament type.
func (p Payload) Matches(s SacramentType) bool {
	set := 0
	if p.Baptism != nil {
		set++
	}
	if p.Confirmation != nil {
		set++
	}
	if p.Marriage != nil {
		set++
	}
	if set != 1 {
		return false
	}
	switch s {
	case SacramentBaptism:
		return p.Baptism != nil
	case SacramentConfirmation:
		return p.Confirmation != nil
	case SacramentMarriage:
		return p.Marriage != nil
	}
	return false
}
