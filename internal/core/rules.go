package core

// NewDefaultRulesEngine builds a rules engine with the register invariants.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewLocatorUniquenessRule())
	engine.Register(NewAnnulmentCompletenessRule())
	engine.Register(DecreeLinksRule())
	engine.Register(NewDecreeNumberUniqueRule())
	engine.Register(SupplementaryEntriesRule())
	return engine
}
