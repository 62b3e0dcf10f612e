package core

import "parishregistry/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	SacramentType      = domain.SacramentType
	SacramentalRecord  = domain.SacramentalRecord
	DecreeRecord       = domain.DecreeRecord
	DecreeKind         = domain.DecreeKind
	Locator            = domain.Locator
	LedgerScope        = domain.LedgerScope
	LedgerHead         = domain.LedgerHead
	Payload            = domain.Payload
	FailureKind        = domain.FailureKind
)

const (
	EntityRecord  = domain.EntityRecord
	EntityDecree  = domain.EntityDecree
	EntityLedger  = domain.EntityLedger
	EntityConcept = domain.EntityConcept
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
