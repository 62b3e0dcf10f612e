package domain

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	require.False(t, result.HasBlocking())
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock, Message: "locator taken"}}})
	require.True(t, result.HasBlocking())

	err := RuleViolationError{Result: result}
	require.Contains(t, err.Error(), "transaction blocked by rules")
	require.Equal(t, "transaction blocked by rules", RuleViolationError{}.Error())
}

func TestResultMergeEmptyInput(t *testing.T) {
	original := Result{Violations: []Violation{{Rule: "existing", Severity: SeverityWarn}}}
	original.Merge(Result{})
	require.Len(t, original.Violations, 1)
	require.Equal(t, "existing", original.Violations[0].Rule)
}

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"warn"})
	engine.Register(staticRule{"log"})
	res, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	require.NoError(t, err)
	require.Len(t, res.Violations, 2)
	require.Equal(t, []string{"warn", "log"}, engine.Rules())
}

func TestRulesEngineEvaluateError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(errorRule{})
	_, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	require.Error(t, err)
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn}}}, nil
}

type errorRule struct{}

func (errorRule) Name() string { return "error" }

func (errorRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{}, fmt.Errorf("boom")
}

type emptyView struct{}

func (emptyView) FindRecord(string, SacramentType, string) (SacramentalRecord, bool) {
	return SacramentalRecord{}, false
}

func (emptyView) FindRecordByLocator(string, SacramentType, Locator) (SacramentalRecord, bool) {
	return SacramentalRecord{}, false
}
func (emptyView) ListRecords(string, SacramentType) []SacramentalRecord { return nil }
func (emptyView) ListAllRecords() []SacramentalRecord                   { return nil }
func (emptyView) FindDecree(string) (DecreeRecord, bool)                { return DecreeRecord{}, false }
func (emptyView) FindDecreeAny(string) (DecreeRecord, bool)             { return DecreeRecord{}, false }
func (emptyView) ListDecrees(string) []DecreeRecord                     { return nil }
func (emptyView) ListAllDecrees() []DecreeRecord                        { return nil }
func (emptyView) FindLedgerHead(LedgerScope) (LedgerHead, bool)         { return LedgerHead{}, false }
