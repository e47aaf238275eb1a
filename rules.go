package recval

import (
	"context"
	"sort"
)

// Rule is a cross-field predicate over one validated instance. Rules run after
// the engine, never see the raw record, and must not mutate the instance.
type Rule[T any] struct {
	// Name identifies the rule in reports and issues.
	Name string
	// Check returns nil when the instance passes. A non-nil error is the
	// failure detail; returning Issues keeps field attribution.
	Check func(ctx context.Context, v T) error
	// Priority orders execution; lower runs first, ties keep registration
	// order.
	Priority int
}

// RuleResult reports one rule's outcome. This is a report, not a gate: every
// rule always runs regardless of earlier failures.
type RuleResult struct {
	Rule   string
	Passed bool
	Detail string
}

// ApplyRules evaluates every rule against the validated instance in priority
// then registration order.
func ApplyRules[T any](ctx context.Context, rules []Rule[T], v T) []RuleResult {
	ordered := orderRules(rules)
	out := make([]RuleResult, 0, len(ordered))
	for _, r := range ordered {
		res := RuleResult{Rule: r.Name, Passed: true}
		if r.Check != nil {
			if err := r.Check(ctx, v); err != nil {
				res.Passed = false
				res.Detail = err.Error()
			}
		}
		out = append(out, res)
	}
	return out
}

// ruleIssues folds rule failures into Issues for the per-item pipeline.
func ruleIssues[T any](ctx context.Context, rules []Rule[T], v T) Issues {
	var iss Issues
	for _, r := range orderRules(rules) {
		if r.Check == nil {
			continue
		}
		err := r.Check(ctx, v)
		if err == nil {
			continue
		}
		if sub, ok := AsIssues(err); ok {
			for _, it := range sub {
				it.Rule = r.Name
				if it.Code == "" {
					it.Code = CodeRuleViolation
				}
				iss = AppendIssues(iss, it)
			}
			continue
		}
		iss = AppendIssues(iss, Issue{
			Path:    "/",
			Code:    CodeRuleViolation,
			Message: err.Error(),
			Cause:   err,
			Rule:    r.Name,
		})
	}
	return iss
}

func orderRules[T any](rules []Rule[T]) []Rule[T] {
	if len(rules) < 2 {
		return rules
	}
	ordered := make([]Rule[T], len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })
	return ordered
}
