package recval

import (
	"context"
)

// ValidateOne validates a single record (mapping, struct, or serialized
// string) against the schema. Validation failures are carried inside the
// Result; the second return is reserved for configuration errors, hook
// failures, and transform failures (and, under PolicyRaise, the Issues of an
// invalid record).
func ValidateOne[T any](ctx context.Context, item any, s Schema[T], opts ...Opt[T]) (Result[T], error) {
	opt := lastOpt(opts)
	if err := opt.check(); err != nil {
		return Result[T]{}, err
	}
	if s == nil {
		return Result[T]{}, configErrorf("nil schema")
	}
	r, err := validateItem(ctx, item, s, opt)
	if err != nil {
		return Result[T]{}, err
	}
	if opt.Policy == PolicyRaise && !r.Valid() {
		return r, r.Err
	}
	return r, nil
}

// ValidateJSON validates one serialized record. The string is parsed first;
// parse failure yields a Result whose error describes the malformed input,
// attributed to no specific field.
func ValidateJSON[T any](ctx context.Context, data []byte, s Schema[T], opts ...Opt[T]) (Result[T], error) {
	return ValidateOne(ctx, data, s, opts...)
}

// validateItem runs the full per-item pipeline: before-hook, pre-transform,
// classification, engine decode, rules, projection, post-transform,
// after-hook, observers. The returned error is terminal (hook/transform
// failure); validation issues stay inside the Result.
func validateItem[T any](ctx context.Context, raw any, s Schema[T], opt Opt[T]) (Result[T], error) {
	item, err := opt.Hooks.runBefore(ctx, raw)
	if err != nil {
		return Result[T]{}, err
	}
	item, err = opt.Transform.pre(item)
	if err != nil {
		return Result[T]{}, err
	}

	r := decodeItem(ctx, raw, item, s, opt)

	if r.Valid() && opt.Transform != nil && opt.Transform.Post != nil {
		v, err := opt.Transform.post(r.Value)
		if err != nil {
			return Result[T]{}, err
		}
		r.Value = v
	}

	r, err = opt.Hooks.runAfter(ctx, r)
	if err != nil {
		return Result[T]{}, err
	}
	opt.Hooks.observe(r)
	return r, nil
}

// decodeItem classifies one item and drives the engine. raw is kept as the
// Result's Original regardless of hook or transform replacements.
func decodeItem[T any](ctx context.Context, raw, item any, s Schema[T], opt Opt[T]) Result[T] {
	var record map[string]any
	switch ClassifyRecord(item) {
	case KindSerialized:
		m, iss := decodeSerialized(item)
		if iss != nil {
			return failure[T](raw, iss)
		}
		record = m
	case KindMapping, KindStruct:
		m, err := mappingOf(item, opt.decodeOpt())
		if err != nil {
			return failure[T](raw, toIssues(err))
		}
		record = m
	default:
		return failure[T](raw, singleIssue(CodeInvalidType, "/",
			"record must be a mapping, struct, or serialized string"))
	}

	record = filterFields(record, opt.Fields)

	v, err := s.Decode(ctx, record, opt.decodeOpt())
	if err != nil {
		return failure[T](raw, toIssues(err))
	}

	if len(opt.Rules) > 0 {
		if iss := ruleIssues(ctx, opt.Rules, v); len(iss) > 0 {
			return failure[T](raw, iss)
		}
	}

	if len(opt.Project) > 0 {
		if m, ok := any(v).(map[string]any); ok {
			projected := filterFields(m, opt.Project)
			v, _ = any(projected).(T)
		}
	}
	return success(raw, v)
}

// toIssues normalizes an engine error into Issues.
func toIssues(err error) Issues {
	if err == nil {
		return nil
	}
	if ii, ok := AsIssues(err); ok {
		return ii
	}
	return AppendIssues(nil, Issue{Code: CodeConstraint, Message: err.Error(), Cause: err})
}
