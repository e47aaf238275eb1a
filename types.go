package recval

// Policy dictates how the stream dispatcher surfaces invalid records.
type Policy int

const (
	// PolicyReturn yields every result, error or not.
	PolicyReturn Policy = iota
	// PolicyRaise stops the stream at the first invalid record; the stream's
	// Err() then carries that record's Issues. Successes before the first
	// error are still delivered.
	PolicyRaise
	// PolicySkip silently drops invalid records; only successes are yielded.
	PolicySkip
)

func (p Policy) String() string {
	switch p {
	case PolicyReturn:
		return "return"
	case PolicyRaise:
		return "raise"
	case PolicySkip:
		return "skip"
	default:
		return "unknown"
	}
}

// DecodeOpt bundles the options forwarded to the schema engine for one decode.
type DecodeOpt struct {
	// Strict disables implicit coercion: values must already carry the
	// declared type (any member, tried in declaration order, for unions).
	Strict bool
	// FromAttributes permits struct inputs, read via their exported
	// attributes. Without it a struct record is an invalid_type issue.
	FromAttributes bool
}

// Opt bundles per-call options for the validators. Pass it as the trailing
// variadic argument; when several are given the last one wins.
type Opt[T any] struct {
	// Policy selects the error handling strategy for stream dispatchers.
	// Single-item validators ignore it.
	Policy Policy

	// Strict and FromAttributes are forwarded to the engine via DecodeOpt.
	Strict         bool
	FromAttributes bool

	// Hooks, when set, wrap every item's validation. See Hooks.
	Hooks *Hooks[T]

	// Rules run against each validated instance; failures turn the result
	// into a rule_violation error subject to the policy.
	Rules []Rule[T]

	// Transform applies Pre to the raw item and Post to the validated
	// instance (successes only). Pre/Post failures terminate the stream.
	Transform *Transform[T]

	// Fields restricts validation to the named top-level fields of mapping
	// records; other keys are dropped before the engine sees the record.
	Fields []string

	// Project restricts map-valued outputs to the named fields. Ignored for
	// non-map instance types.
	Project []string

	// Progress, when set, is invoked after each emitted or dropped result
	// with the item's input index.
	Progress func(index int, r Result[T])

	// MaxInFlight bounds concurrent validations in ValidateConcurrently.
	// Zero selects a runtime-sized default; sequential dispatch ignores it.
	MaxInFlight int
}

func lastOpt[T any](opts []Opt[T]) Opt[T] {
	var o Opt[T]
	if len(opts) > 0 {
		o = opts[len(opts)-1]
	}
	return o
}

// check validates the option combination eagerly; a ConfigError surfaces
// before any item is processed.
func (o Opt[T]) check() error {
	if o.Policy < PolicyReturn || o.Policy > PolicySkip {
		return configErrorf("unknown policy %d", int(o.Policy))
	}
	if o.MaxInFlight < 0 {
		return configErrorf("MaxInFlight must be >= 0, got %d", o.MaxInFlight)
	}
	return nil
}

func (o Opt[T]) decodeOpt() DecodeOpt {
	return DecodeOpt{Strict: o.Strict, FromAttributes: o.FromAttributes}
}
