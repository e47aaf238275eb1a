// Package recval validates iterables of records against a schema and emits a
// uniform result stream.
//
// - Accepts maps, struct instances, or serialized JSON strings, mixed freely.
// - Field-level checking is delegated to an external JSON Schema engine; this
//   package only orchestrates per-record dispatch and error handling.
// - A stable error model via Issues (JSON Pointer, code, message).
// - Error policies: PolicyReturn (emit everything), PolicyRaise (stop at the
//   first invalid record), PolicySkip (drop invalid records silently).
// - Sequential and order-preserving concurrent dispatchers over lazy inputs.
//
// Design policy:
// - Keep only public APIs in the root package; engine adapters live under
//   engine/, the schema document model under schemadoc/, coercion under coerce/.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	s, err := jsonschema.Compile(doc) // engine/jsonschema
//	st := recval.Validate(ctx, recval.FromSlice(records), s)
//	for st.Next() {
//	    r := st.Result()
//	    ...
//	}
//	if err := st.Err(); err != nil { ... }
package recval
