package recval

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

// JSONDriver converts serialized records into mappings via a pluggable SPI.
// The default implementation is based on goccy/go-json and may be swapped with
// SetJSONDriver. Numbers must be decoded as json.Number so strict mode can
// distinguish integers from floats.
type JSONDriver interface {
	Unmarshal(data []byte, v any) error
	Marshal(v any) ([]byte, error)
	Name() string
}

var (
	jsonDriverMu      sync.RWMutex
	currentJSONDriver JSONDriver = gojsonDriver{}
)

// SetJSONDriver replaces the global JSON driver; nil values are ignored.
func SetJSONDriver(d JSONDriver) {
	if d == nil {
		return
	}
	jsonDriverMu.Lock()
	currentJSONDriver = d
	jsonDriverMu.Unlock()
}

// UseDefaultJSONDriver restores the goccy/go-json-backed driver.
func UseDefaultJSONDriver() {
	jsonDriverMu.Lock()
	currentJSONDriver = gojsonDriver{}
	jsonDriverMu.Unlock()
}

// CurrentJSONDriver returns the driver in effect, for adapters that marshal
// through the same codec the stream uses.
func CurrentJSONDriver() JSONDriver { return getJSONDriver() }

func getJSONDriver() JSONDriver {
	jsonDriverMu.RLock()
	d := currentJSONDriver
	jsonDriverMu.RUnlock()
	return d
}

type gojsonDriver struct{}

func (gojsonDriver) Unmarshal(data []byte, v any) error {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	// Trailing garbage after the document is a parse error too.
	if err := dec.Decode(new(any)); err != io.EOF {
		return errTrailingData
	}
	return nil
}

func (gojsonDriver) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }
func (gojsonDriver) Name() string                  { return "goccy/go-json" }

var errTrailingData = &trailingDataError{}

type trailingDataError struct{}

func (*trailingDataError) Error() string { return "unexpected data after top-level JSON value" }

// decodeSerialized parses a serialized record into a mapping. Parse failure is
// reported as a whole-item parse_error issue, never attributed to a field.
func decodeSerialized(item any) (map[string]any, Issues) {
	var data []byte
	switch v := item.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return nil, singleIssue(CodeParseError, "", "not a serialized record")
	}
	var decoded any
	if err := getJSONDriver().Unmarshal(data, &decoded); err != nil {
		return nil, AppendIssues(nil, Issue{
			Code:    CodeParseError,
			Path:    "",
			Message: "malformed input: " + err.Error(),
			Cause:   err,
		})
	}
	out, ok := decoded.(map[string]any)
	if !ok {
		return nil, singleIssue(CodeInvalidType, "/", "serialized record must encode an object")
	}
	return out, nil
}
