package recval

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
)

// exportRow is the JSON projection of one result.
type exportRow struct {
	Valid    bool        `json:"valid"`
	Errors   []exportErr `json:"errors,omitempty"`
	Value    any         `json:"value,omitempty"`
	Original any         `json:"original,omitempty"`
}

type exportErr struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
}

// WriteJSON writes collected results to w as a JSON array of
// {valid, errors, value, original} rows.
func WriteJSON[T any](w io.Writer, results []Result[T]) error {
	rows := make([]exportRow, 0, len(results))
	for _, r := range results {
		row := exportRow{Valid: r.Valid(), Original: r.Original}
		if r.Valid() {
			row.Value = r.Value
		} else {
			for _, it := range r.IssuesOf() {
				row.Errors = append(row.Errors, exportErr{
					Path: it.Path, Code: it.Code, Message: it.Message, Rule: it.Rule,
				})
			}
		}
		rows = append(rows, row)
	}
	data, err := getJSONDriver().Marshal(rows)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteCSV writes collected results to w with one row per result. Map-valued
// instances are flattened into validated_<field> columns; other instance
// types render through their JSON form.
func WriteCSV[T any](w io.Writer, results []Result[T]) error {
	valueCols := map[string]struct{}{}
	flat := make([]map[string]any, len(results))
	for i, r := range results {
		if !r.Valid() {
			continue
		}
		m, ok := any(r.Value).(map[string]any)
		if !ok {
			m = structuredToMap(r.Value)
		}
		flat[i] = m
		for k := range m {
			valueCols[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(valueCols))
	for k := range valueCols {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	cw := csv.NewWriter(w)
	header := []string{"valid", "error_codes", "error_paths", "error_messages"}
	for _, c := range cols {
		header = append(header, "validated_"+c)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, r := range results {
		row := make([]string, 0, len(header))
		if r.Valid() {
			row = append(row, "yes", "", "", "")
		} else {
			var codes, paths, msgs string
			for j, it := range r.IssuesOf() {
				if j > 0 {
					codes += "; "
					paths += "; "
					msgs += "; "
				}
				codes += it.Code
				paths += it.Path
				msgs += it.Message
			}
			row = append(row, "no", codes, paths, msgs)
		}
		for _, c := range cols {
			if flat[i] == nil {
				row = append(row, "")
				continue
			}
			v, ok := flat[i][c]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, fmt.Sprint(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// structuredToMap renders a non-map instance through its JSON form so struct
// values export with their wire field names.
func structuredToMap(v any) map[string]any {
	data, err := getJSONDriver().Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := getJSONDriver().Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
