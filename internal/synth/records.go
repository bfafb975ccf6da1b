package synth

import (
	"fmt"

	"github.com/sistemadual/docgen/pkg/docgen"
)

// Record is one element of a list-of-records context value.
type Record map[string]any

// Text returns the string form of a field; missing fields are empty.
func (r Record) Text(key string) string {
	return docgen.FormatValue(r[key])
}

// List returns a nested list of records.
func (r Record) List(key string) ([]Record, error) {
	list, err := Records(r[key])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return list, nil
}

// Records converts a context value into a list of records. Nil yields an
// empty list.
func Records(v any) ([]Record, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []Record:
		return list, nil
	case []map[string]any:
		out := make([]Record, len(list))
		for i, m := range list {
			out[i] = m
		}
		return out, nil
	case []docgen.Data:
		out := make([]Record, len(list))
		for i, m := range list {
			out[i] = Record(m)
		}
		return out, nil
	case []any:
		out := make([]Record, 0, len(list))
		for i, item := range list {
			rec, ok := record(item)
			if !ok {
				return nil, fmt.Errorf("element %d: expected a record, got %T", i, item)
			}
			out = append(out, rec)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list of records, got %T", v)
}

func record(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]any:
		return m, true
	case docgen.Data:
		return Record(m), true
	case nil:
		return Record{}, true
	}
	return nil, false
}
