// Package marker classifies template rows and paragraphs into a closed set of
// marker kinds and tracks once-only markers for a single generation call.
package marker

import "errors"

// ErrDuplicateMarker is returned when a row marker family appears more than
// once in the same table.
var ErrDuplicateMarker = errors.New("duplicate marker")

// Kind is a marker kind.
type Kind int

const (
	None Kind = iota
	CompetenceRow
	ActivityRow
	SignatureBlock
	DeletionStart
	DeletionEnd
	CompetenceTable
	EvaluationTable
)

var kindNames = map[Kind]string{
	None:            "none",
	CompetenceRow:   "competence-row",
	ActivityRow:     "activity-row",
	SignatureBlock:  "signature-block",
	DeletionStart:   "deletion-start",
	DeletionEnd:     "deletion-end",
	CompetenceTable: "competence-table",
	EvaluationTable: "evaluation-table",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsRowFamily reports whether k is a row multiplication family.
func (k Kind) IsRowFamily() bool {
	return k == CompetenceRow || k == ActivityRow
}

// IsOnceOnly reports whether k may be acted on only once per document.
func (k Kind) IsOnceOnly() bool {
	return k == SignatureBlock || k == CompetenceTable || k == EvaluationTable
}
