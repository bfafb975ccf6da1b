package marker

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Family is a row multiplication marker: a row holding Trigger is repeated
// once per element of Collection, with Fields rewritten to Item.field.
type Family struct {
	Kind       Kind
	Trigger    string
	Collection string
	Item       string
	Fields     []string
}

// LoopIndexTag is the placeholder rewritten to the 1-based loop counter.
const LoopIndexTag = "loop_index"

func tagPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\{\{\s*` + regexp.QuoteMeta(name) + `\s*\}\}`)
}

// Matches reports whether text holds the family trigger, in either the
// spaced or the tight spelling.
func (f Family) Matches(text string) bool {
	return tagPattern(f.Trigger).MatchString(text)
}

// Begin is the loop-start directive placed before the marker row.
func (f Family) Begin() string {
	return fmt.Sprintf("{%%tr for %s in %s %%}", f.Item, f.Collection)
}

// End is the loop-end directive placed after the marker row.
func (f Family) End() string {
	return "{%tr endfor %}"
}

// Rewrite prefixes the family fields with the loop item and points the
// loop_index placeholder at the loop counter.
func (f Family) Rewrite(text string) string {
	text = tagPattern(LoopIndexTag).ReplaceAllString(text, "{{ loop.index }}")
	for _, field := range f.Fields {
		text = tagPattern(field).ReplaceAllString(text, "{{ "+f.Item+"."+field+" }}")
	}
	return text
}

// Profile is the marker vocabulary of one template family.
type Profile struct {
	Name     string
	Families []Family
	// Signature is the text of the block that gets a page break before it.
	Signature string
	// GhostTags matches leftover item tags that no loop will ever resolve.
	GhostTags     *regexp.Regexp
	DeletionStart string
	DeletionEnd   []string
	// CompetenceTable and EvaluationTable are the cell sentinels that the
	// synthesizer replaces with generated tables.
	CompetenceTable string
	EvaluationTable string
}

// Profile names.
const (
	NameAnexo51 = "anexo51"
	NameAnexo54 = "anexo54"
)

// Anexo51 is the training plan profile: competence and activity rows are
// multiplied and the signature block starts on a new page.
func Anexo51() Profile {
	return Profile{
		Name: NameAnexo51,
		Families: []Family{
			{
				Kind:       CompetenceRow,
				Trigger:    "competencia",
				Collection: "competencias_list",
				Item:       "c",
				Fields:     []string{"competencia", "asignatura"},
			},
			{
				Kind:       ActivityRow,
				Trigger:    "actividad",
				Collection: "actividades_list",
				Item:       "a",
				Fields:     []string{"actividad", "horas", "evidencia", "lugar", "ponderacion"},
			},
		},
		Signature: "ELABORARON",
	}
}

// Anexo54 is the mentor evaluation profile: ghost tags and the stale block
// between the two sentinels are removed, and both sentinels are replaced by
// generated tables.
func Anexo54() Profile {
	return Profile{
		Name:            NameAnexo54,
		GhostTags:       regexp.MustCompile(`\{\{\s*(c|act|eval)\.[^}]*\}\}`),
		DeletionStart:   "[[TABLA_COMPETENCIAS]]",
		DeletionEnd:     []string{"[[TABLA_EVALUACION]]", "3.- EVALUACIÓN", "EVALUACION"},
		CompetenceTable: "[[TABLA_COMPETENCIAS]]",
		EvaluationTable: "[[TABLA_EVALUACION]]",
	}
}

// Lookup returns the profile with the given name. Unknown names yield an
// empty profile, under which documents are only rendered.
func Lookup(name string) Profile {
	switch strings.ToLower(strings.NewReplacer("_", "", ".", "", "-", "", " ", "").Replace(name)) {
	case NameAnexo51:
		return Anexo51()
	case NameAnexo54:
		return Anexo54()
	}
	return Profile{Name: name}
}

// ForTemplate picks the profile from a template file name.
func ForTemplate(path string) Profile {
	base := filepath.Base(path)
	switch {
	case strings.Contains(base, "Anexo_5.1"):
		return Anexo51()
	case strings.Contains(base, "Anexo_5.4"):
		return Anexo54()
	}
	return Profile{}
}

// Empty reports whether the profile defines no markers at all.
func (p Profile) Empty() bool {
	return len(p.Families) == 0 && p.Signature == "" && p.GhostTags == nil &&
		p.DeletionStart == "" && len(p.DeletionEnd) == 0 &&
		p.CompetenceTable == "" && p.EvaluationTable == ""
}

// Family returns the family of the given kind.
func (p Profile) Family(kind Kind) (Family, bool) {
	for _, f := range p.Families {
		if f.Kind == kind {
			return f, true
		}
	}
	return Family{}, false
}

// ClassifyRow returns the row kinds found in the flattened text of a row, in
// resolution order: at most one row family (the first that matches), then the
// signature block, then one deletion sentinel.
func (p Profile) ClassifyRow(text string) []Kind {
	var kinds []Kind
	for _, f := range p.Families {
		if f.Matches(text) {
			kinds = append(kinds, f.Kind)
			break
		}
	}
	if p.Signature != "" && strings.Contains(text, p.Signature) {
		kinds = append(kinds, SignatureBlock)
	}
	switch {
	case p.DeletionStart != "" && strings.Contains(text, p.DeletionStart):
		kinds = append(kinds, DeletionStart)
	case p.isDeletionEnd(text):
		kinds = append(kinds, DeletionEnd)
	}
	return kinds
}

func (p Profile) isDeletionEnd(text string) bool {
	folded := Fold(text)
	for _, end := range p.DeletionEnd {
		if strings.Contains(folded, Fold(end)) {
			return true
		}
	}
	return false
}

// ClassifyParagraph returns the cell-level synthesizer kinds in a paragraph.
func (p Profile) ClassifyParagraph(text string) []Kind {
	var kinds []Kind
	if p.CompetenceTable != "" && strings.Contains(text, p.CompetenceTable) {
		kinds = append(kinds, CompetenceTable)
	}
	if p.EvaluationTable != "" && strings.Contains(text, p.EvaluationTable) {
		kinds = append(kinds, EvaluationTable)
	}
	return kinds
}

// Sentinel returns the sentinel text of a cell-level kind.
func (p Profile) Sentinel(kind Kind) string {
	switch kind {
	case CompetenceTable:
		return p.CompetenceTable
	case EvaluationTable:
		return p.EvaluationTable
	}
	return ""
}
