package render

import "fmt"

// Branch is an else/elsif split point inside an if or unless block.
type Branch struct {
	Index int
	Kind  string
	Expr  string
}

// FindMatchingEnd finds the end matching the opening directive at start in a
// sequence of n items. detect reports the directive held by item i, if any.
// Else and elsif branches at the outer level are returned in order.
func FindMatchingEnd(n int, detect func(i int) (Directive, bool), start int) (int, []Branch, error) {
	depth := 1
	var branches []Branch
	for i := start + 1; i < n; i++ {
		d, ok := detect(i)
		if !ok {
			continue
		}
		switch d.Kind {
		case "for", "if", "unless":
			depth++
		case "elsif", "else":
			if depth == 1 {
				branches = append(branches, Branch{Index: i, Kind: d.Kind, Expr: d.Expr})
			}
		case "end":
			depth--
			if depth == 0 {
				return i, branches, nil
			}
		}
	}
	return -1, nil, fmt.Errorf("no matching end found for directive at %d", start)
}
