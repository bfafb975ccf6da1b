// Package render provides pure helpers for the template render pass.
//
// The helpers work directly on xml.Node trees and never call back into the
// docgen package:
//
//   - runs.go: run merging so that tags split across runs by Word become whole again
//   - directive.go: detection of block level directives in paragraphs and table rows
//   - match.go: locating the matching end (and else branches) of a block directive
//
// Directive syntax accepted here:
//
//	{{for x in xs}} {{if cond}} {{elsif cond}} {{else}} {{unless cond}} {{end}}
//	{% for x in xs %} {% if cond %} {% elif cond %} {% else %} {% endfor %} {% endif %}
//	{%tr for x in xs %} ... {%tr endfor %}   row scoped
//	{%p if cond %} ... {%p endif %}          paragraph scoped
package render
