// Package docgen fills DOCX templates with data.
//
// A template is an ordinary Word document containing tags:
//
//	{{ name }}                 substitute a value
//	{{ c.field }}              field access, also c["field"] and xs[0]
//	{% if cond %}...{% endif %} conditional, with elif/else
//	{% for x in xs %}...{% endfor %}
//	{%tr for x in xs %}        repeat table rows up to {%tr endfor %}
//	{%p if cond %}             select whole paragraphs up to {%p endif %}
//
// The {{for x in xs}} ... {{end}} spelling is accepted as well. Inside a loop
// the loop record exposes index (1-based), index0, first, last, length and
// revindex.
//
// Names missing from the data render as the empty string, except for the
// collection of a loop: iterating over an undefined name fails with an
// *UndefinedError. Values of type *Image are embedded as inline pictures.
//
// Basic usage:
//
//	tmpl, err := docgen.PrepareFile("letter.docx")
//	if err != nil {
//		return err
//	}
//	err = tmpl.RenderFile("out.docx", docgen.Data{"name": "Ana"})
package docgen
