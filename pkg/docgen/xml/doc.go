// Package xml provides a lossless, order-preserving XML tree for the parts of a
// DOCX package.
//
// DOCX files are ZIP archives of XML parts. Templates produced by Word carry a
// large amount of markup this module never interprets (section properties,
// revision ids, theme references). The tree keeps every element, attribute,
// namespace prefix and character run exactly as written so that a part can be
// parsed, edited and written back without losing formatting.
//
// # Structure Organization
//
//   - node.go: the generic Node type, deep cloning and child manipulation
//   - tree.go: parsing (prefix preserving) and deterministic serialization
//   - wordml.go: WordprocessingML views (body, paragraphs, runs, tables, rows, cells)
//   - build.go: builders for paragraphs, runs, tables and cells with explicit properties
//
// # Key Concepts
//
// Names are qualified with the prefix used in the source document ("w:p",
// "w:tbl"). Word always binds the WordprocessingML namespace to "w", and the
// helpers in wordml.go rely on that convention.
//
// Row cloning is a deep copy of the row node, so spans, borders and cell
// widths of a cloned row are identical to the original.
package xml
