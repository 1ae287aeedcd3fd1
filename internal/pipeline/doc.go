// Package pipeline turns a document model into HTML.
//
// Stages:
//   - Markdown preprocessing (line normalization, block spacing)
//   - Body rendering from the block model, with embedded images and
//     chroma-highlighted code
//   - Document shell and CSS injection
//   - Self-containment check that no image loads from outside the document
//
// The standard profile produces the standalone HTML export. The print
// profile produces the page that headless Chrome prints to PDF; page layout
// and fonts are the concern of the root package.
package pipeline
