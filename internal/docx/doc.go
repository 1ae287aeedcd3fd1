// Package docx writes a document model as a WordprocessingML package.
//
// The document part is built from encoding/xml structs, then a fixed list of
// post-processing passes adjusts the body before it is serialized. Images are
// embedded as package parts; formats Word cannot display are converted to
// PNG first. The zip container carries fixed timestamps so the same input
// always produces the same bytes.
package docx
