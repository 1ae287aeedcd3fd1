// Package mdexport exports Markdown documents to PDF, DOCX and standalone
// HTML. Every output is self-contained: local images and externally
// captured diagrams are embedded, never linked.
//
// # Quick Start
//
// Create an exporter, export a file, and close when done:
//
//	exp, err := mdexport.NewExporter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exp.Close()
//
//	result, err := exp.Export(ctx, mdexport.Request{
//	    Path:   "notes/report.md",
//	    Format: mdexport.FormatDOCX,
//	})
//	if err != nil {
//	    log.Fatalf("%s: %v", mdexport.KindOf(err), err)
//	}
//	os.WriteFile(result.Filename, result.Data, 0644)
//
// # Export States
//
// Each export moves through fixed states:
//
//  1. Received
//  2. Resolving: the request is validated, the document is read and its
//     local images are loaded in parallel
//  3. Building: the document model is built and captured diagrams are
//     bound to the ```mermaid fences they replace
//  4. Rendering: the model is encoded as HTML, DOCX (direct OOXML) or PDF
//     (headless Chrome via go-rod)
//  5. Succeeded or Failed
//
// Use WithStateObserver to follow transitions.
//
// # Diagrams
//
// Diagrams are rendered by the host application and passed in
// Request.Diagrams. HTML prefers their SVG form; PDF and DOCX prefer PNG
// and rasterize SVG when no PNG is supplied. A fence without a usable
// capture is replaced by a "diagram unavailable" placeholder.
//
// # Errors
//
// Failures are returned as *Error with a Kind: InvalidRequest,
// SourceNotFound, PermissionDenied or RenderFailure. Missing or
// undecodable images do not fail an export; they are listed in
// Result.Warnings.
//
// # Parallel Processing
//
// An Exporter prints one PDF at a time. For batch work, use ExporterPool
// to manage multiple browser instances:
//
//	pool, err := mdexport.NewExporterPool(mdexport.ResolvePoolSize(0))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
//
//	result, err := pool.Export(ctx, req)
package mdexport
