package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdexport <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  export     Export a markdown file to PDF, DOCX or HTML")
	fmt.Fprintln(w, "  serve      Serve exports over HTTP")
	fmt.Fprintln(w, "  doctor     Check the browser, fonts and configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'mdexport help <command>' for details on a specific command.")
}

// printEngineUsage prints the flags shared by export and serve.
func printEngineUsage(w io.Writer) {
	fmt.Fprintln(w, "Exporter:")
	fmt.Fprintln(w, "      --root <dir>          Permitted root for documents and images")
	fmt.Fprintln(w, "  -t, --timeout <d>         Export timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "  -w, --workers <n>         Browser instances (0 = auto)")
	fmt.Fprintln(w, "      --asset-path <dir>    Custom stylesheet and template directory")
	fmt.Fprintln(w, "      --highlight-style <s> Code highlighting style (default: github)")
	fmt.Fprintln(w, "      --dpi <n>             Diagram resolution (72-600, default 150)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Fonts (PDF):")
	fmt.Fprintln(w, "      --fallback-font <f>   TrueType font for uncovered characters (repeatable)")
	fmt.Fprintln(w, "      --require-coverage    Fail when a character has no embedded glyph")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Page:")
	fmt.Fprintln(w, "  -p, --page-size <s>       Page size: letter, a4, legal")
	fmt.Fprintln(w, "      --orientation <s>     Orientation: portrait, landscape")
	fmt.Fprintln(w, "      --margin <f>          PDF margin in inches (0.25-3.0)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show export states and timing")
}

// printExportUsage prints usage for the export command.
func printExportUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdexport export <file.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export a markdown file to a self-contained PDF, DOCX or HTML document.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -f, --format <s>          Format: pdf, docx, html (default: from --output, else pdf)")
	fmt.Fprintln(w, "  -o, --output <path>       Output file or directory (\"-\" = stdout)")
	fmt.Fprintln(w, "      --diagrams <file>     JSON file of captured diagrams (\"-\" = stdin)")
	fmt.Fprintln(w)
	printEngineUsage(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdexport serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve exports over HTTP:")
	fmt.Fprintln(w, "  POST /export/{format}     Body: {\"path\": \"...\", \"mermaidDiagrams\": [...]}")
	fmt.Fprintln(w, "  GET  /capabilities?path=  Whether a document can be exported")
	fmt.Fprintln(w, "  GET  /healthz             Liveness")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "      --addr <host:port>    Listen address (default 127.0.0.1:8080)")
	fmt.Fprintln(w, "      --rate-limit <n>      Requests per client per minute (0 = unlimited)")
	fmt.Fprintln(w)
	printEngineUsage(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdexport doctor [--json] [-c config]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check the browser, environment, fallback fonts and configuration.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "export":
		printExportUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: mdexport version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: mdexport help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
