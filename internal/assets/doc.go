// Package assets provides the stylesheets and the document shell template
// used by the HTML and PDF renderers.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - built-in assets compiled in with go:embed
//	    ├── FilesystemLoader  - overrides read from a directory on disk
//	    └── AssetResolver     - custom first, embedded as fallback
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   ├── html.css        # standalone HTML profile
//	│   └── print.css       # compact PDF profile
//	└── templates/
//	    └── document.html   # html/template shell shared by both profiles
//
// # Security
//
// Asset names may not contain path separators or dots. FilesystemLoader
// resolves symlinks and verifies every path stays within its base directory.
package assets
