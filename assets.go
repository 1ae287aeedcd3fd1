package mdexport

import (
	"github.com/alnah/go-mdexport/internal/assets"
)

// Built-in asset names.
const (
	StyleHTML        = assets.StyleHTML        // standalone HTML export
	StylePrint       = assets.StylePrint       // PDF export
	TemplateDocument = assets.TemplateDocument // shell around every rendered body
)

// AssetLoader supplies the stylesheets and the document shell by name,
// without extension. LoadStyle reports ErrStyleNotFound and LoadTemplate
// ErrTemplateNotFound for unknown names.
type AssetLoader interface {
	LoadStyle(name string) (string, error)
	LoadTemplate(name string) (string, error)
}

// NewAssetLoader layers basePath over the embedded assets: a file present
// under basePath wins, anything missing falls back. basePath may hold
// styles/html.css, styles/print.css and templates/document.html. An empty
// basePath serves the embedded assets alone.
//
// Returns ErrInvalidAssetPath if basePath is not a readable directory.
func NewAssetLoader(basePath string) (AssetLoader, error) {
	resolver, err := assets.NewAssetResolver(basePath)
	if err != nil {
		return nil, convertAssetError(err)
	}
	return publicAssets{resolver}, nil
}

// publicAssets translates internal asset errors into this package's
// sentinels.
type publicAssets struct {
	inner assets.AssetLoader
}

func (p publicAssets) LoadStyle(name string) (string, error) {
	css, err := p.inner.LoadStyle(name)
	return css, convertAssetError(err)
}

func (p publicAssets) LoadTemplate(name string) (string, error) {
	tmpl, err := p.inner.LoadTemplate(name)
	return tmpl, convertAssetError(err)
}

// exporterAssets are the stylesheets and shell an Exporter renders with,
// loaded once when the Exporter is built.
type exporterAssets struct {
	htmlCSS  string
	printCSS string
	shell    string
}

func loadExporterAssets(loader AssetLoader) (*exporterAssets, error) {
	a := &exporterAssets{}
	for _, item := range []struct {
		dst  *string
		load func(string) (string, error)
		name string
	}{
		{&a.htmlCSS, loader.LoadStyle, StyleHTML},
		{&a.printCSS, loader.LoadStyle, StylePrint},
		{&a.shell, loader.LoadTemplate, TemplateDocument},
	} {
		content, err := item.load(item.name)
		if err != nil {
			return nil, err
		}
		*item.dst = content
	}
	return a, nil
}
