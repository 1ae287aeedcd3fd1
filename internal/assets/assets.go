package assets

// Built-in asset names.
const (
	StyleHTML        = "html"
	StylePrint       = "print"
	TemplateDocument = "document"
)
