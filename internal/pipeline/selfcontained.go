package pipeline

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// UnavailableImageText is shown in place of an image that is not embedded.
const UnavailableImageText = "image unavailable"

// EnsureSelfContained replaces every <img> whose src is not a data: URI
// with an "image unavailable" marker, and strips srcset attributes, so the
// document never loads an external resource. It returns the rewritten
// document and the number of replaced images.
func EnsureSelfContained(htmlContent string) (string, int, error) {
	doc, isFragment, err := parseHTML(htmlContent)
	if err != nil {
		return "", 0, err
	}

	var external []*html.Node
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.DataAtom != atom.Img {
			return
		}
		removeAttr(n, "srcset")
		if !isDataURI(attr(n, "src")) {
			external = append(external, n)
		}
	})

	for _, img := range external {
		img.Parent.InsertBefore(unavailableMarker(attr(img, "alt")), img)
		img.Parent.RemoveChild(img)
	}

	out, err := renderHTML(doc, isFragment)
	if err != nil {
		return "", 0, err
	}
	return out, len(external), nil
}

// parseHTML parses full documents and fragments alike.
func parseHTML(content string) (*html.Node, bool, error) {
	trimmed := strings.ToLower(strings.TrimSpace(content))
	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		doc, err := html.Parse(strings.NewReader(content))
		return doc, false, err
	}

	context := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(content), context)
	if err != nil {
		return nil, true, err
	}
	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, true, nil
}

// renderHTML renders a document, or only the children of a fragment
// container.
func renderHTML(doc *html.Node, isFragment bool) (string, error) {
	var buf strings.Builder
	if isFragment {
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}
	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func isDataURI(src string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(src)), "data:")
}

func unavailableMarker(alt string) *html.Node {
	text := UnavailableImageText
	if alt != "" {
		text += ": " + alt
	}
	span := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Span,
		Data:     "span",
		Attr: []html.Attribute{
			{Key: "class", Val: "placeholder"},
			{Key: "role", Val: "note"},
		},
	}
	span.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return span
}
