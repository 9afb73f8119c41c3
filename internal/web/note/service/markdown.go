package service

import (
	stdhtml "html"
	"io"
	"net/url"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/html"
)

// Render parses markdown to html.
//
// raw html in md is dropped, links and images only keep http(s), mailto
// and relative destinations, so the output is safe to embed into the page.
func Render(md string) string {
	htmlFlags := html.CommonFlags | html.HrefTargetBlank | html.SkipHTML |
		html.Safelink | html.NoopenerLinks | html.NoreferrerLinks
	opts := html.RendererOptions{
		Flags:          htmlFlags,
		RenderNodeHook: skipUnsafeImage,
	}
	renderer := html.NewRenderer(opts)
	renderer.IsSafeURLOverride = isSafeURL
	return string(markdown.ToHTML([]byte(md), nil, renderer))
}

// skipUnsafeImage drops images whose source is not a safe url
func skipUnsafeImage(_ io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
	img, ok := node.(*ast.Image)
	if !ok || isSafeURL(img.Destination) {
		return ast.GoToNext, false
	}

	if entering {
		return ast.SkipChildren, true
	}
	return ast.GoToNext, true
}

// isSafeURL checks dest the way a browser would read it from the attribute
func isSafeURL(dest []byte) bool {
	raw := strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, stdhtml.UnescapeString(string(dest)))

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return true
	default:
		return false
	}
}
