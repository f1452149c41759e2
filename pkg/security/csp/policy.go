// Package csp builds Content-Security-Policy header values. The API
// serves JSON almost everywhere, so the default posture is StrictPolicy;
// Swagger UI is the one HTML surface and gets its own allowances.
package csp

import (
	"fmt"
	"strings"
)

// CSPBuilder accumulates directives fluently and renders the header
// value. Not safe for concurrent mutation; build policies at startup.
type CSPBuilder struct {
	directives map[string][]string
	reportOnly bool
}

// NewCSPBuilder returns an empty builder.
func NewCSPBuilder() *CSPBuilder {
	return &CSPBuilder{directives: make(map[string][]string)}
}

func (b *CSPBuilder) set(directive string, sources []string) *CSPBuilder {
	b.directives[directive] = sources
	return b
}

// DefaultSrc sets default-src, the fallback for fetch directives not set
// explicitly.
func (b *CSPBuilder) DefaultSrc(sources ...string) *CSPBuilder { return b.set("default-src", sources) }

// ScriptSrc sets script-src.
func (b *CSPBuilder) ScriptSrc(sources ...string) *CSPBuilder { return b.set("script-src", sources) }

// StyleSrc sets style-src.
func (b *CSPBuilder) StyleSrc(sources ...string) *CSPBuilder { return b.set("style-src", sources) }

// ImgSrc sets img-src.
func (b *CSPBuilder) ImgSrc(sources ...string) *CSPBuilder { return b.set("img-src", sources) }

// FontSrc sets font-src.
func (b *CSPBuilder) FontSrc(sources ...string) *CSPBuilder { return b.set("font-src", sources) }

// ConnectSrc sets connect-src (fetch, XHR, WebSocket, EventSource).
func (b *CSPBuilder) ConnectSrc(sources ...string) *CSPBuilder { return b.set("connect-src", sources) }

// FrameAncestors sets frame-ancestors; "'none'" blocks all embedding.
func (b *CSPBuilder) FrameAncestors(sources ...string) *CSPBuilder {
	return b.set("frame-ancestors", sources)
}

// FormAction sets form-action.
func (b *CSPBuilder) FormAction(sources ...string) *CSPBuilder { return b.set("form-action", sources) }

// BaseUri sets base-uri.
func (b *CSPBuilder) BaseUri(sources ...string) *CSPBuilder { return b.set("base-uri", sources) }

// ObjectSrc sets object-src.
func (b *CSPBuilder) ObjectSrc(sources ...string) *CSPBuilder { return b.set("object-src", sources) }

// ReportUri sets report-uri. Deprecated in CSP3 but still the widely
// supported reporting mechanism.
func (b *CSPBuilder) ReportUri(uri string) *CSPBuilder { return b.set("report-uri", []string{uri}) }

// ReportOnly switches the policy to report-only mode, which changes the
// header name Build's caller should use.
func (b *CSPBuilder) ReportOnly(enabled bool) *CSPBuilder {
	b.reportOnly = enabled
	return b
}

// directiveOrder fixes the rendering order so the header is stable and
// diffable across builds.
var directiveOrder = []string{
	"default-src", "script-src", "style-src", "img-src", "font-src",
	"connect-src", "frame-ancestors", "form-action", "base-uri",
	"object-src", "report-uri",
}

// Build renders the policy string.
func (b *CSPBuilder) Build() string {
	var parts []string
	for _, directive := range directiveOrder {
		if sources := b.directives[directive]; len(sources) > 0 {
			parts = append(parts, fmt.Sprintf("%s %s", directive, strings.Join(sources, " ")))
		}
	}
	return strings.Join(parts, "; ")
}

// HeaderName returns Content-Security-Policy, or its -Report-Only
// variant in report-only mode.
func (b *CSPBuilder) HeaderName() string {
	if b.reportOnly {
		return "Content-Security-Policy-Report-Only"
	}
	return "Content-Security-Policy"
}

// SwaggerUIPolicy allows what Swagger UI needs: inline scripts/styles,
// the jsdelivr CDN, data: images, and blob: spec loading.
func SwaggerUIPolicy() *CSPBuilder {
	return NewCSPBuilder().
		DefaultSrc("'self'").
		ScriptSrc("'self'", "'unsafe-inline'", "https://cdn.jsdelivr.net").
		StyleSrc("'self'", "'unsafe-inline'", "https://cdn.jsdelivr.net").
		ImgSrc("'self'", "data:", "https:").
		FontSrc("'self'", "data:").
		ConnectSrc("'self'", "blob:").
		FrameAncestors("'none'").
		BaseUri("'self'").
		FormAction("'self'").
		ObjectSrc("'none'")
}

// StrictPolicy is the JSON-endpoint default: nothing loads, nothing
// frames it.
func StrictPolicy() *CSPBuilder {
	return NewCSPBuilder().
		DefaultSrc("'none'").
		ConnectSrc("'self'").
		FrameAncestors("'none'").
		BaseUri("'self'").
		FormAction("'self'")
}

// RelaxedPolicy is for local development only.
func RelaxedPolicy() *CSPBuilder {
	return NewCSPBuilder().
		DefaultSrc("'self'").
		ScriptSrc("'self'", "'unsafe-inline'", "'unsafe-eval'", "https:").
		StyleSrc("'self'", "'unsafe-inline'", "https:").
		ImgSrc("'self'", "data:", "https:").
		FontSrc("'self'", "data:", "https:").
		ConnectSrc("'self'", "https:").
		FrameAncestors("'self'").
		BaseUri("'self'").
		FormAction("'self'")
}
