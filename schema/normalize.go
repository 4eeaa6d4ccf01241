package schema

import "github.com/microcosm-cc/bluemonday"

// Keys holding human-readable text lifted into locale maps.
var localizedKeys = map[string]bool{
	"label":       true,
	"placeholder": true,
	"help":        true,
}

// NormalizeSchema lifts every plain-string label, placeholder and help text
// in a raw schema document into a locale map covering Locales, so all stored
// schemas expose a uniform bilingual shape. Values already in map form pass
// through unchanged.
func NormalizeSchema(doc map[string]any) map[string]any {
	out, _ := normalizeValue(doc).(map[string]any)
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			if localizedKeys[k] {
				out[k] = liftText(e)
				continue
			}
			out[k] = normalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}

func liftText(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	m := make(map[string]any, len(Locales))
	for _, loc := range Locales {
		m[loc] = s
	}
	return m
}

// richTextPolicy allows common formatting tags and strips everything
// executable, script tags included.
var richTextPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "b", "strong", "i", "em", "u", "s",
		"ul", "ol", "li", "blockquote", "pre", "code",
		"h1", "h2", "h3", "h4", "h5", "h6",
	)
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	return p
}()

// SanitizeRichText strips disallowed HTML from a richtext value before it is
// persisted.
func SanitizeRichText(html string) string {
	return richTextPolicy.Sanitize(html)
}
