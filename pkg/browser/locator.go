package browser

import (
	"regexp"
	"strings"
)

// locator is a parsed locator: a CSS selector plus an optional text filter.
type locator struct {
	css  string
	text string
}

var hasTextRegex = regexp.MustCompile(`^(.*):has-text\((?:"([^"]*)"|'([^']*)')\)\s*$`)

// parseLocator understands plain CSS, a trailing :has-text("...") filter and
// the text=... shorthand.
func parseLocator(raw string) locator {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "text=") {
		return locator{css: "body *", text: strings.Trim(strings.TrimPrefix(raw, "text="), `"'`)}
	}
	if m := hasTextRegex.FindStringSubmatch(raw); m != nil {
		css := strings.TrimSpace(m[1])
		if css == "" {
			css = "body *"
		}
		text := m[2]
		if text == "" {
			text = m[3]
		}
		return locator{css: css, text: text}
	}
	return locator{css: raw}
}

// textPattern is the JS regex rod uses to filter candidates by their text.
func (l locator) textPattern() string {
	if l.css == "body *" {
		return `^\s*` + regexp.QuoteMeta(l.text) + `\s*$`
	}
	return regexp.QuoteMeta(l.text)
}

func (l locator) hasText() bool {
	return l.text != ""
}
