package scraper

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// StripTimeout bounds a single pass of the script/style pattern
const StripTimeout = 2 * time.Second

var (
	// script and style elements, matched by their own closing tag
	scriptStylePattern = func() *regexp2.Regexp {
		re := regexp2.MustCompile(`<(script|style|noscript)\b[^>]*>[\s\S]*?</\1\s*>`, regexp2.IgnoreCase)
		re.MatchTimeout = StripTimeout
		return re
	}()

	commentPattern = regexp.MustCompile(`(?s)<!--.*?-->`)
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
)

// StripHTML removes script, style and comment blocks and all remaining tags,
// decodes entities and collapses whitespace into single spaces.
func StripHTML(markup string) (string, error) {
	withoutBlocks, err := scriptStylePattern.Replace(markup, " ", -1, -1)
	if err != nil {
		return "", fmt.Errorf("failed to strip script and style blocks: %w", err)
	}

	text := commentPattern.ReplaceAllString(withoutBlocks, " ")
	text = tagPattern.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " "), nil
}
