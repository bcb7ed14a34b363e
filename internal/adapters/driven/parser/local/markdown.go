package local

import (
	"regexp"
	"strings"

	"github.com/boovines/Granted/internal/core/domain"
)

var (
	mdCodeBlock    = regexp.MustCompile("(?s)```.*?```")
	mdInlineCode   = regexp.MustCompile("`([^`]+)`")
	mdImage        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading      = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	mdBlockquote   = regexp.MustCompile(`(?m)^>\s?`)
	mdRule         = regexp.MustCompile(`^[-*_]{3,}$`)
	mdListMarker   = regexp.MustCompile(`^\s*(?:[-*+]|\d+\.)\s+`)
	mdEmphasis     = regexp.MustCompile(`(\*\*|__|\*|_)([^*_]+)(\*\*|__|\*|_)`)
	mdStrikethough = regexp.MustCompile(`~~([^~]+)~~`)
)

// parseMarkdown emits the first H1 as the title, other headings as section
// headers, list blocks as one list item per entry, and the rest as text.
func parseMarkdown(data []byte) []domain.ParsedElement {
	content := mdCodeBlock.ReplaceAllString(string(data), "")

	var (
		elements []domain.ParsedElement
		titled   bool
	)
	for _, block := range paragraphs(content) {
		lines := strings.Split(block, "\n")

		if m := mdHeading.FindStringSubmatch(strings.TrimSpace(lines[0])); m != nil {
			kind := TypeSectionHeader
			if len(m[1]) == 1 && !titled && len(elements) == 0 {
				kind = TypeTitle
				titled = true
			}
			elements = append(elements, textElement(kind, stripInline(m[2])))
			lines = lines[1:]
			if len(lines) == 0 {
				continue
			}
		}

		if mdRule.MatchString(strings.TrimSpace(lines[0])) && len(lines) == 1 {
			continue
		}

		if isList(lines) {
			for _, line := range lines {
				item := stripInline(mdListMarker.ReplaceAllString(line, ""))
				if item != "" {
					elements = append(elements, textElement(TypeListItem, item))
				}
			}
			continue
		}

		text := mdBlockquote.ReplaceAllString(strings.Join(lines, "\n"), "")
		if text = stripInline(text); text != "" {
			elements = append(elements, textElement(TypeText, text))
		}
	}
	return elements
}

func isList(lines []string) bool {
	for _, line := range lines {
		if !mdListMarker.MatchString(line) {
			return false
		}
	}
	return true
}

// stripInline removes inline Markdown formatting, keeping the visible text.
func stripInline(s string) string {
	s = mdImage.ReplaceAllString(s, "")
	s = mdLink.ReplaceAllString(s, "$1")
	s = mdInlineCode.ReplaceAllString(s, "$1")
	s = mdStrikethough.ReplaceAllString(s, "$1")
	s = mdEmphasis.ReplaceAllString(s, "$2")
	return strings.TrimSpace(s)
}
