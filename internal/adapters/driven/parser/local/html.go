package local

import (
	"html"
	"regexp"
	"strings"

	"github.com/boovines/Granted/internal/core/domain"
)

var (
	htmlTitle    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlHeading  = regexp.MustCompile(`(?is)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	htmlListItem = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
	htmlBlock    = regexp.MustCompile(`(?i)</?(p|div|br|hr|tr|table|blockquote|pre|section|article|ul|ol)[^>]*/?>`)
	htmlTags     = regexp.MustCompile(`<[^>]+>`)
	htmlSpaces   = regexp.MustCompile(`[ \t]+`)
)

// htmlDropped lists elements removed with their content. Go regexps have no
// backreferences, so each tag gets its own pattern.
var htmlDropped = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`),
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
	regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`),
	regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
}

// Markers placed in front of blocks before the tags are stripped.
const (
	markHeading  = "\x00h "
	markListItem = "\x00li "
)

// parseHTML uses <title> as the title, headings as section headers and <li>
// entries as list items. Everything else becomes text, one element per block.
func parseHTML(data []byte) []domain.ParsedElement {
	content := string(data)

	var elements []domain.ParsedElement
	if m := htmlTitle.FindStringSubmatch(content); m != nil {
		if title := cleanHTMLText(m[1]); title != "" {
			elements = append(elements, textElement(TypeTitle, title))
		}
	}

	for _, re := range htmlDropped {
		content = re.ReplaceAllString(content, "")
	}
	content = htmlComments.ReplaceAllString(content, "")
	content = htmlHeading.ReplaceAllString(content, "\n\n"+markHeading+"$2\n\n")
	content = htmlListItem.ReplaceAllString(content, "\n\n"+markListItem+"$1\n\n")
	content = htmlBlock.ReplaceAllString(content, "\n\n")

	for _, block := range paragraphs(content) {
		switch {
		case strings.HasPrefix(block, markHeading):
			if text := cleanHTMLText(strings.TrimPrefix(block, markHeading)); text != "" {
				elements = append(elements, textElement(TypeSectionHeader, text))
			}
		case strings.HasPrefix(block, markListItem):
			if text := cleanHTMLText(strings.TrimPrefix(block, markListItem)); text != "" {
				elements = append(elements, textElement(TypeListItem, text))
			}
		default:
			if text := cleanHTMLText(block); text != "" {
				elements = append(elements, textElement(TypeText, text))
			}
		}
	}
	return elements
}

// cleanHTMLText strips remaining tags, decodes entities and collapses
// whitespace within each line.
func cleanHTMLText(s string) string {
	s = html.UnescapeString(htmlTags.ReplaceAllString(s, ""))
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(htmlSpaces.ReplaceAllString(line, " ")); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
