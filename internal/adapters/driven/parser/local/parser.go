// Package local parses text-based documents in process. It is used when
// no document parsing service is configured and covers plain text,
// Markdown, HTML and DOCX. Scanned formats such as PDF need the service.
package local

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.DocumentParser = (*Parser)(nil)

// Element types, matching the ones the parsing service emits.
const (
	TypeTitle         = "Title"
	TypeSectionHeader = "Section-header"
	TypeText          = "Text"
	TypeListItem      = "List-item"
)

// format extracts elements from the raw bytes of one file type.
type format func(data []byte) []domain.ParsedElement

// Parser splits documents into title, heading, list and text elements.
type Parser struct {
	formats map[string]format
}

// NewParser creates a local parser.
func NewParser() *Parser {
	return &Parser{
		formats: map[string]format{
			".txt":      parsePlainText,
			".text":     parsePlainText,
			".md":       parseMarkdown,
			".markdown": parseMarkdown,
			".html":     parseHTML,
			".htm":      parseHTML,
			".docx":     parseDOCX,
		},
	}
}

// Supports reports whether filename has a format this parser handles.
func (p *Parser) Supports(filename string) bool {
	_, ok := p.formats[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Parse extracts the elements of data, choosing the format by extension.
// When the document has no title element one is derived from the filename.
func (p *Parser) Parse(ctx context.Context, filename string, data []byte) (*domain.ParsedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	parse, ok := p.formats[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s files need the document parsing service", domain.ErrParserUnavailable, ext)
	}

	elements := parse(data)
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: no text found in %s", domain.ErrInvalidInput, filename)
	}
	if elements[0].Type != TypeTitle {
		title := domain.ParsedElement{Type: TypeTitle, Text: titleFromFilename(filename)}
		elements = append([]domain.ParsedElement{title}, elements...)
	}

	for i := range elements {
		elements[i].ElementID = fmt.Sprintf("local-%d", i)
	}
	return &domain.ParsedDocument{Elements: elements}, nil
}

// titleFromFilename turns "grant_proposal-v2.docx" into "grant proposal v2".
func titleFromFilename(name string) string {
	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}

var blankLines = regexp.MustCompile(`\n\s*\n`)

// paragraphs splits text on blank lines, dropping empty blocks.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, block := range blankLines.Split(text, -1) {
		if block = strings.TrimSpace(block); block != "" {
			out = append(out, block)
		}
	}
	return out
}

func textElement(kind, text string) domain.ParsedElement {
	return domain.ParsedElement{Type: kind, Text: text}
}

func parsePlainText(data []byte) []domain.ParsedElement {
	var elements []domain.ParsedElement
	for _, p := range paragraphs(string(data)) {
		elements = append(elements, textElement(TypeText, p))
	}
	return elements
}
