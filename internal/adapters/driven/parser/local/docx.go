package local

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/boovines/Granted/internal/core/domain"
)

// wordDocument is the subset of word/document.xml read for text.
type wordDocument struct {
	Body struct {
		Paragraphs []wordParagraph `xml:"p"`
	} `xml:"body"`
}

type wordParagraph struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
		Numbering *struct{} `xml:"numPr"`
	} `xml:"pPr"`
	Runs []struct {
		Text []string `xml:"t"`
	} `xml:"r"`
}

// coreProperties is the subset of docProps/core.xml read for the title.
type coreProperties struct {
	Title string `xml:"title"`
}

// parseDOCX reads paragraphs from a Word document. Paragraph styles decide
// the element type: Title, HeadingN and numbered or List paragraphs.
func parseDOCX(data []byte) []domain.ParsedElement {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil
	}

	var elements []domain.ParsedElement
	var core coreProperties
	if raw := readZipFile(reader, "docProps/core.xml"); raw != nil {
		if xml.Unmarshal(raw, &core) == nil && strings.TrimSpace(core.Title) != "" {
			elements = append(elements, textElement(TypeTitle, strings.TrimSpace(core.Title)))
		}
	}

	raw := readZipFile(reader, "word/document.xml")
	if raw == nil {
		return elements
	}
	var doc wordDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return elements
	}

	var body []string
	flush := func() {
		if len(body) > 0 {
			elements = append(elements, textElement(TypeText, strings.Join(body, "\n")))
			body = nil
		}
	}

	for _, para := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, r := range para.Runs {
			for _, t := range r.Text {
				sb.WriteString(t)
			}
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			flush()
			continue
		}

		style := strings.ToLower(para.Props.Style.Val)
		switch {
		case style == "title":
			flush()
			if len(elements) == 0 {
				elements = append(elements, textElement(TypeTitle, text))
			} else {
				elements = append(elements, textElement(TypeSectionHeader, text))
			}
		case strings.HasPrefix(style, "heading"):
			flush()
			elements = append(elements, textElement(TypeSectionHeader, text))
		case para.Props.Numbering != nil || strings.HasPrefix(style, "list"):
			flush()
			elements = append(elements, textElement(TypeListItem, text))
		default:
			body = append(body, text)
		}
	}
	flush()
	return elements
}

func readZipFile(reader *zip.Reader, name string) []byte {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return nil
		}
		return content
	}
	return nil
}
