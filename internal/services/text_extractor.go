package services

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"alfredoptarigan/resume-matcher/internal/models"
)

// TextExtractor turns uploaded document bytes into plain text. It never
// returns an error: anything unreadable yields "".
type TextExtractor interface {
	Extract(data []byte, format models.DocumentFormat) string
	ExtractFile(path string) string
}

type textExtractor struct {
	log *slog.Logger
}

func NewTextExtractor(log *slog.Logger) TextExtractor {
	return &textExtractor{log: log.With("component", "text_extractor")}
}

var errInvalidEncoding = errors.New("text is not valid UTF-8")

var docconvMimeTypes = map[models.DocumentFormat]string{
	models.FormatDOC: "application/msword",
	models.FormatODT: "application/vnd.oasis.opendocument.text",
	models.FormatRTF: "application/rtf",
}

// Extract implements TextExtractor.
func (t *textExtractor) Extract(data []byte, format models.DocumentFormat) string {
	var (
		text string
		err  error
	)

	switch format {
	case models.FormatPDF:
		text, err = extractPDFText(data)
	case models.FormatDOCX:
		text, err = extractDocxText(data)
	case models.FormatDOC, models.FormatODT, models.FormatRTF:
		text, err = extractWithDocconv(data, docconvMimeTypes[format])
	default:
		if !utf8.Valid(data) {
			err = errInvalidEncoding
			break
		}
		text = string(data)
	}

	if err != nil {
		t.log.Warn("text extraction failed", "format", format, "error", err)
		return ""
	}

	return strings.TrimSpace(text)
}

// ExtractFile implements TextExtractor.
func (t *textExtractor) ExtractFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		t.log.Warn("failed to read document", "path", path, "error", err)
		return ""
	}

	return t.Extract(data, models.FormatFromFilename(path))
}

func extractPDFText(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var pages []string
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}

		pages = append(pages, pageText)
	}

	return strings.Join(pages, "\n"), nil
}

func extractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return flattenWordXML(doc.Editable().GetContent())
}

// flattenWordXML keeps the text runs (w:t) of a WordprocessingML body and
// ends every paragraph (w:p) with a newline. Tabs and breaks count only
// inside a run (w:r); tab stops in paragraph properties are ignored.
func flattenWordXML(content string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(content))

	var (
		sb     strings.Builder
		inText bool
		runs   int
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to decode docx body: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "r":
				runs++
			case "t":
				inText = true
			case "tab":
				if runs > 0 {
					sb.WriteString("\t")
				}
			case "br":
				if runs > 0 {
					sb.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "r":
				if runs > 0 {
					runs--
				}
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(el)
			}
		}
	}

	return sb.String(), nil
}

func extractWithDocconv(data []byte, mimeType string) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), mimeType, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert document: %w", err)
	}

	return res.Body, nil
}
