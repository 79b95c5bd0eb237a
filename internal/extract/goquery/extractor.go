// Package goqueryextract provides the default pipeline.Extractor.
//
// It is a pragmatic boilerplate stripper built on goquery selectors, not a
// full content-extraction algorithm: it keeps the binary usable end to end
// while a stronger extractor can be swapped in behind the same interface.
package goqueryextract

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/EiffelFly/trafilatura/internal/pipeline"
)

// mainCandidates are tried in order before any fallback pass over body.
var mainCandidates = []string{"article", "main", "[role=main]", "#content", ".content", ".post"}

// boilerplate is always removed before text collection.
const boilerplate = "script, style, noscript, iframe, nav, header, footer, aside, form"

// Extractor implements pipeline.Extractor.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

type document struct {
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

// Extract pulls the main text out of an HTML document and renders it in the
// requested output format. An empty result with a nil error means nothing
// extractable was found.
func (e *Extractor) Extract(ctx context.Context, raw []byte, url string, opts pipeline.Options) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if opts.TargetLanguage != "" {
		if lang, ok := doc.Find("html").Attr("lang"); ok {
			if !strings.HasPrefix(strings.ToLower(lang), strings.ToLower(opts.TargetLanguage)) {
				return "", nil
			}
		}
	}

	doc.Find(boilerplate).Remove()
	if !opts.Comments {
		doc.Find("#comments, .comments, .comment").Remove()
	}
	if !opts.Tables {
		doc.Find("table").Remove()
	}

	content := e.selectMain(doc, opts.Fast)
	if content == nil {
		return "", nil
	}
	lines := e.collectLines(content, opts)
	if len(lines) == 0 {
		return "", nil
	}
	text := strings.Join(lines, "\n")

	title := ""
	if opts.WithMetadata {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return render(document{URL: url, Title: title, Text: text}, opts)
}

// selectMain returns the first matching content region; in fast mode there
// is no fallback pass over the whole body.
func (e *Extractor) selectMain(doc *goquery.Document, fast bool) *goquery.Selection {
	for _, selector := range mainCandidates {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			return sel
		}
	}
	if fast {
		return nil
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return nil
}

func (e *Extractor) collectLines(content *goquery.Selection, opts pipeline.Options) []string {
	seen := make(map[string]struct{})
	var lines []string
	content.Find("h1, h2, h3, h4, h5, p, li, blockquote, pre, td").Each(func(_ int, sel *goquery.Selection) {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" {
			return
		}
		if opts.Deduplicate {
			if _, dup := seen[text]; dup {
				return
			}
			seen[text] = struct{}{}
		}
		if opts.Formatting && strings.HasPrefix(goquery.NodeName(sel), "h") {
			text = "## " + text
		}
		lines = append(lines, text)
	})
	return lines
}

func render(doc document, opts pipeline.Options) (string, error) {
	switch opts.OutputFormat {
	case pipeline.FormatXML, pipeline.FormatXMLTEI:
		return renderXML(doc, opts.OutputFormat == pipeline.FormatXMLTEI)
	case pipeline.FormatCSV:
		return renderCSV(doc)
	case pipeline.FormatJSON:
		payload, err := json.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("encode json: %w", err)
		}
		return string(payload), nil
	default:
		return doc.Text, nil
	}
}

func renderXML(doc document, tei bool) (string, error) {
	root := "doc"
	if tei {
		root = "TEI"
	}
	var buf bytes.Buffer
	buf.WriteString("<" + root)
	if doc.URL != "" {
		buf.WriteString(` source="`)
		if err := xml.EscapeText(&buf, []byte(doc.URL)); err != nil {
			return "", fmt.Errorf("encode xml: %w", err)
		}
		buf.WriteString(`"`)
	}
	buf.WriteString("><main>")
	if err := xml.EscapeText(&buf, []byte(doc.Text)); err != nil {
		return "", fmt.Errorf("encode xml: %w", err)
	}
	buf.WriteString("</main></" + root + ">")
	return buf.String(), nil
}

func renderCSV(doc document) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{doc.URL, doc.Title, doc.Text}); err != nil {
		return "", fmt.Errorf("encode csv: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("encode csv: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
