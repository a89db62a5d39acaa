// Package ingest turns files on disk into blaze.IndexedDocument records.
// Markdown is parsed with goldmark and the text of the resulting AST is
// joined into plain text; the first heading's text becomes
// metadata.section (no path of nested headings is kept). HTML is reduced
// to text with a strict bluemonday policy. Plain text passes through
// unchanged. Any other extension is silently skipped, per the reindex
// contract.
package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/nexus-search/blaze"
)

var supportedExtensions = map[string]struct{}{
	".md": {}, ".markdown": {}, ".html": {}, ".htm": {}, ".txt": {},
}

// Supported reports whether path's extension is one Ingest can handle.
func Supported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Directory walks dir, ingesting every supported file into an
// IndexedDocument. Unsupported extensions are skipped without error.
func Directory(dir string) ([]*blaze.IndexedDocument, error) {
	var docs []*blaze.IndexedDocument
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}
		doc, err := File(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// File ingests a single supported file into an IndexedDocument. The
// document id is left empty so IndexManager.AddDocuments assigns one.
func File(path string) (*blaze.IndexedDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var content string
	var section string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		content, section = markdownToText(raw)
	case ".html", ".htm":
		content = htmlToText(raw)
	default:
		content = string(raw)
	}

	fields := map[string]blaze.DocumentValue{
		"title":   blaze.NewTextValue(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))),
		"content": blaze.NewTextValue(content),
	}

	metadata := map[string]any{"sourcePath": path}
	if section != "" {
		metadata["section"] = section
	}

	return &blaze.IndexedDocument{Fields: fields, Metadata: metadata}, nil
}

var htmlPolicy = bluemonday.StrictPolicy()

func htmlToText(raw []byte) string {
	sanitized := htmlPolicy.SanitizeBytes(raw)
	return strings.Join(strings.Fields(string(sanitized)), " ")
}

// markdownToText renders markdown to its plain-text content and returns
// the first heading encountered, used as the document's section metadata.
func markdownToText(raw []byte) (content string, section string) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(raw))

	var textParts []string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if section == "" {
				section = extractText(node, raw)
			}
		case *ast.Text:
			textParts = append(textParts, string(node.Segment.Value(raw)))
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(textParts, " "), section
}

func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return buf.String()
}
