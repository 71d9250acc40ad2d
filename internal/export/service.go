package export

import (
	"context"
	"fmt"

	"choicesherpa/api/internal/document"
	"choicesherpa/api/internal/markdown"
)

// DocumentSource loads documents with their markdown bodies.
type DocumentSource interface {
	Get(ctx context.Context, id string) (*document.DecisionDocument, error)
}

type Service struct {
	docs DocumentSource
}

func NewService(docs DocumentSource) *Service {
	return &Service{docs: docs}
}

// Export renders one document in the requested format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	doc, err := s.docs.Get(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	raw := doc.Content.Raw()
	title := markdown.Parse(raw).Metadata.Title
	if title == "" {
		title = "Decision Document"
	}

	page, err := RenderDocumentHTML(TemplateData{
		Title:       title,
		ContentHTML: MarkdownToHTML(raw),
		Author:      doc.UpdatedBy.Encode(),
		UpdatedAt:   doc.UpdatedAt,
		Version:     int(doc.Version),
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatHTML:
		return &Result{
			Data:     []byte(page),
			Filename: sanitizeFilename(title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(page, title)
	case FormatDOCX:
		return exportDOCX(page, title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}
