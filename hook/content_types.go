package hook

import (
	"sort"

	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/model"
)

// ContentTypeReporter logs, once per model call, the distinct kinds of
// content going to the model: "text" for any text part, the MIME type for
// inline binary parts and file references. Categories are deduplicated and
// sorted lexicographically so the line is stable across part ordering.
type ContentTypeReporter struct{}

// NewContentTypeReporter returns a ContentTypeReporter.
func NewContentTypeReporter() *ContentTypeReporter { return &ContentTypeReporter{} }

// BeforeModel inspects the outgoing request and logs the category summary.
// Always returns nil: the request proceeds unmodified.
func (r *ContentTypeReporter) BeforeModel(hctx *Context, req *model.Request) *model.Response {
	if req == nil {
		return nil
	}
	hctx.Logger().Info("model.content_types",
		"agent", hctx.AgentName(),
		"types", ContentCategories(req),
	)
	return nil
}

// ContentCategories computes the sorted, deduplicated category list for a
// request. Inline and file parts without a MIME type fall back to a generic
// category name.
func ContentCategories(req *model.Request) []string {
	seen := map[string]struct{}{}
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			if cat := categorize(p); cat != "" {
				seen[cat] = struct{}{}
			}
		}
	}

	cats := make([]string, 0, len(seen))
	for cat := range seen {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

func categorize(p core.Part) string {
	switch part := p.(type) {
	case core.TextPart:
		return "text"
	case core.InlineDataPart:
		if part.MIMEType != "" {
			return part.MIMEType
		}
		return "inline_data"
	case core.FilePart:
		if part.MIMEType != "" {
			return part.MIMEType
		}
		return "file_data"
	default:
		return ""
	}
}
