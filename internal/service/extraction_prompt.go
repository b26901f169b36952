package service

import (
	"strings"

	"github.com/pagelens/pagelens-api/pkg/models"
)

// PromptVersion identifies the prompt/schema revision stamped into extraction
// metadata. Bump it whenever the prompt template or the tool schema changes,
// so cached entries can be traced back to the revision that produced them.
const PromptVersion = "1.0"

// DefaultConfidence is the fixed confidence score attached to LLM-derived
// fields. The provider gives us no calibrated signal, so a single value is
// honest about that.
const DefaultConfidence = 0.8

var categoryNames = []string{
	string(models.CategoryArticle),
	string(models.CategoryBook),
	string(models.CategoryVideo),
	string(models.CategoryTool),
	string(models.CategoryOther),
}

var contentTypeNames = []string{
	string(models.ContentTypeArticle),
	string(models.ContentTypeVideo),
	string(models.ContentTypeBook),
	string(models.ContentTypePaper),
	string(models.ContentTypeOther),
}

// buildExtractionPrompt constructs the user message for a metadata extraction.
// The URL itself is appended by the LLM client.
func buildExtractionPrompt() string {
	var b strings.Builder

	b.WriteString(`Extract metadata about the web page at the given URL using your knowledge of it.

Fill in every field you can determine:
- title: the page or work's title (required; use the most recognizable form)
- author: the author or creator, when identifiable
- description: a short summary, one or two sentences
- imageUrl: a representative image URL, when one is known
- suggestedCategory: one of `)
	b.WriteString(strings.Join(categoryNames, ", "))
	b.WriteString(`
- tags: a handful of topic tags
- publicationDate: the publication date in ISO 8601, when the page states one
- contentType: one of `)
	b.WriteString(strings.Join(contentTypeNames, ", "))
	b.WriteString(`

Omit any field you cannot determine. Never invent authors, dates, or image URLs.`)

	return b.String()
}
