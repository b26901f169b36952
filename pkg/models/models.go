// Package models defines the extraction domain types shared by the server and
// the client SDK. It is importable by API consumers so they can name result
// types in their own signatures.
package models

import "time"

// Category is the closed set of library categories the LLM may suggest.
type Category string

// Valid Category values.
const (
	CategoryArticle Category = "article"
	CategoryBook    Category = "book"
	CategoryVideo   Category = "video"
	CategoryTool    Category = "tool"
	CategoryOther   Category = "other"
)

// ContentType is the closed set of content type classifications.
type ContentType string

// Valid ContentType values.
const (
	ContentTypeArticle ContentType = "article"
	ContentTypeVideo   ContentType = "video"
	ContentTypeBook    ContentType = "book"
	ContentTypePaper   ContentType = "paper"
	ContentTypeOther   ContentType = "other"
)

// ValidCategory reports whether c is a member of the Category enum.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryArticle, CategoryBook, CategoryVideo, CategoryTool, CategoryOther:
		return true
	}
	return false
}

// ValidContentType reports whether c is a member of the ContentType enum.
func ValidContentType(c ContentType) bool {
	switch c {
	case ContentTypeArticle, ContentTypeVideo, ContentTypeBook, ContentTypePaper, ContentTypeOther:
		return true
	}
	return false
}

// ExtractedContent is the result of a metadata extraction. It is created only
// by the extraction service after a successful LLM call and validation, and
// is read-only afterward. It lives only in cache entries - it is never
// persisted to a database by this subsystem.
type ExtractedContent struct {
	Title             string             `json:"title" doc:"Page title (required)"`
	Author            string             `json:"author,omitempty" doc:"Author or creator, when identifiable"`
	Description       string             `json:"description,omitempty" doc:"Short free-text summary"`
	ImageURL          string             `json:"imageUrl,omitempty" format:"uri" doc:"Representative image URL"`
	SuggestedCategory Category           `json:"suggestedCategory,omitempty" enum:"article,book,video,tool,other" doc:"Suggested library category"`
	Tags              []string           `json:"tags,omitempty" doc:"Topic tags"`
	PublicationDate   *time.Time         `json:"publicationDate,omitempty" doc:"Publication date, when the page states one"`
	ContentType       ContentType        `json:"contentType,omitempty" enum:"article,video,book,paper,other" doc:"Content type classification"`
	Metadata          ExtractionMetadata `json:"extractionMetadata" doc:"Service-stamped extraction metadata"`
}

// ExtractionMetadata is stamped by the extraction service at creation time,
// never by the LLM.
type ExtractionMetadata struct {
	Confidence  float64   `json:"confidence" doc:"Fixed confidence score for LLM-derived fields"`
	ExtractedAt time.Time `json:"extractedAt" doc:"Timestamp of extraction"`
	LLMModel    string    `json:"llmModel" doc:"Model identifier used"`
	Version     string    `json:"version" doc:"Prompt/schema version"`
}
