// Package schema validates raw LLM output against the extraction contract.
//
// The validator distinguishes "the model returned garbage" from "the user
// sent garbage": its errors are a dedicated type so the service boundary can
// map them to an extraction-failed condition rather than a bad-request one.
package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/pagelens/pagelens-api/pkg/models"
	"github.com/pagelens/pagelens-api/internal/urlutil"
)

// FieldError describes a single field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when the model output does not satisfy the
// extraction contract. It is detectable via errors.As.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid response format"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "invalid response format: " + strings.Join(parts, "; ")
}

// Fields is the validated, typed form of the model's structured output.
// The extraction service maps it into models.ExtractedContent.
type Fields struct {
	Title             string
	Author            string
	Description       string
	ImageURL          string
	SuggestedCategory models.Category
	Tags              []string
	PublicationDate   *time.Time
	ContentType       models.ContentType
}

// Date layouts the LLM is known to emit for publication dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2006",
}

// Validate checks a raw parsed-JSON object against the extraction contract
// and coerces it into typed Fields. Title is required and must be a non-empty
// string; all other fields are optional but must be well-formed when present.
func Validate(raw map[string]any) (*Fields, error) {
	verr := &ValidationError{}
	f := &Fields{}

	title, ok := stringField(raw, "title")
	if !ok || strings.TrimSpace(title) == "" {
		verr.Fields = append(verr.Fields, FieldError{Field: "title", Message: "required non-empty string"})
	}
	f.Title = strings.TrimSpace(title)

	f.Author, _ = stringField(raw, "author")
	f.Description, _ = stringField(raw, "description")

	if img, present := presentString(raw, "imageUrl"); present {
		if !urlutil.IsValidURL(img) {
			verr.Fields = append(verr.Fields, FieldError{Field: "imageUrl", Message: "must be a well-formed http(s) URL"})
		} else {
			f.ImageURL = img
		}
	}

	if cat, present := presentString(raw, "suggestedCategory"); present {
		c := models.Category(strings.ToLower(strings.TrimSpace(cat)))
		if !models.ValidCategory(c) {
			verr.Fields = append(verr.Fields, FieldError{Field: "suggestedCategory", Message: fmt.Sprintf("unknown category %q", cat)})
		} else {
			f.SuggestedCategory = c
		}
	}

	if ct, present := presentString(raw, "contentType"); present {
		c := models.ContentType(strings.ToLower(strings.TrimSpace(ct)))
		if !models.ValidContentType(c) {
			verr.Fields = append(verr.Fields, FieldError{Field: "contentType", Message: fmt.Sprintf("unknown content type %q", ct)})
		} else {
			f.ContentType = c
		}
	}

	if rawTags, present := raw["tags"]; present && rawTags != nil {
		tags, err := stringSlice(rawTags)
		if err != nil {
			verr.Fields = append(verr.Fields, FieldError{Field: "tags", Message: err.Error()})
		} else {
			f.Tags = tags
		}
	}

	if ds, present := presentString(raw, "publicationDate"); present {
		if ts, ok := ParseDate(ds); ok {
			f.PublicationDate = &ts
		}
		// Unparseable dates are dropped, not fatal - the field is advisory.
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return f, nil
}

// ParseDate parses a publication date string in any of the known layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func stringField(raw map[string]any, key string) (string, bool) {
	v, present := raw[key]
	if !present {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// presentString returns a field only when it exists, is a string, and is non-empty.
func presentString(raw map[string]any, key string) (string, bool) {
	v, present := raw[key]
	if !present || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func stringSlice(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("must be an array of strings")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("must be an array of strings")
		}
		out = append(out, s)
	}
	return out, nil
}
