package document

import "strings"

// Validate reports whether p carries every field required for indexing.
// The check is presence only: title, author, body and link must be non-empty
// and tags must hold at least one value. Year is not checked.
func Validate(p Payload) error {
	fields := map[string]string{}
	if p.Title == "" {
		fields["title"] = "is required"
	}
	if p.Author == "" {
		fields["author"] = "is required"
	}
	if p.Body == "" {
		fields["body"] = "is required"
	}
	if p.Link == "" {
		fields["link"] = "is required"
	}
	if len(p.Tags) == 0 {
		fields["tags"] = "at least one tag is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CleanTags trims each tag and drops the empty ones. Order and duplicates
// are kept as sent.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
