package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func validPayload() Payload {
	return Payload{
		Title:  "On Democracy",
		Author: "Ada",
		Year:   "2025",
		Body:   "a body",
		Link:   "https://example.org/1",
		Tags:   []string{"politics"},
	}
}

func TestValidateAcceptsCompletePayload(t *testing.T) {
	require.NoError(t, Validate(validPayload()))

	p := validPayload()
	p.Year = ""
	require.NoError(t, Validate(p), "year is not checked")
}

func TestValidateRejectsMissingFields(t *testing.T) {
	cases := map[string]func(*Payload){
		"title":  func(p *Payload) { p.Title = "" },
		"author": func(p *Payload) { p.Author = "" },
		"body":   func(p *Payload) { p.Body = "" },
		"link":   func(p *Payload) { p.Link = "" },
		"tags":   func(p *Payload) { p.Tags = nil },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			p := validPayload()
			mutate(&p)
			err := Validate(p)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidDocument))
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			require.Contains(t, ve.Fields, field)
			require.Len(t, ve.Fields, 1)
		})
	}
}

func TestCleanTags(t *testing.T) {
	require.Equal(t, []string{"a", "b", "a"}, CleanTags([]string{" a", "", "b ", "  ", "a"}))
	require.Empty(t, CleanTags(nil))
}
