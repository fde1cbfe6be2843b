// Package mention finds @-prefixed email addresses in free text.
package mention

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// A mention is "@" followed by a whole address. Separators such as commas,
// brackets and quotes end the address, so "(@a@x.com),@b@x.com" yields both.
var mentionPattern = regexp.MustCompile(`@([^\s@,;:()<>\[\]"']+@[^\s@,;:()<>\[\]"']+)`)

// Extractor pulls candidate recipient emails out of notification text.
type Extractor struct {
	validate *validator.Validate
}

// NewExtractor constructs an Extractor.
func NewExtractor(validate *validator.Validate) *Extractor {
	if validate == nil {
		validate = validator.New()
	}
	return &Extractor{validate: validate}
}

// Extract returns the syntactically valid mentioned emails in order of first
// appearance, without duplicates.
func (e *Extractor) Extract(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	emails := make([]string, 0, len(matches))
	for _, match := range matches {
		candidate := strings.TrimRight(match[1], ".!?}")
		if candidate == "" {
			continue
		}
		if err := e.validate.Var(candidate, "required,email"); err != nil {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		emails = append(emails, candidate)
	}
	return emails
}
