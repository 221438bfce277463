// Package tagstring splits a tagged sentence of "word/TAG" tokens into the
// parallel sentence and tags slices lcfrs.Options and cfg.Options expect,
// and joins them back for printing.
package tagstring

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var tokenPattern = regexp.MustCompile(`^(.+)/([^/]+)$`)

// Split parses a whitespace-separated "word/TAG" token stream into
// parallel sentence and tags slices, one entry per token. Words
// themselves may contain "/" (the pattern is greedy on the word side);
// only the final "/" in a token separates the tag.
func Split(taggedText string) (sentence []string, tags []string, err error) {
	fields := strings.Fields(taggedText)
	sentence = make([]string, 0, len(fields))
	tags = make([]string, 0, len(fields))
	for _, field := range fields {
		m := tokenPattern.FindStringSubmatch(field)
		if m == nil {
			return nil, nil, errors.Errorf("tagstring: malformed token %q, expected word/TAG", field)
		}
		sentence = append(sentence, m[1])
		tags = append(tags, m[2])
	}
	return sentence, tags, nil
}

// Join is Split's inverse: it renders parallel sentence/tags slices back
// into a single "word/TAG word/TAG ..." string.
func Join(sentence, tags []string) (string, error) {
	if len(sentence) != len(tags) {
		return "", errors.Errorf(
			"tagstring: Join: sentence has %d words but tags has %d entries", len(sentence), len(tags))
	}
	tokens := make([]string, len(sentence))
	for i, word := range sentence {
		tokens[i] = word + "/" + tags[i]
	}
	return strings.Join(tokens, " "), nil
}
