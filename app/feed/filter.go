package feed

import (
	"fmt"
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// TitleFilter keeps items whose title contains a match for a pattern.
// A nil *TitleFilter keeps everything.
type TitleFilter struct {
	pattern *regexp.Regexp
}

func NewTitleFilter(pattern string) (*TitleFilter, error) {
	re, err := regexp.Compile(norm.NFC.String(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid title filter %q: %w", pattern, err)
	}
	return &TitleFilter{pattern: re}, nil
}

func (f *TitleFilter) Match(item Item) bool {
	if f == nil {
		return true
	}
	return f.pattern.MatchString(norm.NFC.String(item.Title))
}

func (f *TitleFilter) Run(items []Item) []Item {
	if f == nil {
		return items
	}

	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		if f.Match(item) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func (f *TitleFilter) String() string {
	if f == nil {
		return ""
	}
	return f.pattern.String()
}
