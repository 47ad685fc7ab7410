package feed

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

type jsonFeedDocument struct {
	Title   string            `json:"title"`
	Author  *jsonFeedAuthor   `json:"author"`
	Authors []*jsonFeedAuthor `json:"authors"`
	Items   []json.RawMessage `json:"items"`
}

type jsonFeedAuthor struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type jsonFeedItem struct {
	ID            jsonFeedID        `json:"id"`
	URL           string            `json:"url"`
	Title         string            `json:"title"`
	ContentHTML   string            `json:"content_html"`
	ContentText   string            `json:"content_text"`
	Content       string            `json:"content"`
	Summary       string            `json:"summary"`
	DatePublished string            `json:"date_published"`
	DateModified  string            `json:"date_modified"`
	Author        *jsonFeedAuthor   `json:"author"`
	Authors       []*jsonFeedAuthor `json:"authors"`
}

// jsonFeedID accepts ids published as JSON numbers as well as strings.
type jsonFeedID string

func (id *jsonFeedID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = jsonFeedID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid item id %s: %w", data, err)
	}
	*id = jsonFeedID(n.String())
	return nil
}

// JSONFeedParser normalizes JSON Feed documents.
type JSONFeedParser struct{}

func NewJSONFeedParser() *JSONFeedParser {
	return &JSONFeedParser{}
}

func (p *JSONFeedParser) Run(data []byte, now time.Time) ([]Item, error) {
	var doc jsonFeedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode JSON feed: %w", err)
	}

	items := make([]Item, 0, len(doc.Items))
	for i, data := range doc.Items {
		item, err := decodeJSONFeedItem(&doc, data, now)
		if err != nil {
			var malformed *MalformedItemError
			if errors.As(err, &malformed) {
				malformed.Index = i
			}
			slog.Warn("Skipping malformed entry", "feed", doc.Title, "error", err)
			continue
		}

		slog.Debug("Normalized entry", "feed", doc.Title, "title", item.Title, "id", item.UniqueID, "pubdate", item.PubDate)
		items = append(items, item)
	}

	return items, nil
}

// decodeJSONFeedItem decodes one element of items on its own, so a badly
// typed field only costs that entry.
func decodeJSONFeedItem(doc *jsonFeedDocument, data json.RawMessage, now time.Time) (Item, error) {
	var raw jsonFeedItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return Item{}, &MalformedItemError{Field: "item", Err: err}
	}
	return normalizeJSONFeedItem(doc, raw, now)
}

func normalizeJSONFeedItem(doc *jsonFeedDocument, raw jsonFeedItem, now time.Time) (Item, error) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return Item{}, &MalformedItemError{Field: "title"}
	}

	uniqueID := cmp.Or(string(raw.ID), raw.URL)
	if uniqueID == "" {
		return Item{}, &MalformedItemError{Field: "id"}
	}

	item := Item{
		Title:    title,
		Link:     raw.URL,
		UniqueID: uniqueID,
	}

	if content := cmp.Or(raw.ContentHTML, raw.ContentText, raw.Content); content != "" {
		item.Content = content
		item.Description = content
	} else {
		item.Description = raw.Summary
	}

	if author := jsonFeedItemAuthor(doc, raw); author != nil {
		item.AuthorName = strings.TrimSpace(author.Name)
		item.AuthorLink = strings.TrimSpace(author.URL)
	}

	item.Update = parseJSONFeedDate(raw.DateModified)

	if published := parseJSONFeedDate(raw.DatePublished); published != nil {
		item.PubDate = *published
	} else if item.Update != nil {
		item.PubDate = *item.Update
	} else {
		item.PubDate = now
	}

	return item, nil
}

func jsonFeedItemAuthor(doc *jsonFeedDocument, raw jsonFeedItem) *jsonFeedAuthor {
	candidates := []*jsonFeedAuthor{raw.Author}
	candidates = append(candidates, raw.Authors...)
	candidates = append(candidates, doc.Author)
	candidates = append(candidates, doc.Authors...)

	for _, author := range candidates {
		if author != nil && (author.Name != "" || author.URL != "") {
			return author
		}
	}
	return nil
}

// parseJSONFeedDate returns nil for empty or unparseable values. Times
// without a zone are read as UTC.
func parseJSONFeedDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	parsed, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		slog.Debug("Ignoring unparseable date", "value", value, "error", err)
		return nil
	}

	return &parsed
}
