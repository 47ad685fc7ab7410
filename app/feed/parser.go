package feed

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
)

// authorURIKey is the gofeed.Item.Custom key carrying the Atom author URI,
// which the default translator drops.
const authorURIKey = "feedcooker:author_uri"

// Parser normalizes RSS and Atom documents through gofeed.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	p := gofeed.NewParser()
	p.AtomTranslator = &atomTranslator{}

	return &Parser{
		gofeedParser: p,
	}
}

func (p *Parser) Run(data []byte, now time.Time) ([]Item, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]Item, 0, len(feed.Items))
	for i, entry := range feed.Items {
		if entry == nil {
			continue
		}

		item, err := normalizeEntry(feed, entry, now)
		if err != nil {
			var malformed *MalformedItemError
			if errors.As(err, &malformed) {
				malformed.Index = i
			}
			slog.Warn("Skipping malformed entry", "feed", feed.Title, "error", err)
			continue
		}

		slog.Debug("Normalized entry", "feed", feed.Title, "title", item.Title, "id", item.UniqueID, "pubdate", item.PubDate)
		items = append(items, item)
	}

	return items, nil
}

func normalizeEntry(feed *gofeed.Feed, entry *gofeed.Item, now time.Time) (Item, error) {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		return Item{}, &MalformedItemError{Field: "title"}
	}

	uniqueID := cmp.Or(entry.GUID, entry.Link)
	if uniqueID == "" {
		return Item{}, &MalformedItemError{Field: "id"}
	}

	item := Item{
		Title:    title,
		Link:     entry.Link,
		UniqueID: uniqueID,
	}

	if entry.Content != "" {
		item.Content = entry.Content
		item.Description = entry.Content
	} else {
		item.Description = entry.Description
	}

	item.AuthorName, item.AuthorEmail, item.AuthorLink = entryAuthor(feed, entry)

	if entry.UpdatedParsed != nil {
		updated := *entry.UpdatedParsed
		item.Update = &updated
	}

	switch {
	case entry.PublishedParsed != nil:
		item.PubDate = *entry.PublishedParsed
	case item.Update != nil:
		item.PubDate = *item.Update
	default:
		item.PubDate = now
	}

	return item, nil
}

// entryAuthor resolves the author in three steps: the entry's structured
// author (name plus email or link), then the entry's bare author name, then
// the feed's bare author name, or its address when it has no name.
func entryAuthor(feed *gofeed.Feed, entry *gofeed.Item) (name, email, link string) {
	if person := firstPerson(entry.Authors, entry.Author); person != nil {
		uri := entry.Custom[authorURIKey]
		if person.Email != "" || uri != "" {
			return strings.TrimSpace(person.Name), strings.TrimSpace(person.Email), uri
		}
		if name := strings.TrimSpace(person.Name); name != "" {
			return name, "", ""
		}
	}

	// A bare address such as managingEditor "a@b.com" leaves Name empty.
	if person := firstPerson(feed.Authors, feed.Author); person != nil {
		if name := strings.TrimSpace(cmp.Or(person.Name, person.Email)); name != "" {
			return name, "", ""
		}
	}

	return "", "", ""
}

func firstPerson(people []*gofeed.Person, fallback *gofeed.Person) *gofeed.Person {
	for _, person := range people {
		if person != nil {
			return person
		}
	}
	return fallback
}

// atomTranslator keeps the entry author URI next to the universal item.
type atomTranslator struct {
	gofeed.DefaultAtomTranslator
}

func (t *atomTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	result, err := t.DefaultAtomTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}

	atomFeed, ok := feed.(*atom.Feed)
	if !ok || len(atomFeed.Entries) != len(result.Items) {
		return result, nil
	}

	for i, entry := range atomFeed.Entries {
		uri := firstAtomAuthorURI(entry.Authors)
		if uri == "" || result.Items[i] == nil {
			continue
		}
		if result.Items[i].Custom == nil {
			result.Items[i].Custom = make(map[string]string)
		}
		result.Items[i].Custom[authorURIKey] = uri
	}

	return result, nil
}

func firstAtomAuthorURI(people []*atom.Person) string {
	for _, person := range people {
		if person != nil {
			return strings.TrimSpace(person.URI)
		}
	}
	return ""
}
