package feed

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/feeds"
)

const (
	jsonFeedVersion = "https://jsonfeed.org/version/1.1"
	atomNamespace   = "http://www.w3.org/2005/Atom"
)

// JSONFeed is a JSON Feed 1.1 document. Items shadows the embedded field so
// the array is written even when empty. The 1.0 author field is kept
// next to authors for older readers.
type JSONFeed struct {
	*feeds.JSONFeed
	Authors []*feeds.JSONAuthor `json:"authors,omitempty"`
	Items   []*JSONItem         `json:"items"`
}

type JSONItem struct {
	*feeds.JSONItem
	Authors []*feeds.JSONAuthor `json:"authors,omitempty"`
}

func NewJSONFeed(meta Metadata, items []Item) *JSONFeed {
	doc := &JSONFeed{
		JSONFeed: &feeds.JSONFeed{
			Version:     jsonFeedVersion,
			Title:       meta.Title,
			HomePageUrl: meta.HomePageURL,
			FeedUrl:     meta.FeedURL,
			Description: meta.Description,
		},
		Items: make([]*JSONItem, 0, len(items)),
	}

	if author := newJSONAuthor(meta.AuthorName, meta.AuthorLink); author != nil {
		doc.Author = author
		doc.Authors = []*feeds.JSONAuthor{author}
	}

	for _, item := range items {
		doc.Items = append(doc.Items, newJSONItem(item))
	}

	return doc
}

func newJSONItem(item Item) *JSONItem {
	published := item.PubDate
	jsonItem := &JSONItem{JSONItem: &feeds.JSONItem{
		Id:            item.UniqueID,
		Url:           item.Link,
		Title:         item.Title,
		ContentHTML:   cmp.Or(item.Content, item.Description),
		PublishedDate: &published,
	}}

	if item.Update != nil {
		updated := *item.Update
		jsonItem.ModifiedDate = &updated
	}

	if author := newJSONAuthor(item.AuthorName, item.AuthorLink); author != nil {
		jsonItem.Author = author
		jsonItem.Authors = []*feeds.JSONAuthor{author}
	}

	return jsonItem
}

func newJSONAuthor(name, link string) *feeds.JSONAuthor {
	if name == "" && link == "" {
		return nil
	}
	return &feeds.JSONAuthor{Name: name, Url: link}
}

// NewAtomFeed builds an Atom document. The feed's updated stamp is the newest
// item's publish time, or builtAt when there are no items.
func NewAtomFeed(meta Metadata, items []Item, builtAt time.Time) *feeds.AtomFeed {
	updated := builtAt
	for i, item := range items {
		if i == 0 || item.PubDate.After(updated) {
			updated = item.PubDate
		}
	}

	doc := &feeds.AtomFeed{
		Xmlns:    atomNamespace,
		Title:    meta.Title,
		Id:       cmp.Or(meta.FeedURL, meta.HomePageURL),
		Updated:  formatAtomTime(updated),
		Subtitle: meta.Description,
		Entries:  make([]*feeds.AtomEntry, 0, len(items)),
	}

	if meta.HomePageURL != "" {
		doc.Link = &feeds.AtomLink{Href: meta.HomePageURL, Rel: "alternate"}
	}

	if meta.AuthorName != "" {
		doc.Author = &feeds.AtomAuthor{AtomPerson: feeds.AtomPerson{Name: meta.AuthorName, Uri: meta.AuthorLink}}
	}

	for _, item := range items {
		doc.Entries = append(doc.Entries, newAtomEntry(item))
	}

	return doc
}

func newAtomEntry(item Item) *feeds.AtomEntry {
	updated := item.PubDate
	if item.Update != nil {
		updated = *item.Update
	}

	entry := &feeds.AtomEntry{
		Title:     item.Title,
		Id:        item.UniqueID,
		Updated:   formatAtomTime(updated),
		Published: formatAtomTime(item.PubDate),
	}

	if item.Link != "" {
		entry.Links = []feeds.AtomLink{{Href: item.Link, Rel: "alternate"}}
	}

	if body := cmp.Or(item.Content, item.Description); body != "" {
		entry.Content = &feeds.AtomContent{Content: body, Type: "html"}
	}

	if item.AuthorName != "" {
		entry.Author = &feeds.AtomAuthor{AtomPerson: feeds.AtomPerson{
			Name:  item.AuthorName,
			Email: item.AuthorEmail,
			Uri:   item.AuthorLink,
		}}
	}

	return entry
}

func formatAtomTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func WriteJSON(w io.Writer, doc *JSONFeed) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON feed: %w", err)
	}
	return nil
}

func WriteAtom(w io.Writer, doc *feeds.AtomFeed) error {
	data, err := feeds.ToXML(doc)
	if err != nil {
		return fmt.Errorf("failed to encode Atom feed: %w", err)
	}

	if _, err := io.WriteString(w, data); err != nil {
		return fmt.Errorf("failed to write Atom feed: %w", err)
	}
	return nil
}
