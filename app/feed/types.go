package feed

import (
	"time"
)

// Item is the normalized form every source entry is converted into.
// Content, when set, is also the Description.
type Item struct {
	Title       string
	Link        string
	UniqueID    string
	Description string
	Content     string

	AuthorName  string
	AuthorLink  string
	AuthorEmail string

	PubDate time.Time  // always set, falls back to fetch time
	Update  *time.Time // last-modified time when the source provides one
}

// Metadata describes the cooked feed itself.
type Metadata struct {
	Title       string
	Description string
	HomePageURL string
	FeedURL     string
	AuthorName  string
	AuthorLink  string
}

type SourceKind string

const (
	SourceGeneric  SourceKind = "generic"
	SourceJSONFeed SourceKind = "jsonfeed"
)
