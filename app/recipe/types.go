package recipe

// Recipe describes one cooked feed: where its sources live and which of
// their entries to keep.
type Recipe struct {
	Name        string   // Derived from filename (without extension)
	Description string   `yaml:"description"`
	URLs        []string `yaml:"urls"`
	Filter      *Filter  `yaml:"filter"`
}

type Filter struct {
	Title string `yaml:"title"` // regular expression searched in item titles
}

// TitlePattern returns the configured title pattern, or "" when the recipe
// has none.
func (r *Recipe) TitlePattern() string {
	if r.Filter == nil {
		return ""
	}
	return r.Filter.Title
}
