package cfg

import "time"

type Cfg struct {
	// Recipes
	RecipesDir string
	OutputDir  string
	Recipe     string // cook only this recipe when set

	// Identity of the repository publishing the cooked feeds
	Owner      string
	Repository string

	// Cooking
	Limit       int
	Timeout     time.Duration
	Concurrency int

	// Serving
	Serve bool
	Port  string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
