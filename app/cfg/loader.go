package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Recipes
	RecipesDir string `long:"recipes-dir" env:"RECIPES_DIR" default:"./recipes" description:"Directory containing recipe files"`
	OutputDir  string `long:"output-dir" env:"OUTPUT_DIR" default:"./well-done" description:"Directory the cooked feeds are written to"`
	Recipe     string `long:"name" env:"RECIPE" description:"Cook only the named recipe"`

	// Identity
	Owner      string `long:"owner" env:"GITHUB_REPOSITORY_OWNER" description:"Owner of the publishing repository (required)"`
	Repository string `long:"repository" env:"GITHUB_REPOSITORY" description:"Publishing repository as owner/name (required)"`

	// Cooking
	Limit       int `long:"limit" env:"LIMIT" default:"10" description:"Maximum number of items taken from each source"`
	Timeout     int `long:"timeout" env:"FETCH_TIMEOUT" default:"30" description:"Source fetch timeout in seconds"`
	Concurrency int `long:"concurrency" env:"CONCURRENCY" default:"1" description:"Number of sources fetched at once"`

	// Serving
	Serve bool   `long:"serve" env:"SERVE" description:"Serve recipes over HTTP instead of writing files"`
	Port  string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses flags and environment. It returns nil, nil when help was
// requested.
func Load() (*Cfg, error) {
	return load(nil)
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		RecipesDir:  raw.RecipesDir,
		OutputDir:   raw.OutputDir,
		Recipe:      raw.Recipe,
		Owner:       raw.Owner,
		Repository:  raw.Repository,
		Limit:       raw.Limit,
		Timeout:     time.Duration(raw.Timeout) * time.Second,
		Concurrency: raw.Concurrency,
		Serve:       raw.Serve,
		Port:        raw.Port,
		UserAgent:   cmp.Or(raw.UserAgent, "feedcooker/"+GetVersion()),
		Debug:       raw.Debug,
		Version:     GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if cfg.Owner == "" || cfg.Repository == "" {
		return fmt.Errorf("owner and repository are required")
	}

	positiveFields := map[string]int{
		"limit":       cfg.Limit,
		"timeout":     int(cfg.Timeout / time.Second),
		"concurrency": cfg.Concurrency,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	return nil
}
