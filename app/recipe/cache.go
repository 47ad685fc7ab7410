package recipe

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/lysyi3m/feed-cooker/app/feed"
	"gopkg.in/yaml.v3"
)

var extensions = []string{".yml", ".yaml"}

var ErrNotFound = errors.New("recipe not found")

type Cache struct {
	recipesDir string
	cache      map[string]*Recipe
	mu         sync.RWMutex
}

func NewCache(recipesDir string) *Cache {
	return &Cache{
		recipesDir: recipesDir,
		cache:      make(map[string]*Recipe),
	}
}

func (c *Cache) Run() error {
	if _, err := os.Stat(c.recipesDir); os.IsNotExist(err) {
		return nil
	}

	var files []string
	for _, ext := range extensions {
		matches, err := filepath.Glob(filepath.Join(c.recipesDir, "*"+ext))
		if err != nil {
			return fmt.Errorf("failed to find %s files: %w", ext, err)
		}
		files = append(files, matches...)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		name := strings.TrimSuffix(fileName, filepath.Ext(fileName))

		recipe, err := c.loadFile(name, file)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Recipe loaded", "recipe", name, "urls", len(recipe.URLs), "filter", recipe.TitlePattern())
	}

	return nil
}

// LoadRecipe reads the named recipe from disk and refreshes the cached copy.
// A recipe whose file is gone is dropped from the cache.
func (c *Cache) LoadRecipe(name string) (*Recipe, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("%w: invalid name '%s'", ErrNotFound, name)
	}

	for _, ext := range extensions {
		file := filepath.Join(c.recipesDir, name+ext)
		if _, err := os.Stat(file); err == nil {
			return c.loadFile(name, file)
		}
	}

	c.mu.Lock()
	delete(c.cache, name)
	c.mu.Unlock()

	return nil, fmt.Errorf("%w: no file for '%s' in %s", ErrNotFound, name, c.recipesDir)
}

func (c *Cache) GetRecipe(name string) (*Recipe, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	recipe, ok := c.cache[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}
	return recipe, nil
}

func (c *Cache) GetRecipes() map[string]*Recipe {
	c.mu.RLock()
	defer c.mu.RUnlock()

	recipesCopy := make(map[string]*Recipe, len(c.cache))
	for k, v := range c.cache {
		recipesCopy[k] = v
	}
	return recipesCopy
}

// Names returns the loaded recipe names in sorted order.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.cache))
	for name := range c.cache {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (c *Cache) GetRecipeCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Cache) loadFile(name, file string) (*Recipe, error) {
	recipe, err := parseRecipe(file)
	if err != nil {
		return nil, err
	}

	recipe.Name = name

	if err := validateRecipe(recipe); err != nil {
		return nil, fmt.Errorf("invalid recipe %s: %w", file, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[recipe.Name] = recipe

	return recipe, nil
}

func parseRecipe(file string) (*Recipe, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var recipe Recipe
	if err := yaml.Unmarshal(data, &recipe); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	recipe.Description = strings.TrimSpace(recipe.Description)

	return &recipe, nil
}

func validateRecipe(recipe *Recipe) error {
	if recipe == nil {
		return fmt.Errorf("recipe is nil")
	}

	if recipe.Name == "" {
		return fmt.Errorf("recipe name is required")
	}

	if len(recipe.URLs) == 0 {
		return fmt.Errorf("at least one source URL is required")
	}

	for i, raw := range recipe.URLs {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid URL at index %d: %w", i, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("URL at index %d must be an absolute http(s) URL: %s", i, raw)
		}
	}

	if recipe.Filter != nil {
		if recipe.Filter.Title == "" {
			return fmt.Errorf("filter must define a title pattern")
		}
		if _, err := feed.NewTitleFilter(recipe.Filter.Title); err != nil {
			return err
		}
	}

	return nil
}
