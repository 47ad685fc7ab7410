package recipe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeRecipe(t *testing.T, dir, file, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCacheLoadValidRecipe(t *testing.T) {
	tempDir := t.TempDir()

	writeRecipe(t, tempDir, "releases.yml", `
description: |
  Release notes from upstream projects
urls:
  - "https://example.com/feed.xml"
  - "https://example.org/feed.json"
filter:
  title: "^Release"
`)

	recipeCache := NewCache(tempDir)
	if err := recipeCache.Run(); err != nil {
		t.Fatal(err)
	}

	if recipeCache.GetRecipeCount() != 1 {
		t.Errorf("Expected 1 recipe, got %d", recipeCache.GetRecipeCount())
	}

	r, err := recipeCache.GetRecipe("releases")
	if err != nil {
		t.Fatal(err)
	}

	if r.Name != "releases" {
		t.Errorf("Expected name 'releases', got '%s'", r.Name)
	}
	if r.Description != "Release notes from upstream projects" {
		t.Errorf("Expected trimmed description, got '%s'", r.Description)
	}
	if len(r.URLs) != 2 || r.URLs[1] != "https://example.org/feed.json" {
		t.Errorf("Unexpected URLs %v", r.URLs)
	}
	if r.TitlePattern() != "^Release" {
		t.Errorf("Expected title pattern '^Release', got '%s'", r.TitlePattern())
	}
}

func TestCacheLoadRecipeWithoutFilter(t *testing.T) {
	tempDir := t.TempDir()

	writeRecipe(t, tempDir, "news.yaml", `
urls:
  - "https://example.com/feed.xml"
`)

	recipeCache := NewCache(tempDir)
	if err := recipeCache.Run(); err != nil {
		t.Fatal(err)
	}

	r, err := recipeCache.GetRecipe("news")
	if err != nil {
		t.Fatal(err)
	}
	if r.Filter != nil || r.TitlePattern() != "" {
		t.Errorf("Expected no filter, got %+v", r.Filter)
	}
	if r.Description != "" {
		t.Errorf("Expected empty description, got '%s'", r.Description)
	}
}

func TestCacheInvalidRecipes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"no urls", "description: empty\n", "at least one source URL"},
		{"relative url", "urls:\n  - \"/feed.xml\"\n", "absolute http(s) URL"},
		{"unsupported scheme", "urls:\n  - \"ftp://example.com/feed\"\n", "absolute http(s) URL"},
		{"empty filter", "urls:\n  - \"https://example.com\"\nfilter: {}\n", "title pattern"},
		{"bad pattern", "urls:\n  - \"https://example.com\"\nfilter:\n  title: \"(\"\n", "invalid title filter"},
		{"bad yaml", "urls: [unclosed\n", "failed to parse YAML"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeRecipe(t, tempDir, "broken.yml", test.content)

			err := NewCache(tempDir).Run()
			if err == nil {
				t.Fatal("Expected error for invalid recipe")
			}
			if !strings.Contains(err.Error(), test.errText) {
				t.Errorf("Expected error containing '%s', got: %v", test.errText, err)
			}
		})
	}
}

func TestCacheEmptyDirectory(t *testing.T) {
	recipeCache := NewCache(t.TempDir())
	if err := recipeCache.Run(); err != nil {
		t.Fatal(err)
	}
	if recipeCache.GetRecipeCount() != 0 {
		t.Errorf("Expected 0 recipes, got %d", recipeCache.GetRecipeCount())
	}
	if len(recipeCache.Names()) != 0 {
		t.Errorf("Expected no names, got %v", recipeCache.Names())
	}
}

func TestCacheMissingDirectory(t *testing.T) {
	recipeCache := NewCache(filepath.Join(t.TempDir(), "missing"))
	if err := recipeCache.Run(); err != nil {
		t.Errorf("Expected missing directory to be ignored, got: %v", err)
	}
}

func TestCacheIgnoresOtherFiles(t *testing.T) {
	tempDir := t.TempDir()
	writeRecipe(t, tempDir, "README.md", "# recipes")
	writeRecipe(t, tempDir, "one.yml", "urls:\n  - \"https://example.com\"\n")

	recipeCache := NewCache(tempDir)
	if err := recipeCache.Run(); err != nil {
		t.Fatal(err)
	}
	if recipeCache.GetRecipeCount() != 1 {
		t.Errorf("Expected 1 recipe, got %d", recipeCache.GetRecipeCount())
	}
}

func TestCacheReloadRecipe(t *testing.T) {
	tempDir := t.TempDir()
	writeRecipe(t, tempDir, "news.yml", "urls:\n  - \"https://example.com/a\"\n")

	recipeCache := NewCache(tempDir)
	if err := recipeCache.Run(); err != nil {
		t.Fatal(err)
	}

	writeRecipe(t, tempDir, "news.yml", "urls:\n  - \"https://example.com/a\"\n  - \"https://example.com/b\"\n")

	r, err := recipeCache.LoadRecipe("news")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.URLs) != 2 {
		t.Errorf("Expected 2 URLs after reload, got %d", len(r.URLs))
	}

	cached, err := recipeCache.GetRecipe("news")
	if err != nil {
		t.Fatal(err)
	}
	if len(cached.URLs) != 2 {
		t.Errorf("Expected cache to hold reloaded recipe, got %d URLs", len(cached.URLs))
	}

	if _, err := recipeCache.LoadRecipe("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing recipe file, got: %v", err)
	}
}

func TestCacheReloadRemovedRecipe(t *testing.T) {
	tempDir := t.TempDir()
	writeRecipe(t, tempDir, "news.yml", "urls:\n  - \"https://example.com/a\"\n")

	recipeCache := NewCache(tempDir)
	if err := recipeCache.Run(); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(tempDir, "news.yml")); err != nil {
		t.Fatal(err)
	}

	if _, err := recipeCache.LoadRecipe("news"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
	if recipeCache.GetRecipeCount() != 0 {
		t.Errorf("Expected removed recipe to leave the cache, got %d recipes", recipeCache.GetRecipeCount())
	}
}

func TestCacheLoadRecipeRejectsPaths(t *testing.T) {
	tempDir := t.TempDir()
	writeRecipe(t, tempDir, "news.yml", "urls:\n  - \"https://example.com/a\"\n")

	recipeCache := NewCache(filepath.Join(tempDir, "sub"))
	for _, name := range []string{"../news", "..", ".hidden", ""} {
		if _, err := recipeCache.LoadRecipe(name); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for %q, got: %v", name, err)
		}
	}
}

func TestCacheGetRecipes(t *testing.T) {
	tempDir := t.TempDir()
	writeRecipe(t, tempDir, "b.yml", "urls:\n  - \"https://example.com/b\"\n")
	writeRecipe(t, tempDir, "a.yaml", "urls:\n  - \"https://example.com/a\"\n")

	recipeCache := NewCache(tempDir)
	if err := recipeCache.Run(); err != nil {
		t.Fatal(err)
	}

	recipes := recipeCache.GetRecipes()
	if len(recipes) != 2 {
		t.Fatalf("Expected 2 recipes, got %d", len(recipes))
	}

	delete(recipes, "a")
	if recipeCache.GetRecipeCount() != 2 {
		t.Error("Expected GetRecipes to return a copy")
	}

	names := recipeCache.Names()
	if strings.Join(names, ",") != "a,b" {
		t.Errorf("Expected sorted names a,b, got %v", names)
	}
}

func TestCacheGetRecipeNotFound(t *testing.T) {
	if _, err := NewCache(t.TempDir()).GetRecipe("nothing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown recipe, got: %v", err)
	}
}
