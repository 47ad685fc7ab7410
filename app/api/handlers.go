package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/feed-cooker/app/cooker"
	"github.com/lysyi3m/feed-cooker/app/feed"
	"github.com/lysyi3m/feed-cooker/app/recipe"
)

func NewHandler(recipes *recipe.Cache, options cooker.Options, version string) *Handler {
	return &Handler{
		recipes: recipes,
		options: options,
		version: version,
	}
}

// GetFeed cooks the requested recipe on demand. The extension selects the
// format: .json for JSON Feed, .xml for Atom.
func (h *Handler) GetFeed(c *gin.Context) {
	param := c.Param("name")
	ext := path.Ext(param)
	name := strings.TrimSuffix(param, ext)

	if name == "" || (ext != ".json" && ext != ".xml") {
		c.Status(http.StatusBadRequest)
		return
	}

	// Reread from disk so edited recipes apply without a restart.
	r, err := h.recipes.LoadRecipe(name)
	if errors.Is(err, recipe.ErrNotFound) {
		slog.Error("Recipe not found", "recipe", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to load recipe", "recipe", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	ck, err := cooker.New(h.options, r)
	if err != nil {
		slog.Error("Invalid recipe", "recipe", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	dishes := ck.Run(c.Request.Context())

	var buf bytes.Buffer
	contentType := "application/feed+json; charset=utf-8"
	if ext == ".xml" {
		contentType = "application/atom+xml; charset=utf-8"
		err = feed.WriteAtom(&buf, dishes.Atom)
	} else {
		err = feed.WriteJSON(&buf, dishes.JSON)
	}
	if err != nil {
		slog.Error("Feed generation error", "recipe", name, "format", ext, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("X-Feed-Items", strconv.Itoa(dishes.Stats.Items))
	c.Header("X-Feed-Name", name)
	c.Header("X-Failed-Sources", strconv.Itoa(dishes.Stats.Failed))

	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp":      time.Now().In(time.Local).Format(time.RFC3339),
		"loaded_recipes": h.recipes.GetRecipeCount(),
	})
}

func (h *Handler) GetIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "Feed Cooker",
		"version":     h.version,
		"description": "RSS/Atom/JSON Feed aggregator publishing merged JSON Feed and Atom documents",
		"endpoints": map[string]string{
			"json":   "/feeds/<name>.json",
			"atom":   "/feeds/<name>.xml",
			"health": "/health",
		},
		"recipes": h.recipeSummaries(),
	})
}

func (h *Handler) recipeSummaries() []gin.H {
	recipes := h.recipes.GetRecipes()

	summaries := make([]gin.H, 0, len(recipes))
	for _, name := range h.recipes.Names() {
		r, ok := recipes[name]
		if !ok {
			continue
		}
		summaries = append(summaries, gin.H{
			"name":    name,
			"sources": len(r.URLs),
			"filter":  r.TitlePattern(),
		})
	}
	return summaries
}
