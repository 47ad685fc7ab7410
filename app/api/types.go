package api

import (
	"github.com/lysyi3m/feed-cooker/app/cooker"
	"github.com/lysyi3m/feed-cooker/app/recipe"
)

type Handler struct {
	recipes *recipe.Cache
	options cooker.Options
	version string
}
