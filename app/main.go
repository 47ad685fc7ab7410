package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lysyi3m/feed-cooker/app/api"
	"github.com/lysyi3m/feed-cooker/app/cfg"
	"github.com/lysyi3m/feed-cooker/app/cooker"
	"github.com/lysyi3m/feed-cooker/app/feed"
	"github.com/lysyi3m/feed-cooker/app/recipe"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting Feed Cooker", "version", appCfg.Version, "repository", appCfg.Repository)

	recipes := recipe.NewCache(appCfg.RecipesDir)
	if err := recipes.Run(); err != nil {
		slog.Error("Failed to load recipes", "dir", appCfg.RecipesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Recipes loaded", "dir", appCfg.RecipesDir, "count", recipes.GetRecipeCount())

	httpClient := &http.Client{Timeout: appCfg.Timeout}
	options := cooker.Options{
		Owner:       appCfg.Owner,
		Repository:  appCfg.Repository,
		Limit:       appCfg.Limit,
		Concurrency: appCfg.Concurrency,
		Fetcher:     feed.NewFetcher(httpClient, appCfg.UserAgent, appCfg.Timeout),
	}

	if appCfg.Serve {
		if err := serve(appCfg, recipes, options); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := cookAll(context.Background(), appCfg, recipes, options); err != nil {
		slog.Error("Cooking failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func cookAll(ctx context.Context, appCfg *cfg.Cfg, recipes *recipe.Cache, options cooker.Options) error {
	names := recipes.Names()
	if appCfg.Recipe != "" {
		names = []string{appCfg.Recipe}
	}

	cookers := make([]*cooker.Cooker, 0, len(names))
	for _, name := range names {
		r, err := recipes.GetRecipe(name)
		if err != nil {
			return err
		}

		ck, err := cooker.New(options, r)
		if err != nil {
			return fmt.Errorf("invalid recipe %s: %w", name, err)
		}
		cookers = append(cookers, ck)
	}

	if err := os.MkdirAll(appCfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, ck := range cookers {
		dishes := ck.Run(ctx)

		if err := writeFile(filepath.Join(appCfg.OutputDir, ck.Name()+".json"), func(f *os.File) error {
			return feed.WriteJSON(f, dishes.JSON)
		}); err != nil {
			return err
		}

		if err := writeFile(filepath.Join(appCfg.OutputDir, ck.Name()+".xml"), func(f *os.File) error {
			return feed.WriteAtom(f, dishes.Atom)
		}); err != nil {
			return err
		}

		slog.Info("Recipe written", "recipe", ck.Name(), "items", dishes.Stats.Items, "failed_sources", dishes.Stats.Failed)
	}

	return nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func serve(appCfg *cfg.Cfg, recipes *recipe.Cache, options cooker.Options) error {
	handler := api.NewHandler(recipes, options, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: serveWriteTimeout(appCfg.Timeout, appCfg.Concurrency, recipes.GetRecipes()),
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	slog.Info("HTTP server stopped")
	return nil
}

// serveWriteTimeout covers the slowest cook of any loaded recipe: one fetch
// timeout per round of concurrent fetches, plus headroom for encoding.
func serveWriteTimeout(fetchTimeout time.Duration, concurrency int, recipes map[string]*recipe.Recipe) time.Duration {
	concurrency = max(concurrency, 1)

	rounds := 1
	for _, r := range recipes {
		rounds = max(rounds, (len(r.URLs)+concurrency-1)/concurrency)
	}

	return time.Duration(rounds)*fetchTimeout + 30*time.Second
}
