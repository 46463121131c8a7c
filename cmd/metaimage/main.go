// Command metaimage pins the social-preview image of a built storefront
// bundle. It looks for an opengraph image in the public directory and
// rewrites the og:image and twitter:image tags of the HTML shell to point
// at it.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/webmuhendisi/velopix/internal/assets"
	"github.com/webmuhendisi/velopix/internal/platform/observability"
)

func main() {
	publicDir := flag.String("public", "public", "directory holding the opengraph image")
	htmlPath := flag.String("html", "public/index.html", "HTML shell to rewrite")
	baseURL := flag.String("base-url", "", "absolute URL prefix for the image reference (falls back to PUBLIC_BASE_URL)")
	flag.Parse()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Named("metaimage")

	base := resolveBaseURL(*baseURL, os.Getenv)
	if base == "" {
		log.Info("no base url configured; leaving shell untouched")
		return
	}

	name, ok := assets.FindMetaImage(*publicDir)
	if !ok {
		log.Info("no opengraph image found; leaving shell untouched",
			zap.String("dir", *publicDir))
		return
	}

	imageURL := base + "/" + name
	replaced, err := assets.RewriteFile(*htmlPath, imageURL)
	if err != nil {
		log.Fatal("rewrite failed", zap.Error(err))
	}
	log.Info("meta image pinned",
		zap.String("image", filepath.Base(name)),
		zap.String("url", imageURL),
		zap.Int("tags", replaced))
}

// resolveBaseURL prefers the flag over the PUBLIC_BASE_URL environment
// variable. An empty result means the rewrite degrades to a no-op.
func resolveBaseURL(flagValue string, getenv func(string) string) string {
	base := strings.TrimSpace(flagValue)
	if base == "" {
		base = strings.TrimSpace(getenv("PUBLIC_BASE_URL"))
	}
	return strings.TrimRight(base, "/")
}
