// Package assets rewrites build artefacts that must carry deploy-time
// values, currently the social-preview image references in the HTML shell.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// metaImageCandidates is the lookup order for the social preview image.
// The first file that exists wins.
var metaImageCandidates = []string{"opengraph.png", "opengraph.jpg", "opengraph.jpeg"}

var (
	socialMetaTagPattern = regexp.MustCompile(`<meta[^>]*(?:property="og:image"|name="twitter:image")[^>]*>`)
	contentAttrPattern   = regexp.MustCompile(`content="[^"]*"`)
)

// FindMetaImage returns the social preview image filename present in dir,
// checking candidates in priority order.
func FindMetaImage(dir string) (string, bool) {
	for _, name := range metaImageCandidates {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && !info.IsDir() {
			return name, true
		}
	}
	return "", false
}

// RewriteMetaImage replaces the content attribute of every og:image and
// twitter:image meta tag with imageURL, leaving the rest of the document
// byte for byte intact. It returns the rewritten document and the number
// of tags touched.
func RewriteMetaImage(doc []byte, imageURL string) ([]byte, int) {
	replaced := 0
	out := socialMetaTagPattern.ReplaceAllFunc(doc, func(tag []byte) []byte {
		if !contentAttrPattern.Match(tag) {
			return tag
		}
		replaced++
		return contentAttrPattern.ReplaceAll(tag, []byte(`content="`+imageURL+`"`))
	})
	return out, replaced
}

// RewriteFile applies RewriteMetaImage to the file at path in place. It
// returns the number of tags touched.
func RewriteFile(path string, imageURL string) (int, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("assets: read %s: %w", path, err)
	}
	out, replaced := RewriteMetaImage(doc, imageURL)
	if replaced == 0 {
		return 0, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("assets: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("assets: write %s: %w", path, err)
	}
	return replaced, nil
}
