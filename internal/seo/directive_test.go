package seo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffEmitsNothingForIdenticalDirectives(t *testing.T) {
	directive := Directive{
		Title:       "Ürünler | Velopix",
		Description: "Tüm ürünler",
		Canonical:   "https://velopix.example/urunler",
	}
	assert.Empty(t, Diff(directive, directive))
}

func TestDiffReplacesTitleAndOpenGraphTitle(t *testing.T) {
	prev := Directive{Title: "Anasayfa | Velopix"}
	next := Directive{Title: "Ürünler | Velopix"}

	ops := Diff(prev, next)
	assert.Contains(t, ops, PatchOp{Op: OpSet, Target: TargetTitle, Value: "Ürünler | Velopix"})
	assert.Contains(t, ops, PatchOp{Op: OpSet, Target: TargetMetaProperty, Key: "og:title", Value: "Ürünler | Velopix"})
}

func TestDiffRebuildsCanonicalWhole(t *testing.T) {
	prev := Directive{Canonical: "https://velopix.example/"}
	next := Directive{Canonical: "https://velopix.example/urunler"}

	ops := Diff(prev, next)
	assert.Equal(t, []PatchOp{
		{Op: OpRemove, Target: TargetCanonical},
		{Op: OpSet, Target: TargetCanonical, Value: "https://velopix.example/urunler"},
	}, ops)
}

func TestDiffRemovesClearedDescription(t *testing.T) {
	prev := Directive{Description: "Eski açıklama"}
	next := Directive{}

	ops := Diff(prev, next)
	assert.Contains(t, ops, PatchOp{Op: OpRemove, Target: TargetMetaName, Key: "description"})
	assert.Contains(t, ops, PatchOp{Op: OpRemove, Target: TargetMetaProperty, Key: "og:description"})
}

func TestDiffMirrorsOGImageToTwitterCard(t *testing.T) {
	ops := Diff(Directive{}, Directive{OGImage: "https://cdn.velopix.example/og.png"})
	assert.Contains(t, ops, PatchOp{Op: OpSet, Target: TargetMetaProperty, Key: "og:image", Value: "https://cdn.velopix.example/og.png"})
	assert.Contains(t, ops, PatchOp{Op: OpSet, Target: TargetMetaName, Key: "twitter:image", Value: "https://cdn.velopix.example/og.png"})
}

func TestDiffAppendsArticleTagsWithoutDedup(t *testing.T) {
	prev := Directive{OGType: "article", ArticleTags: []string{"akilli-ev"}}
	next := Directive{OGType: "article", ArticleTags: []string{"akilli-ev", "kurulum"}}

	ops := Diff(prev, next)

	var appends []PatchOp
	for _, op := range ops {
		if op.Op == OpAppend {
			appends = append(appends, op)
		}
	}
	// Every tag on the next directive is appended, including ones already
	// present, so tags accumulate across navigations.
	assert.Equal(t, []PatchOp{
		{Op: OpAppend, Target: TargetMetaProperty, Key: "article:tag", Value: "akilli-ev"},
		{Op: OpAppend, Target: TargetMetaProperty, Key: "article:tag", Value: "kurulum"},
	}, appends)
}

func TestDiffRebuildsHreflangSet(t *testing.T) {
	prev := Directive{Hreflang: map[string]string{"tr": "https://velopix.example/"}}
	next := Directive{Hreflang: map[string]string{
		"tr": "https://velopix.example/",
		"en": "https://velopix.example/en/",
	}}

	ops := Diff(prev, next)
	assert.Equal(t, []PatchOp{
		{Op: OpRemove, Target: TargetHreflang},
		{Op: OpSet, Target: TargetHreflang, Key: "en", Value: "https://velopix.example/en/"},
		{Op: OpSet, Target: TargetHreflang, Key: "tr", Value: "https://velopix.example/"},
	}, ops)
}

func TestDiffReplacesStructuredData(t *testing.T) {
	prev := Directive{StructuredData: []string{`{"@type":"WebSite"}`}}
	next := Directive{StructuredData: []string{`{"@type":"Product"}`, `{"@type":"BreadcrumbList"}`}}

	ops := Diff(prev, next)
	assert.Equal(t, []PatchOp{
		{Op: OpRemove, Target: TargetJSONLD},
		{Op: OpAppend, Target: TargetJSONLD, Value: `{"@type":"Product"}`},
		{Op: OpAppend, Target: TargetJSONLD, Value: `{"@type":"BreadcrumbList"}`},
	}, ops)
}

func TestDiffEmitsEveryContractedHeadTag(t *testing.T) {
	next := Directive{
		Title:       "Akıllı Priz",
		Description: "Uzaktan kontrol edilebilir akıllı priz",
		Keywords:    "akıllı priz, akıllı ev",
		Canonical:   "https://velopix.example/urunler/akilli-priz",
		Robots:      "index,follow",
		OGType:      "product",
		OGImage:     "https://cdn.velopix.example/akilli-priz.png",
		Product: ProductMeta{
			PriceAmount:   "4295.00",
			PriceCurrency: "TRY",
			Availability:  "instock",
			Condition:     "new",
		},
		Hreflang:       map[string]string{"tr": "https://velopix.example/urunler/akilli-priz"},
		StructuredData: []string{`{"@type":"Product"}`},
	}

	seen := map[string]bool{}
	for _, op := range Diff(Directive{}, next) {
		seen[string(op.Target)+"/"+op.Key] = true
	}

	for _, want := range []string{
		"meta-name/description",
		"meta-name/keywords",
		"meta-name/robots",
		"meta-name/twitter:card",
		"meta-name/twitter:title",
		"meta-name/twitter:description",
		"meta-name/twitter:image",
		"meta-property/og:title",
		"meta-property/og:description",
		"meta-property/og:type",
		"meta-property/og:image",
		"meta-property/product:price:amount",
		"meta-property/product:price:currency",
		"meta-property/product:availability",
		"meta-property/product:condition",
	} {
		assert.True(t, seen[want], "missing head tag %s", want)
	}
}

func TestDiffEmitsArticleFieldsOnlyForArticles(t *testing.T) {
	article := ArticleMeta{
		Author:        "Deniz Aksoy",
		PublishedTime: "2025-03-14T09:30:00Z",
		ModifiedTime:  "2025-03-15T10:00:00Z",
		Section:       "Blog",
	}

	ops := Diff(Directive{}, Directive{OGType: "article", Article: article})
	assert.Contains(t, ops, PatchOp{Op: OpSet, Target: TargetMetaProperty, Key: "article:author", Value: "Deniz Aksoy"})
	assert.Contains(t, ops, PatchOp{Op: OpSet, Target: TargetMetaProperty, Key: "article:published_time", Value: "2025-03-14T09:30:00Z"})
	assert.Contains(t, ops, PatchOp{Op: OpSet, Target: TargetMetaProperty, Key: "article:modified_time", Value: "2025-03-15T10:00:00Z"})
	assert.Contains(t, ops, PatchOp{Op: OpSet, Target: TargetMetaProperty, Key: "article:section", Value: "Blog"})

	// Leaving the article type clears the conditional block even when the
	// struct still carries values.
	ops = Diff(Directive{OGType: "article", Article: article}, Directive{OGType: "website", Article: article})
	assert.Contains(t, ops, PatchOp{Op: OpRemove, Target: TargetMetaProperty, Key: "article:author"})
	assert.Contains(t, ops, PatchOp{Op: OpRemove, Target: TargetMetaProperty, Key: "article:section"})
}
