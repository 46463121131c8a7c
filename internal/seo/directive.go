// Package seo computes and applies document-head metadata for storefront
// routes. Head state is described by a Directive; moving between two
// directives is expressed as a list of patch operations so the transport
// layer can replay them against any HTML shell.
package seo

import "sort"

// ArticleMeta carries the article-specific head fields. They are emitted
// only while the directive's OGType is "article".
type ArticleMeta struct {
	Author        string `yaml:"author"`
	PublishedTime string `yaml:"publishedTime"`
	ModifiedTime  string `yaml:"modifiedTime"`
	Section       string `yaml:"section"`
}

// ProductMeta carries the product-specific head fields. They are emitted
// only while the directive's OGType is "product".
type ProductMeta struct {
	PriceAmount   string `yaml:"priceAmount"`
	PriceCurrency string `yaml:"priceCurrency"`
	Availability  string `yaml:"availability"`
	Condition     string `yaml:"condition"`
}

// Directive is the desired head state for one route.
type Directive struct {
	Title          string            `yaml:"title"`
	Description    string            `yaml:"description"`
	Keywords       string            `yaml:"keywords"`
	Canonical      string            `yaml:"canonical"`
	Robots         string            `yaml:"robots"`
	OGType         string            `yaml:"ogType"`
	OGImage        string            `yaml:"ogImage"`
	Article        ArticleMeta       `yaml:"article"`
	Product        ProductMeta       `yaml:"product"`
	ArticleTags    []string          `yaml:"articleTags"`
	Hreflang       map[string]string `yaml:"hreflang"`
	StructuredData []string          `yaml:"structuredData"`
}

// OpKind names a patch operation.
type OpKind string

const (
	// OpSet creates or replaces the single element the target names.
	OpSet OpKind = "set"
	// OpRemove deletes every element the target names.
	OpRemove OpKind = "remove"
	// OpAppend adds an element without touching existing ones.
	OpAppend OpKind = "append"
)

// Target names the head element class an operation touches.
type Target string

const (
	// TargetTitle is the document title element.
	TargetTitle Target = "title"
	// TargetMetaName is a meta element addressed by its name attribute.
	TargetMetaName Target = "meta-name"
	// TargetMetaProperty is a meta element addressed by its property attribute.
	TargetMetaProperty Target = "meta-property"
	// TargetCanonical is the rel=canonical link.
	TargetCanonical Target = "link-canonical"
	// TargetHreflang is a rel=alternate link addressed by its hreflang code.
	TargetHreflang Target = "link-hreflang"
	// TargetJSONLD is the application/ld+json script.
	TargetJSONLD Target = "script-jsonld"
)

// PatchOp is one head mutation. Key carries the meta name, meta property or
// hreflang code when the target needs one.
type PatchOp struct {
	Op     OpKind `json:"op"`
	Target Target `json:"target"`
	Key    string `json:"key,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Diff computes the operations that move a head from prev to next. The
// result is deterministic: singleton elements are replaced or removed only
// when they differ, canonical, hreflang and JSON-LD are rebuilt whole, and
// article tags are appended on top of whatever is already present.
func Diff(prev Directive, next Directive) []PatchOp {
	var ops []PatchOp

	if next.Title != prev.Title {
		if next.Title == "" {
			ops = append(ops, PatchOp{Op: OpRemove, Target: TargetTitle})
		} else {
			ops = append(ops, PatchOp{Op: OpSet, Target: TargetTitle, Value: next.Title})
		}
	}

	ops = append(ops, diffMetaName("description", prev.Description, next.Description)...)
	ops = append(ops, diffMetaName("keywords", prev.Keywords, next.Keywords)...)
	ops = append(ops, diffMetaName("robots", prev.Robots, next.Robots)...)

	ops = append(ops, diffMetaProperty("og:title", prev.Title, next.Title)...)
	ops = append(ops, diffMetaProperty("og:description", prev.Description, next.Description)...)
	ops = append(ops, diffMetaProperty("og:type", prev.OGType, next.OGType)...)
	ops = append(ops, diffMetaProperty("og:image", prev.OGImage, next.OGImage)...)

	ops = append(ops, diffMetaName("twitter:card", twitterCard(prev), twitterCard(next))...)
	ops = append(ops, diffMetaName("twitter:title", prev.Title, next.Title)...)
	ops = append(ops, diffMetaName("twitter:description", prev.Description, next.Description)...)
	ops = append(ops, diffMetaName("twitter:image", prev.OGImage, next.OGImage)...)

	prevArticle := articleMetaFor(prev)
	nextArticle := articleMetaFor(next)
	ops = append(ops, diffMetaProperty("article:author", prevArticle.Author, nextArticle.Author)...)
	ops = append(ops, diffMetaProperty("article:published_time", prevArticle.PublishedTime, nextArticle.PublishedTime)...)
	ops = append(ops, diffMetaProperty("article:modified_time", prevArticle.ModifiedTime, nextArticle.ModifiedTime)...)
	ops = append(ops, diffMetaProperty("article:section", prevArticle.Section, nextArticle.Section)...)

	prevProduct := productMetaFor(prev)
	nextProduct := productMetaFor(next)
	ops = append(ops, diffMetaProperty("product:price:amount", prevProduct.PriceAmount, nextProduct.PriceAmount)...)
	ops = append(ops, diffMetaProperty("product:price:currency", prevProduct.PriceCurrency, nextProduct.PriceCurrency)...)
	ops = append(ops, diffMetaProperty("product:availability", prevProduct.Availability, nextProduct.Availability)...)
	ops = append(ops, diffMetaProperty("product:condition", prevProduct.Condition, nextProduct.Condition)...)

	if prev.Canonical != next.Canonical {
		ops = append(ops, PatchOp{Op: OpRemove, Target: TargetCanonical})
		if next.Canonical != "" {
			ops = append(ops, PatchOp{Op: OpSet, Target: TargetCanonical, Value: next.Canonical})
		}
	}

	if !hreflangEqual(prev.Hreflang, next.Hreflang) {
		ops = append(ops, PatchOp{Op: OpRemove, Target: TargetHreflang})
		for _, lang := range sortedKeys(next.Hreflang) {
			ops = append(ops, PatchOp{Op: OpSet, Target: TargetHreflang, Key: lang, Value: next.Hreflang[lang]})
		}
	}

	// Every JSON-LD block is dropped and the next directive's list inserted
	// whole, one script element per entry.
	if !stringsEqual(prev.StructuredData, next.StructuredData) {
		ops = append(ops, PatchOp{Op: OpRemove, Target: TargetJSONLD})
		for _, payload := range next.StructuredData {
			if payload == "" {
				continue
			}
			ops = append(ops, PatchOp{Op: OpAppend, Target: TargetJSONLD, Value: payload})
		}
	}

	// Article tags accumulate: existing tags are never removed or
	// deduplicated, matching how the storefront has always behaved.
	if next.OGType == "article" {
		for _, tag := range next.ArticleTags {
			if tag == "" {
				continue
			}
			ops = append(ops, PatchOp{Op: OpAppend, Target: TargetMetaProperty, Key: "article:tag", Value: tag})
		}
	}

	return ops
}

// twitterCard picks the card flavour from the directive shape. Directives
// with nothing to preview carry no card at all.
func twitterCard(d Directive) string {
	if d.Title == "" && d.Description == "" && d.OGImage == "" {
		return ""
	}
	if d.OGImage != "" {
		return "summary_large_image"
	}
	return "summary"
}

func articleMetaFor(d Directive) ArticleMeta {
	if d.OGType != "article" {
		return ArticleMeta{}
	}
	return d.Article
}

func productMetaFor(d Directive) ProductMeta {
	if d.OGType != "product" {
		return ProductMeta{}
	}
	return d.Product
}

func diffMetaName(name string, prev string, next string) []PatchOp {
	if prev == next {
		return nil
	}
	if next == "" {
		return []PatchOp{{Op: OpRemove, Target: TargetMetaName, Key: name}}
	}
	return []PatchOp{{Op: OpSet, Target: TargetMetaName, Key: name, Value: next}}
}

func diffMetaProperty(property string, prev string, next string) []PatchOp {
	if prev == next {
		return nil
	}
	if next == "" {
		return []PatchOp{{Op: OpRemove, Target: TargetMetaProperty, Key: property}}
	}
	return []PatchOp{{Op: OpSet, Target: TargetMetaProperty, Key: property, Value: next}}
}

func hreflangEqual(a map[string]string, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for lang, url := range a {
		if b[lang] != url {
			return false
		}
	}
	return true
}

func stringsEqual(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
