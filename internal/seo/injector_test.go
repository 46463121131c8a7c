package seo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInjectorSyncEmitsOnlyTheNavigationDelta(t *testing.T) {
	injector := NewInjector()

	first := injector.Sync(Directive{Title: "Anasayfa", Description: "Velopix anasayfa"})
	assert.Contains(t, first, PatchOp{Op: OpSet, Target: TargetTitle, Value: "Anasayfa"})

	// Only the title changed; the description must not be re-emitted.
	second := injector.Sync(Directive{Title: "Ürünler", Description: "Velopix anasayfa"})
	assert.Contains(t, second, PatchOp{Op: OpSet, Target: TargetTitle, Value: "Ürünler"})
	for _, op := range second {
		assert.NotEqual(t, "description", op.Key, "unchanged description re-emitted")
	}
}

func TestInjectorSyncClearsStaleTagsAcrossShapes(t *testing.T) {
	injector := NewInjector()
	injector.Sync(Directive{
		OGType:  "product",
		Title:   "Akıllı Priz",
		Product: ProductMeta{PriceAmount: "4295.00", PriceCurrency: "TRY"},
	})

	ops := injector.Sync(Directive{OGType: "website", Title: "Anasayfa"})
	assert.Contains(t, ops, PatchOp{Op: OpRemove, Target: TargetMetaProperty, Key: "product:price:amount"})
	assert.Contains(t, ops, PatchOp{Op: OpRemove, Target: TargetMetaProperty, Key: "product:price:currency"})
}

func TestInjectorResetForgetsRecordedState(t *testing.T) {
	injector := NewInjector()
	directive := Directive{Title: "Anasayfa"}

	injector.Sync(directive)
	assert.Empty(t, injector.Sync(directive))

	injector.Reset()
	assert.NotEmpty(t, injector.Sync(directive))
}
