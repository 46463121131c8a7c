package seo

import "sync"

// Injector tracks the directive last synchronised into a document head and
// turns each navigation into the patch operations that move the head to the
// next state. One Injector per document; safe for concurrent use.
type Injector struct {
	mu   sync.Mutex
	prev Directive
}

// NewInjector starts from an empty head.
func NewInjector() *Injector {
	return &Injector{}
}

// Sync diffs the next directive against the last synchronised one, records
// next as the new head state and returns the operations to replay.
func (i *Injector) Sync(next Directive) []PatchOp {
	i.mu.Lock()
	defer i.mu.Unlock()
	ops := Diff(i.prev, next)
	i.prev = next
	return ops
}

// Reset forgets the recorded head state, as if the document were reloaded.
func (i *Injector) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.prev = Directive{}
}
