// Package cache implements the Block Cache: a PC-keyed store of translated
// blocks with an at-most-once-per-PC compilation guarantee and pointer
// stability across repeated lookups (spec.md §4.5).
//
// Writes to guest memory never evict a cached block: once a PC has been
// translated, later changes to the bytes it was translated from are not
// seen by that block.
package cache

import (
	"sync"

	"github.com/kessler-rip8/rip8/internal/emitter"
	"github.com/kessler-rip8/rip8/internal/translator"
)

// Block is one translated, installed run of host code plus the origin PC
// it was compiled from.
type Block struct {
	Origin uint16
	Page   *emitter.Page
}

// Cache owns every Block it hands out; releasing it releases their
// executable mappings (spec.md §5's "the Block Cache owns all W^X
// mappings; releasing the Cache releases them").
//
// The reference Run Loop is single-threaded (spec.md §5), so the mutex
// below exists to make the at-most-once-per-PC guarantee hold even under a
// future multithreaded driver, not because the reference design needs it.
type Cache struct {
	mu     sync.Mutex
	blocks map[uint16]*Block
	tr     *translator.Translator
}

// New returns an empty Cache compiling blocks via tr.
func New(tr *translator.Translator) *Cache {
	return &Cache{
		blocks: make(map[uint16]*Block),
		tr:     tr,
	}
}

// GetOrCompile returns the Block rooted at pc, translating and installing
// it on first request and returning the same *Block on every subsequent
// request for the same pc.
func (c *Cache) GetOrCompile(pc uint16) (*Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.blocks[pc]; ok {
		return b, nil
	}

	code, _, err := c.tr.Translate(pc)
	if err != nil {
		return nil, err
	}

	page, err := emitter.Install(code)
	if err != nil {
		return nil, err
	}

	b := &Block{Origin: pc, Page: page}
	c.blocks[pc] = b
	return b, nil
}

// Len reports how many distinct PCs have been compiled so far.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blocks)
}

// Release unmaps every installed block's executable pages. Only safe once
// nothing can call into a cached block again.
func (c *Cache) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for pc, b := range c.blocks {
		if err := b.Page.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.blocks, pc)
	}
	return firstErr
}
