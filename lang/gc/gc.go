// Package gc implements the allocator and collector described by the
// language's memory model: fixed-size slabs threaded by a free list, a
// gray-stack mark phase seeded from caller-supplied roots, a two-pass sweep
// that defers callable/string finalization, and a simple generational
// promotion scheme. The host language (Go) already garbage collects the
// underlying memory for every value; this package reproduces the *policy*
// (when a collection runs, what counts as a root, how slots are reused, how
// --stress-gc and --profile-gc behave) as an explicit, inspectable layer on
// top of Go's allocator, the way the language's own VM would if it managed
// memory itself.
package gc

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// Kind tags the object kinds the collector's blacken/finalize phases
// special-case, mirroring the heap object type tag spec.md's data model
// requires every object to carry.
type Kind int

const (
	KindString Kind = iota
	KindArray
	KindMap
	KindInstance
	KindClass
	KindModule
	KindFunction
	KindClosure
	KindUpvalue
	KindBoundMethod
	KindNative
	KindInternal
	KindRegex
	KindScope
)

// SlabSize is the fixed number of slots per slab, an implementation
// constant.
const SlabSize = 10_000

// recoveredFloor is the minimum number of slots a collection must recover
// before the heap is considered healthy; fewer than this and the heap grows
// anyway rather than immediately re-collecting.
const recoveredFloor = 500

// StressMode selects which generation(s) --stress-gc forces a collection of
// before every allocation.
type StressMode int

const (
	StressNone StressMode = iota
	StressYoung
	StressFull
	StressBoth
)

// ParseStressMode parses the --stress-gc flag's string value.
func ParseStressMode(s string) (StressMode, error) {
	switch s {
	case "", "none":
		return StressNone, nil
	case "young":
		return StressYoung, nil
	case "full":
		return StressFull, nil
	case "both":
		return StressBoth, nil
	}
	return StressNone, fmt.Errorf("gc: invalid stress mode %q", s)
}

// Config controls a Collector's behavior, set once at thread/program start.
type Config struct {
	// Disabled turns the collector into a pure allocator: slabs still grow as
	// needed but Collect is a no-op.
	Disabled bool
	// Stress forces a collection of the named generation(s) before every
	// allocation, for shaking out GC-related bugs.
	Stress StressMode
	// GrowFactor scales bytesAllocated into the next collection threshold.
	GrowFactor float64
	// YoungMax is the generation count at/under which an object is still
	// eligible for a young-only collection.
	YoungMax int
	// Profile, if non-nil, receives one human-readable line per collection
	// (live object count, objects freed, slab count). Pause duration is not
	// measured.
	Profile io.Writer
}

// DefaultConfig returns the collector's out-of-the-box tuning.
func DefaultConfig() Config {
	return Config{GrowFactor: 2.0, YoungMax: 6}
}

// Object is anything the collector can track: every heap value the VM
// allocates implements this by reporting its Kind and, when asked, its
// direct outgoing references (its "blacken" step).
type Object interface {
	GCKind() Kind
	// GCRefs appends every Object this object directly references to refs
	// and returns the extended slice, matching the blacken rules per kind
	// (Array: elements; Map: keys and values; Instance: class + fields;
	// Class: superclass + methods + field defaults; etc).
	GCRefs(refs []Object) []Object
}

// header is the free-list node threaded through an unused slot.
type header struct {
	obj  Object // nil when free
	mark bool
	pin  bool
	gen  int
	next int // index of next free slot in this slab, or -1
}

type slab struct {
	slots []header
}

// Collector implements the slab allocator and mark-sweep collector.
// Collector itself does not hold the actual Go-allocated object (the caller
// owns that); it only tracks its Object handle, for when slots need to be
// identified during sweep, and calls the caller's finalize hook.
type Collector struct {
	cfg Config

	slabs     []*slab
	freeHead  int // (slabIndex<<32 | slotIndex), or -1
	live      int
	allocated uint64 // cumulative bytes "allocated" (1 unit per object, for thresholding)
	threshold uint64

	// Finalize is called once per swept, unmarked, unpinned object, honoring
	// the two-pass rule: pass1 excludes Kind == KindFunction/KindNative/
	// KindInternal/KindString, pass2 runs only on those.
	Finalize func(Object)

	stats Stats
}

// Stats accumulates across the Collector's lifetime, surfaced by
// --profile-gc.
type Stats struct {
	Collections   int
	ObjectsLive   int
	ObjectsFreed  int
	SlabsAllocated int
}

// New returns a Collector ready to allocate, honoring cfg (zero value is a
// usable, un-stressed, enabled collector with DefaultConfig's tuning applied
// for any zero field).
func New(cfg Config) *Collector {
	if cfg.GrowFactor == 0 {
		cfg.GrowFactor = DefaultConfig().GrowFactor
	}
	if cfg.YoungMax == 0 {
		cfg.YoungMax = DefaultConfig().YoungMax
	}
	c := &Collector{cfg: cfg, freeHead: -1, threshold: SlabSize}
	return c
}

func slotRef(slabIx, slotIx int) int { return slabIx<<32 | slotIx }
func splitRef(ref int) (slabIx, slotIx int) {
	return ref >> 32, ref & 0xffffffff
}

func (c *Collector) newSlab() {
	s := &slab{slots: make([]header, SlabSize)}
	slabIx := len(c.slabs)
	for i := range s.slots {
		next := -1
		if i+1 < SlabSize {
			next = slotRef(slabIx, i+1)
		}
		s.slots[i] = header{next: next}
	}
	if len(c.slabs) > 0 {
		// splice this slab's slots onto the front of the existing free list
		s.slots[SlabSize-1].next = c.freeHead
	}
	c.slabs = append(c.slabs, s)
	c.freeHead = slotRef(slabIx, 0)
	c.stats.SlabsAllocated++
}

// Alloc records a new live object in a free slot; sweep returns the slot to
// the free list once the object is found unreachable. It does not perform a
// collection itself; call MaybeCollect first if the caller wants allocation
// to trigger one.
func (c *Collector) Alloc(obj Object) {
	if c.freeHead == -1 {
		c.newSlab()
	}
	slabIx, slotIx := splitRef(c.freeHead)
	h := &c.slabs[slabIx].slots[slotIx]
	c.freeHead = h.next
	h.obj = obj
	h.mark = false
	h.gen = 0
	c.live++
	c.allocated++
}

// MaybeCollect triggers a collection if the configured stress mode demands
// one, or if bytesAllocated has crossed the threshold. roots is the current
// gray-stack seed (every live reference reachable from outside the heap:
// operand stacks, call frames, globals, etc).
func (c *Collector) MaybeCollect(roots []Object) {
	if c.cfg.Disabled {
		return
	}
	switch c.cfg.Stress {
	case StressYoung:
		c.collect(roots, true)
		return
	case StressFull, StressBoth:
		c.collect(roots, false)
		return
	}
	if c.allocated >= c.threshold {
		c.collect(roots, false)
	}
}

// Collect forces a full collection regardless of threshold or stress
// configuration, used by an explicit GC trigger (e.g. a debug command).
func (c *Collector) Collect(roots []Object) {
	if c.cfg.Disabled {
		return
	}
	c.collect(roots, false)
}

func (c *Collector) collect(roots []Object, youngOnly bool) {
	c.mark(roots)
	freed := c.sweep(youngOnly)
	if freed < recoveredFloor {
		// a collection that didn't recover much risks re-triggering almost
		// immediately; grow the heap now instead.
		c.newSlab()
	}
	c.stats.Collections++
	c.stats.ObjectsFreed += freed
	c.stats.ObjectsLive = c.live
	c.allocated = 0
	c.threshold = uint64(float64(c.live+1) * c.cfg.GrowFactor)
	if c.threshold < SlabSize {
		c.threshold = SlabSize
	}
	if c.cfg.Profile != nil {
		fmt.Fprintf(c.cfg.Profile, "[gc] collected, %s live, %d freed, %d slab(s)\n",
			humanize.Comma(int64(c.live)), freed, len(c.slabs))
	}
}

// mark runs the gray-stack algorithm: pop a root, mark it dark if not
// already, bump its generation, and push its direct references.
func (c *Collector) mark(roots []Object) {
	gray := append([]Object(nil), roots...)
	seen := make(map[Object]bool, len(roots)*2)
	for len(gray) > 0 {
		n := len(gray) - 1
		obj := gray[n]
		gray = gray[:n]
		if obj == nil || seen[obj] {
			continue
		}
		seen[obj] = true
		h := c.headerFor(obj)
		if h != nil {
			h.mark = true
			if h.gen <= c.cfg.YoungMax {
				h.gen++
			}
		}
		gray = obj.GCRefs(gray)
	}
}

// headerFor finds the slab slot holding obj with a linear scan. A production
// slab allocator would have obj carry its own slot reference to make this
// O(1); the scan is an accepted simplification that keeps the Object
// interface free of collector-internal bookkeeping.
func (c *Collector) headerFor(obj Object) *header {
	for _, s := range c.slabs {
		for i := range s.slots {
			if s.slots[i].obj == obj {
				return &s.slots[i]
			}
		}
	}
	return nil
}

// sweep reclaims every unmarked, unpinned slot. It runs in two passes: pass
// one finalizes every kind except String/Function/Native/Internal (which may
// be referenced by another kind's finalizer), pass two finalizes those
// deferred kinds. youngOnly restricts sweeping to objects at or under
// YoungMax generations (a collectYoung pass); older survivors are left
// untouched (but were still marked, so their liveness stays accurate).
func (c *Collector) sweep(youngOnly bool) int {
	freed := 0
	var deferred []*header
	for _, s := range c.slabs {
		for i := range s.slots {
			h := &s.slots[i]
			if h.obj == nil {
				continue
			}
			if h.mark {
				h.mark = false
				continue
			}
			if h.pin {
				continue
			}
			if youngOnly && h.gen > c.cfg.YoungMax {
				continue
			}
			switch h.obj.GCKind() {
			case KindString, KindFunction, KindNative, KindInternal:
				deferred = append(deferred, h)
			default:
				c.finalizeSlot(h)
				freed++
			}
		}
	}
	for _, h := range deferred {
		c.finalizeSlot(h)
		freed++
	}
	return freed
}

func (c *Collector) finalizeSlot(h *header) {
	if c.Finalize != nil {
		c.Finalize(h.obj)
	}
	h.obj = nil
	c.live--
}

// Pin marks obj as not-GC (hideFromGC); Unpin reverses it.
func (c *Collector) Pin(obj Object)   { c.setPin(obj, true) }
func (c *Collector) Unpin(obj Object) { c.setPin(obj, false) }

func (c *Collector) setPin(obj Object, v bool) {
	if h := c.headerFor(obj); h != nil {
		h.pin = v
	}
}

// Stats returns a snapshot of the collector's running totals.
func (c *Collector) Stats() Stats { return c.stats }
