// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

// DamageRing is a bounded ring of accumulated-damage regions. Its size
// equals the backend's reported max_buffer_age:
// on partial-present backends, a frame must repaint everything that
// changed since the buffer now being reused was last shown, which is the
// union of the last `age` ring slots.
type DamageRing struct {
	slots      []*Region
	writeIndex int
	redirected bool
}

// NewDamageRing allocates a ring of n region accumulators. n must be
// >= 1; the redirection controller (re)allocates it whenever redirection
// starts.
func NewDamageRing(n int) *DamageRing {
	if n < 1 {
		n = 1
	}
	slots := make([]*Region, n)
	for i := range slots {
		slots[i] = emptyRegion
	}
	return &DamageRing{slots: slots}
}

// SetRedirected toggles whether AddDamage accepts new damage.
func (d *DamageRing) SetRedirected(v bool) { d.redirected = v }

// AddDamage unions r into the current frame's accumulator. A no-op when
// the screen isn't redirected.
func (d *DamageRing) AddDamage(r *Region) {
	if !d.redirected || r.IsEmpty() {
		return
	}
	d.slots[d.writeIndex] = Union(d.slots[d.writeIndex], r)
}

// Current returns the accumulator for the frame being built.
func (d *DamageRing) Current() *Region {
	return d.slots[d.writeIndex]
}

// Repaint returns the union of the last `age` accumulated buffers — the
// region that must be repainted to bring a buffer of that age back up to
// date. age must be in
// [1, Size()]; for any other value (backend.buffer_age's -1 "empty", or a
// stale age larger than the ring) the caller is responsible for falling
// back to a full-screen repaint, since the ring itself has no notion of
// screen bounds — Repaint returns nil in that case.
func (d *DamageRing) Repaint(age int) *Region {
	if age <= 0 || age > len(d.slots) {
		return nil
	}
	out := emptyRegion
	idx := d.writeIndex
	for i := 0; i < age; i++ {
		out = Union(out, d.slots[idx])
		idx--
		if idx < 0 {
			idx = len(d.slots) - 1
		}
	}
	return out
}

// Advance moves the write index to the next slot, modulo the ring size, and
// clears that slot so it becomes the new frame's accumulator; the slots of
// earlier frames keep their damage for Repaint. Called exactly once per
// successful present.
func (d *DamageRing) Advance() {
	d.writeIndex = (d.writeIndex + 1) % len(d.slots)
	d.slots[d.writeIndex] = emptyRegion
}

// Size returns N, the ring's slot count (== backend max_buffer_age).
func (d *DamageRing) Size() int { return len(d.slots) }
