// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

// NullBackend is a Backend that performs every operation without touching
// the display — concrete rendering backends (XRender/OpenGL) are out of
// scope; this is the stand-in a caller wires up when no real one is
// available, the same role update_noop.go's build-tag stub plays for the
// update checker.
type NullBackend struct {
	nextHandle ImageHandle
	presents   int
}

// NewNullBackend returns a Backend suitable for running the engine's event
// loop and damage/paint bookkeeping end to end without producing pixels.
func NewNullBackend() *NullBackend { return &NullBackend{} }

// Deinit drops every notional buffer; buffer_age reports -1 ("empty") again
// until the next present.
func (b *NullBackend) Deinit() { b.presents = 0 }

func (b *NullBackend) BindPixmap(Pixmap, uint32, bool) (ImageHandle, error) {
	b.nextHandle++
	return b.nextHandle, nil
}

func (b *NullBackend) RenderShadow(int32, int32, []float64, float64, float64, float64, float64) (ImageHandle, error) {
	b.nextHandle++
	return b.nextHandle, nil
}

func (b *NullBackend) ReleaseImage(ImageHandle) {}

func (b *NullBackend) Copy(img ImageHandle, _ *Region) (ImageHandle, error) {
	b.nextHandle++
	return b.nextHandle, nil
}

func (b *NullBackend) ImageOp(ImageOp, ImageHandle, *Region, *Region, ImageOpArgs) error { return nil }

func (b *NullBackend) Compose(ImageHandle, int32, int32, *Region, *Region) error { return nil }

func (b *NullBackend) Fill(RGBA, *Region) error { return nil }

func (b *NullBackend) Blur(float64, *Region, *Region) error { return nil }

func (b *NullBackend) IsImageTransparent(ImageHandle) (bool, error) { return false, nil }

// BufferAge reports -1 while no buffer has ever
// been presented, >= 1 afterwards, capped at MaxBufferAge once every
// notional buffer has held a frame.
func (b *NullBackend) BufferAge() int {
	if b.presents == 0 {
		return -1
	}
	if b.presents > b.MaxBufferAge() {
		return b.MaxBufferAge()
	}
	return b.presents
}

func (b *NullBackend) MaxBufferAge() int { return 2 }

func (b *NullBackend) Present() error {
	b.presents++
	return nil
}

func (b *NullBackend) Prepare(*Region) {}

func (b *NullBackend) DetectDriver() DriverTag { return DriverUnknown }
