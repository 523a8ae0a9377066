// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// ImageHandle is an opaque backend-owned image reference.
// The zero value denotes "no image".
type ImageHandle uint64

// Pixmap is an opaque X pixmap id, owned either by the X server or
// transferred to the backend via BindPixmap's `owned` flag.
type Pixmap uint32

// DriverTag is the workaround-selection tag backend.detect_driver returns.
type DriverTag int

const (
	DriverUnknown DriverTag = iota
	DriverNvidia
	DriverMesa
	DriverAmdgpuPro
)

// Backend is the rendering abstraction boundary. Concrete rendering
// backends (XRender/OpenGL) are out of scope; only this
// capability surface, and the null/fake implementations used by tests, live
// in this module.
type Backend interface {
	Deinit()

	BindPixmap(p Pixmap, visual uint32, owned bool) (ImageHandle, error)
	RenderShadow(w, h int32, kernel []float64, r, g, b, a float64) (ImageHandle, error)
	ReleaseImage(img ImageHandle)
	Copy(img ImageHandle, visible *Region) (ImageHandle, error)
	ImageOp(op ImageOp, img ImageHandle, clip, visible *Region, args ImageOpArgs) error
	Compose(img ImageHandle, dstX, dstY int32, paint, visible *Region) error
	Fill(color RGBA, region *Region) error
	Blur(opacity float64, blur, visible *Region) error
	IsImageTransparent(img ImageHandle) (bool, error)

	BufferAge() int
	MaxBufferAge() int
	Present() error
	Prepare(damage *Region)

	DetectDriver() DriverTag
}

// RootChanger is implemented by backends that can adapt in place to a root
// size change (root ConfigureNotify handling). A backend that doesn't
// implement it is left in place: the root ConfigureNotify handler only logs
// that the backend cannot adapt, and the backend is not reinitialized.
type RootChanger interface {
	RootChange(rootW, rootH int32) error
}

// RGBA is a backend-agnostic color, used by Fill and shadow color args.
type RGBA struct{ R, G, B, A float64 }

// ImageOpArgs carries the per-op parameters for Backend.ImageOp.
type ImageOpArgs struct {
	DimOpacity   float64 // OpDimAll / OpApplyAlpha*
	ResizeW      int32
	ResizeH      int32
}

// ErrImageFailed is returned (or wrapped) by any Backend op that fails in a
// way that must mark the window IMAGE_ERROR rather than
// abort the engine.
var ErrImageFailed = fmt.Errorf("backend: image operation failed")

// shadowKey identifies a cacheable render_shadow result. Distinct windows
// with identical (size, radius-derived kernel identity, color) routinely
// request the same shadow; caching by that key avoids re-running the
// convolution for each of them.
type shadowKey struct {
	w, h    int32
	kernLen int
	r, g, b, a float64
}

// ShadowCache memoizes Backend.RenderShadow results.
type ShadowCache struct {
	backend Backend
	cache   *lru.Cache
}

// NewShadowCache builds a shadow cache bounded to size entries. The
// eviction callback releases the backend image, so a handle pushed out by
// the LRU bound is freed instead of leaking.
func NewShadowCache(backend Backend, size int) (*ShadowCache, error) {
	c, err := lru.NewWithEvict(size, func(_, v interface{}) {
		backend.ReleaseImage(v.(ImageHandle))
	})
	if err != nil {
		return nil, err
	}
	return &ShadowCache{backend: backend, cache: c}, nil
}

// Get returns a cached shadow image for the given parameters, rendering and
// caching one if absent. The returned handle must not be released directly
// by the caller; it is owned by the cache and released via Purge/Evict.
func (s *ShadowCache) Get(w, h int32, kernel []float64, r, g, b, a float64) (ImageHandle, error) {
	key := shadowKey{w: w, h: h, kernLen: len(kernel), r: r, g: g, b: b, a: a}
	if v, ok := s.cache.Get(key); ok {
		return v.(ImageHandle), nil
	}
	img, err := s.backend.RenderShadow(w, h, kernel, r, g, b, a)
	if err != nil {
		return 0, err
	}
	s.cache.Add(key, img)
	return img, nil
}

// Purge empties the cache on backend teardown when redirection stops; the
// eviction callback releases each image exactly once.
func (s *ShadowCache) Purge() {
	s.cache.Purge()
}
