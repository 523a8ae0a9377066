package main

// fakeBackend is a minimal in-memory Backend used by engine tests. It
// never touches a real display; it just records calls and hands out
// monotonically increasing image handles.
type fakeBackend struct {
	nextHandle ImageHandle
	composed   []composeCall
	released   []ImageHandle
	maxAge     int
	age        int
	failBind   bool
}

type composeCall struct {
	Img        ImageHandle
	X, Y       int32
	PaintEmpty bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{maxAge: 2}
}

func (f *fakeBackend) Deinit() { f.age = 0 }

func (f *fakeBackend) alloc() ImageHandle {
	f.nextHandle++
	return f.nextHandle
}

func (f *fakeBackend) BindPixmap(p Pixmap, visual uint32, owned bool) (ImageHandle, error) {
	if f.failBind {
		return 0, ErrImageFailed
	}
	return f.alloc(), nil
}

func (f *fakeBackend) RenderShadow(w, h int32, kernel []float64, r, g, b, a float64) (ImageHandle, error) {
	return f.alloc(), nil
}

func (f *fakeBackend) ReleaseImage(img ImageHandle) {
	f.released = append(f.released, img)
}

func (f *fakeBackend) Copy(img ImageHandle, visible *Region) (ImageHandle, error) {
	return f.alloc(), nil
}

func (f *fakeBackend) ImageOp(op ImageOp, img ImageHandle, clip, visible *Region, args ImageOpArgs) error {
	return nil
}

func (f *fakeBackend) Compose(img ImageHandle, x, y int32, paint, visible *Region) error {
	f.composed = append(f.composed, composeCall{Img: img, X: x, Y: y, PaintEmpty: paint.IsEmpty()})
	return nil
}

func (f *fakeBackend) Fill(color RGBA, region *Region) error { return nil }

func (f *fakeBackend) Blur(opacity float64, blur, visible *Region) error { return nil }

func (f *fakeBackend) IsImageTransparent(img ImageHandle) (bool, error) { return false, nil }

func (f *fakeBackend) BufferAge() int {
	if f.age == 0 {
		return -1
	}
	if f.age > f.maxAge {
		return f.maxAge
	}
	return f.age
}

func (f *fakeBackend) MaxBufferAge() int { return f.maxAge }

func (f *fakeBackend) Present() error {
	f.age++
	return nil
}

func (f *fakeBackend) Prepare(damage *Region) {}

func (f *fakeBackend) DetectDriver() DriverTag { return DriverUnknown }
