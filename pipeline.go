// This file is part of the program "xcompositor".
// Please see the LICENSE file for copyright information.

package main

// Paint renders one frame: given the bottom-most window of the paint
// sub-stack (walked upward via prevTrans), the frame's damage region D, and
// the root tile pixmap image, issue backend ops strictly bottom-to-top.
// The damage carried over from previous buffers is already folded into
// the damage region by the ring's Repaint, so one clipped region drives
// the whole pass, matching compton's own single-pass painter.
func (s *Session) Paint(t *Window, damage *Region, rootTile ImageHandle) error {
	d := Intersect(damage, s.ScreenRegion)

	rootPaint := d
	if t != nil && t.regIgnore != nil {
		rootPaint = Subtract(d, t.regIgnore)
	}
	if rootTile != 0 && !rootPaint.IsEmpty() {
		if err := s.Backend.Compose(rootTile, 0, 0, rootPaint, rootPaint); err != nil {
			return err
		}
	}

	for w := t; w != nil; w = w.prevTrans {
		if err := s.paintShadow(w, d); err != nil {
			return err
		}
		if err := s.paintBody(w, d); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) paintShadow(w *Window, d *Region) error {
	if !w.Shadow || w.shadowImage == 0 {
		return nil
	}
	reg := Intersect(d, NewRegionFromRect(w.extents()))
	reg = Subtract(reg, w.regIgnore)
	reg = Subtract(reg, s.ShadowExcludeRegion)
	if w.Mode != ModeSolid {
		reg = Subtract(reg, w.rootBoundingShape())
	}
	if len(s.XineramaScreens) > 0 {
		reg = Intersect(reg, unionAll(s.XineramaScreens))
	}
	if reg.IsEmpty() {
		return nil
	}
	dstX := w.Geometry.X + w.ShadowDX
	dstY := w.Geometry.Y + w.ShadowDY

	// shadowOpacity is config.shadow_opacity * opacity *
	// frame_opacity. The cached image (backend.go's ShadowCache) is shared
	// across windows with identical size/kernel/color and rendered at full
	// alpha, so the per-window scaling happens here, on a throwaway copy,
	// rather than being baked into the cached image.
	shadowOpacity := clamp01(s.Config.ShadowOpacity * w.Opacity * w.FrameOpacity)
	img := w.shadowImage
	if shadowOpacity < 1-1e-9 {
		work, err := s.Backend.Copy(w.shadowImage, reg)
		if err != nil {
			return err
		}
		defer s.Backend.ReleaseImage(work)
		if err := s.Backend.ImageOp(OpApplyAlpha, work, reg, reg, ImageOpArgs{DimOpacity: shadowOpacity}); err != nil {
			return err
		}
		img = work
	}
	return s.Backend.Compose(img, dstX, dstY, reg, reg)
}

func (s *Session) paintBody(w *Window, d *Region) error {
	if w.winImage == 0 {
		return nil
	}
	// w.prevTrans is the next-higher window in the paint sub-stack — the
	// chain Preprocess built (bottom-to-top), not the full registry stack,
	// which may include windows this pass decided to skip.
	aboveIgnore := w.prevTrans.regIgnoreOrEmpty()
	body := Subtract(d, aboveIgnore)
	body = Intersect(body, w.rootBoundingShape())
	if body.IsEmpty() {
		return nil
	}

	if w.BlurBackground && (w.Mode != ModeSolid || (w.FrameOpacity < 1 && s.Config.BlurBackgroundFrame)) {
		strength := w.Opacity
		if err := s.Backend.Blur(strength, body, body); err != nil {
			return err
		}
	}

	// image_op mutates in place, but w.winImage is the long-lived bound
	// image reused across frames, so any frame that needs to mutate
	// it (invert, alpha) works on a throwaway Copy instead, per the
	// backend's "copy for independent image_op mutation" contract.
	needsMutation := w.InvertColor || w.Opacity < 1 || w.FrameOpacity < 1
	img := w.winImage
	if needsMutation {
		work, err := s.Backend.Copy(w.winImage, body)
		if err != nil {
			return err
		}
		defer s.Backend.ReleaseImage(work)
		img = work
	}

	if w.InvertColor {
		if err := s.Backend.ImageOp(OpApplyAlpha, img, body, body, ImageOpArgs{DimOpacity: w.Opacity}); err != nil {
			return err
		}
		if err := s.Backend.ImageOp(OpInvertColorAll, img, body, body, ImageOpArgs{}); err != nil {
			return err
		}
		if err := s.Backend.Compose(img, w.Geometry.X, w.Geometry.Y, body, body); err != nil {
			return err
		}
	} else if w.FrameOpacity != 1 && w.FrameExtents != (FrameExtents{}) {
		frame := Intersect(body, frameRegion(w))
		bodyOnly := Subtract(body, frame)
		if !frame.IsEmpty() {
			if err := s.Backend.ImageOp(OpApplyAlpha, img, frame, frame, ImageOpArgs{DimOpacity: w.FrameOpacity}); err != nil {
				return err
			}
			if err := s.Backend.Compose(img, w.Geometry.X, w.Geometry.Y, frame, frame); err != nil {
				return err
			}
		}
		if !bodyOnly.IsEmpty() {
			if err := s.Backend.ImageOp(OpApplyAlpha, img, bodyOnly, bodyOnly, ImageOpArgs{DimOpacity: w.Opacity}); err != nil {
				return err
			}
			if err := s.Backend.Compose(img, w.Geometry.X, w.Geometry.Y, bodyOnly, bodyOnly); err != nil {
				return err
			}
		}
	} else {
		if needsMutation {
			if err := s.Backend.ImageOp(OpApplyAlpha, img, body, body, ImageOpArgs{DimOpacity: w.Opacity}); err != nil {
				return err
			}
		}
		if err := s.Backend.Compose(img, w.Geometry.X, w.Geometry.Y, body, body); err != nil {
			return err
		}
	}

	if w.Dim {
		dimOpacity := s.Config.InactiveDim
		if !w.force.Focused.resolve(false) {
			dimOpacity *= w.Opacity
		}
		if err := s.Backend.Fill(RGBA{0, 0, 0, dimOpacity}, body); err != nil {
			return err
		}
	}
	return nil
}

// regIgnoreOrEmpty lets Paint call w.prevTrans.regIgnoreOrEmpty() even when
// w is the topmost window being painted (Window is nil-receiver safe).
func (w *Window) regIgnoreOrEmpty() *Region {
	if w == nil || w.regIgnore == nil {
		return emptyRegion
	}
	return w.regIgnore
}

func unionAll(rs []*Region) *Region {
	out := emptyRegion
	for _, r := range rs {
		out = Union(out, r)
	}
	return out
}
