package rig

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"

	"posekit/internal/fileutil"
	"posekit/internal/viewport"
)

// ThumbnailSize is the edge length of images produced by Playblast.
const ThumbnailSize = 256

// CaptureState implements viewport.Editor.
func (s *Scene) CaptureState() (viewport.State, error) {
	return s.view, nil
}

// ApplyState implements viewport.Editor.
func (s *Scene) ApplyState(state viewport.State) error {
	if state.Render.MultiSampleCount < 0 {
		return fmt.Errorf("multi-sample count %d is negative", state.Render.MultiSampleCount)
	}
	s.view = state
	s.touched()
	return nil
}

// Playblast implements viewport.Playblaster. The scene holds no geometry,
// so the image is the view background alone.
func (s *Scene) Playblast(view, path, format string) error {
	if view != s.view.ActiveView {
		return fmt.Errorf("view %q is not the active view %q", view, s.view.ActiveView)
	}
	img := renderBackground(s.view.Background, ThumbnailSize)

	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
	case "jpg", "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

func renderBackground(bg viewport.Background, size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		c := bg.Solid
		if bg.Gradient {
			t := float64(y) / float64(size-1)
			for i := range c {
				c[i] = bg.Top[i]*(1-t) + bg.Bottom[i]*t
			}
		}
		px := color.RGBA{R: channel8(c[0]), G: channel8(c[1]), B: channel8(c[2]), A: 0xff}
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, px)
		}
	}
	return img
}

func channel8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
