// Package pattern produces RGB888 pixel buffers for the panel: built-in test
// patterns and decoded image files scaled to the panel size.
package pattern

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"sort"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const bpp = 3

// Gradient is a red ramp from top (dark) to bottom (bright).
func Gradient(w, h int) []byte {
	pix := make([]byte, w*h*bpp)
	for y := 0; y < h; y++ {
		r := byte(y * 256 / h)
		for x := 0; x < w; x++ {
			pix[(y*w+x)*bpp] = r
		}
	}
	return pix
}

// Stripes gives each scanline its own color (y, 2y, 3y mod 256), which
// makes misplaced rounds easy to spot.
func Stripes(w, h int) []byte {
	pix := make([]byte, w*h*bpp)
	for y := 0; y < h; y++ {
		c := [bpp]byte{byte(y), byte(y * 2), byte(y * 3)}
		for x := 0; x < w; x++ {
			copy(pix[(y*w+x)*bpp:], c[:])
		}
	}
	return pix
}

// Solid fills the whole panel with c.
func Solid(w, h int, c color.RGBA) []byte {
	pix := make([]byte, w*h*bpp)
	for i := 0; i < len(pix); i += bpp {
		pix[i], pix[i+1], pix[i+2] = c.R, c.G, c.B
	}
	return pix
}

// Eyes draws two white 80x40 rectangles on black, the robot's idle face on
// a 240x240 panel. Smaller panels get them clipped.
func Eyes(w, h int) []byte {
	pix := make([]byte, w*h*bpp)
	white := color.RGBA{255, 255, 255, 255}
	fillRect(pix, w, h, image.Rect(40, 80, 120, 120), white)
	fillRect(pix, w, h, image.Rect(120, 80, 200, 120), white)
	return pix
}

func fillRect(pix []byte, w, h int, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(image.Rect(0, 0, w, h))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			i := (y*w + x) * bpp
			pix[i], pix[i+1], pix[i+2] = c.R, c.G, c.B
		}
	}
}

// FromImage scales img to exactly w x h (aspect ratio is not kept) and
// returns its RGB888 bytes. Alpha is dropped.
func FromImage(img image.Image, w, h int) []byte {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	pix := make([]byte, w*h*bpp)
	for y := 0; y < h; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < w; x++ {
			copy(pix[(y*w+x)*bpp:], row[x*4:x*4+bpp])
		}
	}
	return pix
}

// Decode reads a PNG, JPEG, GIF, BMP, TIFF or WebP image and scales it to
// w x h.
func Decode(r io.Reader, w, h int) ([]byte, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	slog.Debug("image decoded", "format", format, "size", img.Bounds().Size(), "panel", image.Pt(w, h))
	return FromImage(img, w, h), nil
}

// Load decodes the image file at path and scales it to w x h.
func Load(path string, w, h int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pix, err := Decode(f, w, h)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pix, nil
}

var named = map[string]func(w, h int) []byte{
	"gradient": Gradient,
	"stripes":  Stripes,
	"eyes":     Eyes,
	"black":    func(w, h int) []byte { return Solid(w, h, color.RGBA{0, 0, 0, 255}) },
	"white":    func(w, h int) []byte { return Solid(w, h, color.RGBA{255, 255, 255, 255}) },
	"red":      func(w, h int) []byte { return Solid(w, h, color.RGBA{255, 0, 0, 255}) },
	"green":    func(w, h int) []byte { return Solid(w, h, color.RGBA{0, 255, 0, 255}) },
	"blue":     func(w, h int) []byte { return Solid(w, h, color.RGBA{0, 0, 255, 255}) },
}

// ErrUnknownPattern is returned by Named for a name it does not know.
var ErrUnknownPattern = errors.New("unknown pattern")

// Named renders a built-in pattern by name.
func Named(name string, w, h int) ([]byte, error) {
	f, ok := named[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %v)", ErrUnknownPattern, name, Names())
	}
	return f(w, h), nil
}

// Resolve renders the image at imagePath when set, otherwise the named
// pattern.
func Resolve(name, imagePath string, w, h int) ([]byte, error) {
	if imagePath != "" {
		return Load(imagePath, w, h)
	}
	return Named(name, w, h)
}

// Names lists the built-in patterns in sorted order.
func Names() []string {
	names := make([]string, 0, len(named))
	for n := range named {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
