package main

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/gogpu/voltex/compact/nanovdb"
	"github.com/gogpu/voltex/export"
	"github.com/gogpu/voltex/vdb"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// sampler returns the scalar shown for texel (x, y, z) of a texture.
type sampler func(x, y, z int) (float64, error)

func newSampler(tex export.Texture) (sampler, error) {
	m := tex.Meta
	if m.IsCompact() {
		v, err := nanovdb.Open(tex.Pixels)
		if err != nil {
			return nil, err
		}
		origin := v.Header().BBox.Min
		at := func(x, y, z int) vdb.Coord {
			return vdb.Coord{X: origin.X + int32(x), Y: origin.Y + int32(y), Z: origin.Z + int32(z)}
		}
		if m.Channels == 3 {
			return func(x, y, z int) (float64, error) {
				val, _, err := v.Vec3(at(x, y, z))
				return magnitude(val.X, val.Y, val.Z), err
			}, nil
		}
		return func(x, y, z int) (float64, error) {
			val, _, err := v.Float(at(x, y, z))
			return float64(val), err
		}, nil
	}

	f32 := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(tex.Pixels[4*i:]))
	}
	return func(x, y, z int) (float64, error) {
		i := ((z*m.Height+y)*m.Width + x) * m.Channels
		if m.Channels == 3 {
			return magnitude(f32(i), f32(i+1), f32(i+2)), nil
		}
		return float64(f32(i)), nil
	}, nil
}

func magnitude(x, y, z float32) float64 {
	return math.Sqrt(float64(x)*float64(x) + float64(y)*float64(y) + float64(z)*float64(z))
}

// slicePreview renders Z slice z of tex as a grayscale image scaled by
// scale, normalized to the slice's value range.
func slicePreview(tex export.Texture, z, scale int) (*image.RGBA, error) {
	m := tex.Meta
	if z < 0 || z >= m.Depth {
		return nil, fmt.Errorf("slice %d outside depth %d", z, m.Depth)
	}
	sample, err := newSampler(tex)
	if err != nil {
		return nil, err
	}

	vals := make([]float64, m.Width*m.Height)
	lo, hi := math.Inf(1), math.Inf(-1)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			v, err := sample(x, y, z)
			if err != nil {
				return nil, err
			}
			vals[y*m.Width+x] = v
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}

	src := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	span := hi - lo
	for i, v := range vals {
		g := 0.0
		if span > 0 {
			g = (v - lo) / span
		}
		// Image rows run top-down, texture Y runs up.
		x, y := i%m.Width, m.Height-1-i/m.Width
		src.SetGray(x, y, color.Gray{Y: uint8(math.Round(g * 255))})
	}

	scale = max(scale, 1)
	dst := image.NewRGBA(image.Rect(0, 0, m.Width*scale, m.Height*scale))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	label(dst, fmt.Sprintf("z=%d %s [%.3g, %.3g]", z, m.Type, lo, hi))
	return dst, nil
}

// label draws s in the top left corner.
func label(img draw.Image, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 200, A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 13),
	}
	d.DrawString(s)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
