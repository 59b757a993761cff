// Package warp solves and applies 2D projective homographies, used by
// internal/raster to rectify a skewed scan-profile capture back to the
// canonical frame rectangle before sampling cells (spec.md §4.5).
package warp

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Point is a 2D coordinate in pixel space.
type Point struct {
	X, Y float64
}

// Matrix is a 3x3 homogeneous transform, row-major, with H[2][2] fixed to 1.
type Matrix [3][3]float64

// HomographyFrom4 solves the 8-parameter Direct Linear Transform mapping
// src[i] to dst[i] for i in [0,4), with h33 fixed to 1. Returns an error if
// the underlying 8x8 linear system is singular.
func HomographyFrom4(src, dst [4]Point) (Matrix, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		// u-row: h11*x + h12*y + h13 - u*h31*x - u*h32*y = u
		ur := 2 * i
		a.SetRow(ur, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		b.SetVec(ur, u)

		// v-row: h21*x + h22*y + h23 - v*h31*x - v*h32*y = v
		vr := 2*i + 1
		a.SetRow(vr, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(vr, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Matrix{}, errors.Wrap(err, "warp: homography solve failed (singular system)")
	}

	return Matrix{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}, nil
}

// Apply computes (H*p).xy / (H*p).w, projecting p through H.
func Apply(h Matrix, p Point) Point {
	x := h[0][0]*p.X + h[0][1]*p.Y + h[0][2]
	y := h[1][0]*p.X + h[1][1]*p.Y + h[1][2]
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	if w == 0 {
		return Point{}
	}
	return Point{X: x / w, Y: y / w}
}

// Inverse returns H^-1, failing if H is singular.
func Inverse(h Matrix) (Matrix, error) {
	m := mat.NewDense(3, 3, []float64{
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2],
	})
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Matrix{}, errors.Wrap(err, "warp: matrix is singular, cannot invert")
	}
	return Matrix{
		{inv.At(0, 0), inv.At(0, 1), inv.At(0, 2)},
		{inv.At(1, 0), inv.At(1, 1), inv.At(1, 2)},
		{inv.At(2, 0), inv.At(2, 1), inv.At(2, 2)},
	}, nil
}

// WarpPerspectiveNearest builds a (dstW x dstH) image by inverse-mapping
// each destination pixel through h into src, nearest-neighbor sampling.
// Destination pixels whose source falls outside src's bounds are black.
func WarpPerspectiveNearest(src image.Image, h Matrix, dstW, dstH int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	bounds := src.Bounds()

	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			sp := Apply(h, Point{X: float64(x), Y: float64(y)})
			sx, sy := int(sp.X+0.5), int(sp.Y+0.5)
			if sx < bounds.Min.X || sx >= bounds.Max.X || sy < bounds.Min.Y || sy >= bounds.Max.Y {
				dst.Set(x, y, color.RGBA{A: 255})
				continue
			}
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}
