// Package raster renders frame-payload buffers into RGB images and decodes
// them back, including scan-profile geometric rectification (spec.md §4.3,
// §4.4, §4.5).
package raster

import (
	"image"
	"image/color"

	"sllv/internal/bitpack"
	"sllv/internal/config"
	"sllv/internal/palette"
	"sllv/internal/warp"
)

// corner identifies a frame corner; symbol gives its fixed fiducial palette symbol:
// top-left=red, top-right=green, bottom-left=blue, bottom-right=yellow
// (spec.md §3 "Fiducial").
type corner int

const (
	topLeft corner = iota
	topRight
	bottomLeft
	bottomRight
)

func (c corner) symbol() uint8 {
	switch c {
	case topLeft:
		return 2
	case topRight:
		return 3
	case bottomLeft:
		return 4
	default:
		return 7
	}
}

// fiducialSymbolAt reports the fiducial symbol painted at full-grid cell
// (fx, fy), if any. Fiducials sit at the four outer corners of the full
// grid (border included), each fiducial_size_cells square, with only the
// two-cell-wide L-shaped strip along the square's interior edges painted.
func fiducialSymbolAt(p config.RasterParams, fx, fy int) (uint8, bool) {
	size := p.FiducialSizeCells
	if size <= 0 {
		return 0, false
	}
	cols, rows := p.GridCols(), p.GridRows()

	type square struct {
		x0, y0        int
		c             corner
		interiorRight bool
		interiorBottom bool
	}
	squares := []square{
		{0, 0, topLeft, true, true},
		{cols - size, 0, topRight, false, true},
		{0, rows - size, bottomLeft, true, false},
		{cols - size, rows - size, bottomRight, false, false},
	}

	for _, sq := range squares {
		if fx < sq.x0 || fx >= sq.x0+size || fy < sq.y0 || fy >= sq.y0+size {
			continue
		}
		lx, ly := fx-sq.x0, fy-sq.y0
		onL := false
		if sq.interiorRight && lx >= size-2 {
			onL = true
		}
		if !sq.interiorRight && lx <= 1 {
			onL = true
		}
		if sq.interiorBottom && ly >= size-2 {
			onL = true
		}
		if !sq.interiorBottom && ly <= 1 {
			onL = true
		}
		if onL {
			return sq.c.symbol(), true
		}
		return 0, false
	}
	return 0, false
}

// borderSymbolAt is the deterministic checker pattern painted across the
// border region: alternating symbols 0/1 by parity of x XOR y.
func borderSymbolAt(fx, fy int) uint8 {
	if (fx^fy)&1 == 0 {
		return 0
	}
	return 1
}

func fillCell(img *image.RGBA, fx, fy, cellPx int, c palette.RGB) {
	px0, py0 := fx*cellPx, fy*cellPx
	rect := color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	for y := py0; y < py0+cellPx; y++ {
		for x := px0; x < px0+cellPx; x++ {
			img.Set(x, y, rect)
		}
	}
}

// RenderPayload paints a full frame image from a frame-payload buffer:
// border checker, then fiducials, then the inner grid's payload symbols
// in row-major order (spec.md §4.3).
func RenderPayload(payload []byte, p config.RasterParams) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.ImageWidth(), p.ImageHeight()))
	bitIdx := 0
	for fy := 0; fy < p.GridRows(); fy++ {
		for fx := 0; fx < p.GridCols(); fx++ {
			ix, iy := fx-p.BorderCells, fy-p.BorderCells
			inner := ix >= 0 && ix < p.GridW && iy >= 0 && iy < p.GridH

			var sym uint8
			if fsym, ok := fiducialSymbolAt(p, fx, fy); ok {
				sym = fsym
			} else if inner {
				sym = bitpack.Read3(payload, bitIdx)
				bitIdx += 3
			} else {
				sym = borderSymbolAt(fx, fy)
			}
			fillCell(img, fx, fy, p.CellPx, palette.MustColor(sym))
		}
	}
	return img
}

// RenderSolid paints every cell, border included, with the same symbol.
func RenderSolid(sym uint8, p config.RasterParams) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.ImageWidth(), p.ImageHeight()))
	c := palette.MustColor(sym)
	for fy := 0; fy < p.GridRows(); fy++ {
		for fx := 0; fx < p.GridCols(); fx++ {
			fillCell(img, fx, fy, p.CellPx, c)
		}
	}
	return img
}

// RenderCalibration paints border + fiducials, then fills the inner grid
// with a horizontal palette stripe (symbols 0..7 across the first
// min(4, grid_h) rows) followed by a checker fill for the remainder
// (spec.md §4.3).
func RenderCalibration(p config.RasterParams) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.ImageWidth(), p.ImageHeight()))
	stripeRows := p.GridH
	if stripeRows > 4 {
		stripeRows = 4
	}

	for fy := 0; fy < p.GridRows(); fy++ {
		for fx := 0; fx < p.GridCols(); fx++ {
			ix, iy := fx-p.BorderCells, fy-p.BorderCells
			inner := ix >= 0 && ix < p.GridW && iy >= 0 && iy < p.GridH

			var sym uint8
			if fsym, ok := fiducialSymbolAt(p, fx, fy); ok {
				sym = fsym
			} else if inner && iy < stripeRows {
				sym = uint8((ix * palette.NumSymbols) / p.GridW)
				if sym >= palette.NumSymbols {
					sym = palette.NumSymbols - 1
				}
			} else if inner {
				sym = borderSymbolAt(ix, iy)
			} else {
				sym = borderSymbolAt(fx, fy)
			}
			fillCell(img, fx, fy, p.CellPx, palette.MustColor(sym))
		}
	}
	return img
}

func samplePixel(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

// DecodeFrame samples one cell per inner-grid position, classifies it via
// palette.Nearest, and packs the symbols row-major, LSB-first, into a
// freshly allocated buffer of PayloadBytesCapacity length. If deskew is
// enabled, it first attempts Rectify and falls back to the raw image on
// failure (spec.md §4.4).
func DecodeFrame(img image.Image, p config.RasterParams) []byte {
	if p.Deskew {
		if rectified, ok := Rectify(img, p); ok {
			img = rectified
		}
	}

	out := make([]byte, p.PayloadBytesCapacity())
	bitIdx := 0
	capBits := len(out) * 8
	for iy := 0; iy < p.GridH; iy++ {
		for ix := 0; ix < p.GridW; ix++ {
			if bitIdx >= capBits {
				return out
			}
			px := (ix + p.BorderCells) * p.CellPx
			py := (iy + p.BorderCells) * p.CellPx
			r, g, b := samplePixel(img, px, py)
			sym := palette.Nearest(r, g, b)
			bitpack.Write3(out, bitIdx, sym)
			bitIdx += 3
		}
	}
	return out
}

// fiducialDistanceThreshold is the squared-RGB-distance acceptance gate
// for corner-window fiducial pixel matching (spec.md §4.4).
const fiducialDistanceThreshold = 60000

const minFiducialMatchPixels = 50

// Rectify attempts homography-based deskewing: it locates the four
// fiducial corner centroids, solves the mapping to the canonical
// full-grid rectangle, and inverse-warps the image. It reports ok=false
// on any failure (insufficient fiducial pixels, singular homography),
// in which case the caller should fall back to the raw image.
func Rectify(img image.Image, p config.RasterParams) (image.Image, bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	winSize := p.FiducialSizeCells * p.CellPx * 3
	if half := minInt(w, h) / 2; winSize > half {
		winSize = half
	}
	if winSize < 32 {
		winSize = 32
	}

	type cornerWindow struct {
		x0, y0 int
		sym    uint8
	}
	windows := []cornerWindow{
		{b.Min.X, b.Min.Y, topLeft.symbol()},
		{b.Max.X - winSize, b.Min.Y, topRight.symbol()},
		{b.Max.X - winSize, b.Max.Y - winSize, bottomRight.symbol()},
		{b.Min.X, b.Max.Y - winSize, bottomLeft.symbol()},
	}

	var src [4]warp.Point
	for i, cw := range windows {
		target := palette.MustColor(cw.sym)
		sumX, sumY, count := 0, 0, 0
		for y := cw.y0; y < cw.y0+winSize; y++ {
			if y < b.Min.Y || y >= b.Max.Y {
				continue
			}
			for x := cw.x0; x < cw.x0+winSize; x++ {
				if x < b.Min.X || x >= b.Max.X {
					continue
				}
				r, g, bl := samplePixel(img, x, y)
				if sqDist(r, g, bl, target) < fiducialDistanceThreshold {
					sumX += x
					sumY += y
					count++
				}
			}
		}
		if count < minFiducialMatchPixels {
			return nil, false
		}
		src[i] = warp.Point{X: float64(sumX) / float64(count), Y: float64(sumY) / float64(count)}
	}

	wc := float64(p.ImageWidth())
	hc := float64(p.ImageHeight())
	dst := [4]warp.Point{
		{0, 0}, {wc - 1, 0}, {wc - 1, hc - 1}, {0, hc - 1},
	}

	// HomographyFrom4(src, dst) maps captured fiducial centroids to the
	// canonical rectangle; WarpPerspectiveNearest instead needs the
	// canonical->captured map, so the result must be inverted before use.
	hMat, err := warp.HomographyFrom4(src, dst)
	if err != nil {
		return nil, false
	}
	hInv, err := warp.Inverse(hMat)
	if err != nil {
		return nil, false
	}
	return warp.WarpPerspectiveNearest(img, hInv, int(wc), int(hc)), true
}

func sqDist(r, g, b uint8, target palette.RGB) int {
	dr := int(r) - int(target.R)
	dg := int(g) - int(target.G)
	db := int(b) - int(target.B)
	return dr*dr + dg*dg + db*db
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
