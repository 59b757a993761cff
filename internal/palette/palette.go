// Package palette maps 3-bit symbols to the 8 cube-corner RGB colors used
// by the raster codec, and classifies noisy samples back to symbols.
package palette

import "fmt"

// RGB is a true-color sample with no alpha channel.
type RGB struct {
	R, G, B uint8
}

// NumSymbols is the number of distinct symbols the palette carries (3 bits).
const NumSymbols = 8

// basic8 holds the cube-corner colors in symbol order. Every coordinate of
// every entry is 0 or 255, so any two entries differ by at least one full
// 255-unit swing on some axis: the maximum separation 3 bits of RGB can buy.
var basic8 = [NumSymbols]RGB{
	0: {0, 0, 0},       // black
	1: {255, 255, 255}, // white
	2: {255, 0, 0},     // red
	3: {0, 255, 0},     // green
	4: {0, 0, 255},     // blue
	5: {0, 255, 255},   // cyan
	6: {255, 0, 255},   // magenta
	7: {255, 255, 0},   // yellow
}

// ErrInvalidSymbol is returned by Color when sym is outside [0, NumSymbols).
type ErrInvalidSymbol int

func (e ErrInvalidSymbol) Error() string {
	return fmt.Sprintf("palette: symbol %d out of range [0,%d)", int(e), NumSymbols)
}

// Color returns the canonical RGB for sym. sym must be in [0, NumSymbols).
func Color(sym uint8) (RGB, error) {
	if int(sym) >= NumSymbols {
		return RGB{}, ErrInvalidSymbol(sym)
	}
	return basic8[sym], nil
}

// MustColor panics if sym is out of range; for call sites that already hold
// the invariant (e.g. iterating exactly NumSymbols entries).
func MustColor(sym uint8) RGB {
	c, err := Color(sym)
	if err != nil {
		panic(err)
	}
	return c
}

// Nearest returns the symbol whose canonical color minimizes squared
// Euclidean distance to (r,g,b), ties broken by the lower symbol index.
func Nearest(r, g, b uint8) uint8 {
	best := uint8(0)
	bestDist := sqDist(basic8[0], r, g, b)
	for sym := uint8(1); sym < NumSymbols; sym++ {
		d := sqDist(basic8[sym], r, g, b)
		if d < bestDist {
			bestDist = d
			best = sym
		}
	}
	return best
}

// Exact returns the symbol whose canonical color equals (r,g,b) exactly, and
// true, or (0, false) if no palette entry matches.
func Exact(r, g, b uint8) (uint8, bool) {
	for sym := uint8(0); sym < NumSymbols; sym++ {
		c := basic8[sym]
		if c.R == r && c.G == g && c.B == b {
			return sym, true
		}
	}
	return 0, false
}

func sqDist(c RGB, r, g, b uint8) int {
	dr := int(c.R) - int(r)
	dg := int(c.G) - int(g)
	db := int(c.B) - int(b)
	return dr*dr + dg*dg + db*db
}
