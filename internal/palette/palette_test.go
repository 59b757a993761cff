package palette

import "testing"

func TestColorRoundTripsThroughNearest(t *testing.T) {
	for sym := uint8(0); sym < NumSymbols; sym++ {
		c, err := Color(sym)
		if err != nil {
			t.Fatalf("Color(%d): %v", sym, err)
		}
		if got := Nearest(c.R, c.G, c.B); got != sym {
			t.Fatalf("Nearest(Color(%d)) = %d, want %d", sym, got, sym)
		}
		if got, ok := Exact(c.R, c.G, c.B); !ok || got != sym {
			t.Fatalf("Exact(Color(%d)) = (%d, %v), want (%d, true)", sym, got, ok, sym)
		}
	}
}

func TestColorInvalidSymbol(t *testing.T) {
	if _, err := Color(8); err == nil {
		t.Fatal("Color(8) should fail: only 8 symbols are defined")
	}
}

func TestExactRejectsNonPaletteColor(t *testing.T) {
	if _, ok := Exact(10, 20, 30); ok {
		t.Fatal("Exact should reject a color absent from the palette")
	}
}

func TestNearestToleratesDrift(t *testing.T) {
	// A red sample nudged by compression noise should still classify as red.
	if got := Nearest(240, 10, 5); got != 2 {
		t.Fatalf("Nearest(240,10,5) = %d, want 2 (red)", got)
	}
}
