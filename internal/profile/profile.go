// Package profile supplies the two named operating-profile presets from
// spec.md §6: "archive" favors pixel-exact low-noise capture, "scan" trades
// density for geometric and erasure tolerance.
package profile

import (
	"fmt"

	"sllv/internal/config"
)

// Name identifies a profile preset.
type Name string

const (
	Archive Name = "archive"
	Scan    Name = "scan"
)

// basicPalette is the only palette identifier this codec resolves on
// decode; the manifest's palette field is carried for forward
// compatibility but never consulted (see DESIGN.md Open Questions).
const basicPalette = "basic8"

// Resolve returns the named preset's RasterParams with gridW/gridH applied,
// or an error if name is not recognized.
func Resolve(name Name, gridW, gridH int) (config.RasterParams, error) {
	switch name {
	case Archive:
		return ArchiveParams(gridW, gridH), nil
	case Scan:
		return ScanParams(gridW, gridH), nil
	default:
		return config.RasterParams{}, fmt.Errorf("profile: unknown profile %q", name)
	}
}

// ArchiveParams is the low-noise, pixel-exact capture preset: small cells,
// thin border, no deskewing, no FEC (spec.md §6 "Profile presets").
func ArchiveParams(gridW, gridH int) config.RasterParams {
	return config.RasterParams{
		GridW:             gridW,
		GridH:             gridH,
		CellPx:            2,
		Palette:           basicPalette,
		SyncFrames:        2,
		SyncColorSymbol:   0,
		CalibrationFrames: 1,
		BorderCells:       2,
		FiducialSizeCells: 12,
		Fec:               nil,
		Deskew:            false,
		ChunkBytes:        4096,
	}
}

// ScanParams is the recapture-tolerant preset: larger cells, thicker
// border and fiducials, homography deskewing, and Reed-Solomon FEC
// (spec.md §6 "Profile presets").
func ScanParams(gridW, gridH int) config.RasterParams {
	return config.RasterParams{
		GridW:             gridW,
		GridH:             gridH,
		CellPx:            6,
		Palette:           basicPalette,
		SyncFrames:        2,
		SyncColorSymbol:   0,
		CalibrationFrames: 1,
		BorderCells:       4,
		FiducialSizeCells: 18,
		Fec: &config.FecParams{
			DataShards:   12,
			ParityShards: 12,
			ShardBytes:   768,
		},
		Deskew: true,
	}
}
