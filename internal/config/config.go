// Package config holds the plain parameter records (RasterParams,
// FecParams) shared by the profile presets and the pipeline, per the
// "parameter objects over ad-hoc flags" design note in spec.md §9.
package config

import "fmt"

// FecParams configures the Reed-Solomon erasure-coding layer. A nil
// *FecParams on RasterParams disables FEC entirely.
type FecParams struct {
	DataShards   int
	ParityShards int
	ShardBytes   int
}

// Validate reports a parameter-misconfiguration error (spec.md §7, kind 3)
// before any frame is written.
func (f FecParams) Validate() error {
	if f.DataShards <= 0 {
		return fmt.Errorf("fec: data_shards must be > 0, got %d", f.DataShards)
	}
	if f.ParityShards < 0 {
		return fmt.Errorf("fec: parity_shards must be >= 0, got %d", f.ParityShards)
	}
	if f.ShardBytes <= 0 {
		return fmt.Errorf("fec: shard_bytes must be > 0, got %d", f.ShardBytes)
	}
	return nil
}

// TotalShards is DataShards + ParityShards, the group width.
func (f FecParams) TotalShards() int { return f.DataShards + f.ParityShards }

// GroupDataBytes is the number of original-input bytes one group spans.
func (f FecParams) GroupDataBytes() int { return f.DataShards * f.ShardBytes }

// RasterParams configures the raster codec: grid geometry, framing
// constants, FEC, and scan-profile deskewing. See spec.md §6 "Parameters".
type RasterParams struct {
	GridW  int
	GridH  int
	CellPx int

	Palette string // only "basic8" is defined; see spec.md Open Questions

	SyncFrames        int
	SyncColorSymbol   uint8
	CalibrationFrames int

	BorderCells        int
	FiducialSizeCells  int

	Fec *FecParams

	Deskew bool

	// ChunkBytes is used only when Fec is nil.
	ChunkBytes int
}

// Validate reports parameter misconfiguration (spec.md §7, kind 3).
func (p RasterParams) Validate() error {
	if p.GridW <= 0 || p.GridH <= 0 {
		return fmt.Errorf("raster: grid_w and grid_h must be > 0, got %dx%d", p.GridW, p.GridH)
	}
	if p.CellPx <= 0 {
		return fmt.Errorf("raster: cell_px must be > 0, got %d", p.CellPx)
	}
	if p.BorderCells < 0 {
		return fmt.Errorf("raster: border_cells must be >= 0, got %d", p.BorderCells)
	}
	if p.FiducialSizeCells < 0 {
		return fmt.Errorf("raster: fiducial_size_cells must be >= 0, got %d", p.FiducialSizeCells)
	}
	if p.FiducialSizeCells > p.GridW/2 || p.FiducialSizeCells > p.GridH/2 {
		return fmt.Errorf("raster: fiducial_size_cells %d too large for grid %dx%d", p.FiducialSizeCells, p.GridW, p.GridH)
	}
	if p.Fec != nil {
		if err := p.Fec.Validate(); err != nil {
			return err
		}
	} else if p.ChunkBytes <= 0 {
		return fmt.Errorf("raster: chunk_bytes must be > 0 when fec is disabled, got %d", p.ChunkBytes)
	}
	return nil
}

// GridCols and GridRows are the full (border-inclusive) lattice dimensions.
func (p RasterParams) GridCols() int { return p.GridW + 2*p.BorderCells }
func (p RasterParams) GridRows() int { return p.GridH + 2*p.BorderCells }

// ImageWidth and ImageHeight are the rendered frame's pixel dimensions.
func (p RasterParams) ImageWidth() int  { return p.GridCols() * p.CellPx }
func (p RasterParams) ImageHeight() int { return p.GridRows() * p.CellPx }

// PayloadBitsCapacity and PayloadBytesCapacity are the inner grid's raw
// bit/byte capacity before the 52-byte shard header is subtracted.
func (p RasterParams) PayloadBitsCapacity() int  { return p.GridW * p.GridH * 3 }
func (p RasterParams) PayloadBytesCapacity() int { return p.PayloadBitsCapacity() / 8 }
