package config

import "testing"

func TestFecParamsValidate(t *testing.T) {
	good := FecParams{DataShards: 10, ParityShards: 4, ShardBytes: 128}
	if err := good.Validate(); err != nil {
		t.Fatalf("good params rejected: %v", err)
	}
	if good.TotalShards() != 14 {
		t.Fatalf("TotalShards() = %d, want 14", good.TotalShards())
	}
	if good.GroupDataBytes() != 1280 {
		t.Fatalf("GroupDataBytes() = %d, want 1280", good.GroupDataBytes())
	}

	cases := []FecParams{
		{DataShards: 0, ParityShards: 4, ShardBytes: 128},
		{DataShards: 10, ParityShards: -1, ShardBytes: 128},
		{DataShards: 10, ParityShards: 4, ShardBytes: 0},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected error, got nil for %+v", i, c)
		}
	}
}

func TestRasterParamsGeometry(t *testing.T) {
	p := RasterParams{
		GridW: 40, GridH: 30, CellPx: 4,
		Palette: "basic8", SyncFrames: 2, CalibrationFrames: 1,
		BorderCells: 2, FiducialSizeCells: 3,
		Fec: &FecParams{DataShards: 10, ParityShards: 4, ShardBytes: 128},
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
	if p.GridCols() != 44 || p.GridRows() != 34 {
		t.Fatalf("GridCols/GridRows = %d/%d, want 44/34", p.GridCols(), p.GridRows())
	}
	if p.ImageWidth() != 176 || p.ImageHeight() != 136 {
		t.Fatalf("ImageWidth/ImageHeight = %d/%d, want 176/136", p.ImageWidth(), p.ImageHeight())
	}
	if p.PayloadBitsCapacity() != 40*30*3 {
		t.Fatalf("PayloadBitsCapacity() = %d, want %d", p.PayloadBitsCapacity(), 40*30*3)
	}
	if p.PayloadBytesCapacity() != (40*30*3)/8 {
		t.Fatalf("PayloadBytesCapacity() = %d, want %d", p.PayloadBytesCapacity(), (40*30*3)/8)
	}
}

func TestRasterParamsValidateRejectsBadGeometry(t *testing.T) {
	base := RasterParams{GridW: 40, GridH: 30, CellPx: 4, ChunkBytes: 64}

	zeroGrid := base
	zeroGrid.GridW = 0
	if err := zeroGrid.Validate(); err == nil {
		t.Error("expected error for zero grid_w")
	}

	zeroCell := base
	zeroCell.CellPx = 0
	if err := zeroCell.Validate(); err == nil {
		t.Error("expected error for zero cell_px")
	}

	hugeFiducial := base
	hugeFiducial.FiducialSizeCells = 100
	if err := hugeFiducial.Validate(); err == nil {
		t.Error("expected error for oversized fiducial_size_cells")
	}

	noFecNoChunk := base
	noFecNoChunk.ChunkBytes = 0
	if err := noFecNoChunk.Validate(); err == nil {
		t.Error("expected error when fec is disabled and chunk_bytes is 0")
	}

	badFec := base
	badFec.Fec = &FecParams{DataShards: 0, ParityShards: 2, ShardBytes: 10}
	if err := badFec.Validate(); err == nil {
		t.Error("expected error propagated from invalid fec params")
	}
}

func TestRasterParamsChunkBytesIgnoredWhenFecSet(t *testing.T) {
	p := RasterParams{
		GridW: 40, GridH: 30, CellPx: 4,
		Fec: &FecParams{DataShards: 10, ParityShards: 4, ShardBytes: 128},
		// ChunkBytes left at zero; should not matter once Fec is set.
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("fec-enabled params should not require chunk_bytes: %v", err)
	}
}
