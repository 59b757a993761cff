// Package pipeline orchestrates a full encode or decode run: frame
// sequencing, FEC on/off paths, manifest I/O, and scan-profile sync-frame
// boundary detection (spec.md §4.8).
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	"sllv/internal/config"
	"sllv/internal/fec"
	"sllv/internal/framing"
	"sllv/internal/manifest"
	"sllv/internal/palette"
	"sllv/internal/progress"
	"sllv/internal/raster"
	"sllv/pkg/checksum"
)

// Sentinel errors, one per spec.md §7 error-taxonomy entry that surfaces
// to the caller. Check with errors.Is.
var (
	ErrManifestMissing = errors.New("pipeline: manifest.json not found")
	ErrManifestInvalid = errors.New("pipeline: manifest.json has an unrecognized magic or version")
	ErrParams          = errors.New("pipeline: parameter misconfiguration")
	ErrFecUnrecoverable = errors.New("pipeline: a shard group could not be reconstructed")
	ErrIntegrity       = errors.New("pipeline: decoded bytes do not match the manifest's recorded hash")
)

// frameFileExt is the lossless image format frames are written in.
const frameFileExt = ".png"

func frameFileName(index int) string {
	return fmt.Sprintf("frame_%06d%s", index, frameFileExt)
}

// workerCount bounds the render/decode worker pool, leaving headroom the
// way the teacher's reconstructor does ("threads := NumCPU() - 2").
func workerCount() int {
	n := runtime.NumCPU() - 2
	if n < 1 {
		n = 1
	}
	return n
}

func nopLogger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Encode writes sync, calibration, and data frames plus manifest.json to
// outDir for inputBytes under params, reporting progress on bus if
// non-nil (spec.md §4.8).
func Encode(inputBytes []byte, fileName, outDir string, params config.RasterParams, logger *zap.Logger, bus *progress.Bus) (manifest.Manifest, error) {
	logger = nopLogger(logger)

	if err := params.Validate(); err != nil {
		return manifest.Manifest{}, fmt.Errorf("%w: %v", ErrParams, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return manifest.Manifest{}, fmt.Errorf("pipeline: creating output dir: %w", err)
	}

	sha256Hex := checksum.SHA256Hex(inputBytes)
	frameIdx := 0

	// Sync + calibration frames are written sequentially; they're few
	// and rendering is cheap relative to I/O.
	for i := 0; i < params.SyncFrames; i++ {
		if err := saveFrame(outDir, frameIdx, raster.RenderSolid(params.SyncColorSymbol, params)); err != nil {
			return manifest.Manifest{}, err
		}
		frameIdx++
	}
	for i := 0; i < params.CalibrationFrames; i++ {
		if err := saveFrame(outDir, frameIdx, raster.RenderCalibration(params)); err != nil {
			return manifest.Manifest{}, err
		}
		frameIdx++
	}

	capacityBytes := params.PayloadBytesCapacity()
	framePayloadBytes := capacityBytes - framing.HeaderSizeBytes
	if framePayloadBytes <= 0 {
		return manifest.Manifest{}, fmt.Errorf("%w: grid capacity %d too small for the %d-byte shard header", ErrParams, capacityBytes, framing.HeaderSizeBytes)
	}

	var chunkBytes uint32
	var dataFrameCount int

	if params.Fec != nil {
		if params.Fec.ShardBytes > framePayloadBytes {
			return manifest.Manifest{}, fmt.Errorf("%w: shard_bytes %d exceeds frame payload capacity %d", ErrParams, params.Fec.ShardBytes, framePayloadBytes)
		}
		packets, err := fec.Encode(inputBytes, *params.Fec)
		if err != nil {
			return manifest.Manifest{}, fmt.Errorf("pipeline: fec encode: %w", err)
		}

		buffers := make([][]byte, len(packets))
		for i, pkt := range packets {
			header := framing.NewHeader(pkt.GroupIndex, pkt.ShardIndex, pkt.Data, uint64(len(inputBytes)))
			buf, err := framing.PackFramePayload(header, pkt.Data, capacityBytes)
			if err != nil {
				return manifest.Manifest{}, fmt.Errorf("pipeline: framing shard %d/%d: %w", pkt.GroupIndex, pkt.ShardIndex, err)
			}
			buffers[i] = buf
		}
		if err := renderAndSaveFrames(outDir, frameIdx, buffers, params, bus); err != nil {
			return manifest.Manifest{}, err
		}
		frameIdx += len(buffers)
		dataFrameCount = len(buffers)
		chunkBytes = uint32(framePayloadBytes)
	} else {
		chunkSize := params.ChunkBytes
		if chunkSize > capacityBytes {
			chunkSize = capacityBytes
		}
		if chunkSize <= 0 {
			return manifest.Manifest{}, fmt.Errorf("%w: chunk_bytes must be positive when fec is disabled", ErrParams)
		}

		var buffers [][]byte
		for off := 0; off < len(inputBytes); off += chunkSize {
			end := off + chunkSize
			if end > len(inputBytes) {
				end = len(inputBytes)
			}
			buf := make([]byte, capacityBytes)
			copy(buf, inputBytes[off:end])
			buffers = append(buffers, buf)
		}
		if len(buffers) == 0 {
			buffers = append(buffers, make([]byte, capacityBytes))
		}
		if err := renderAndSaveFrames(outDir, frameIdx, buffers, params, bus); err != nil {
			return manifest.Manifest{}, err
		}
		frameIdx += len(buffers)
		dataFrameCount = len(buffers)
		chunkBytes = uint32(chunkSize)
	}

	m := manifest.Manifest{
		Magic:      manifest.Magic,
		Version:    manifest.Version,
		FileName:   fileName,
		TotalBytes: uint64(len(inputBytes)),
		ChunkBytes: chunkBytes,
		GridW:      uint32(params.GridW),
		GridH:      uint32(params.GridH),
		CellPx:     uint32(params.CellPx),
		Palette:    params.Palette,
		SHA256Hex:  sha256Hex,
		Frames:     uint32(frameIdx),
	}
	if err := manifest.Write(outDir, m); err != nil {
		return manifest.Manifest{}, err
	}

	logger.Info("encode complete",
		zap.String("out_dir", outDir),
		zap.Int("frames", frameIdx),
		zap.Int("data_frames", dataFrameCount),
		zap.Uint64("total_bytes", m.TotalBytes),
	)
	bus.Emit("encode", uint64(frameIdx), uint64(frameIdx))
	bus.Done()
	return m, nil
}

func saveFrame(dir string, index int, img image.Image) error {
	path := filepath.Join(dir, frameFileName(index))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pipeline: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("pipeline: encoding %s: %w", path, err)
	}
	return nil
}

// renderAndSaveFrames renders each payload buffer and writes it to
// frame_%06d.png starting at startIdx, using a bounded worker pool
// (grounded on the teacher's reconstructor job/result channel pattern).
// Each buffer's destination file name is fixed before dispatch, so
// out-of-order completion never affects on-disk frame ordering.
func renderAndSaveFrames(dir string, startIdx int, buffers [][]byte, params config.RasterParams, bus *progress.Bus) error {
	type job struct {
		idx int
		buf []byte
	}
	jobs := make(chan job, len(buffers))
	errs := make(chan error, len(buffers))

	var wg sync.WaitGroup
	for w := 0; w < workerCount(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				img := raster.RenderPayload(j.buf, params)
				errs <- saveFrame(dir, startIdx+j.idx, img)
			}
		}()
	}

	for i, buf := range buffers {
		jobs <- job{idx: i, buf: buf}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(errs)
	}()

	var done int
	for err := range errs {
		if err != nil {
			return err
		}
		done++
		bus.Emit("render", uint64(done), uint64(len(buffers)))
	}
	return nil
}

// DecodeReport records per-frame integrity outcomes that don't fail the
// overall decode, so a caller can audit recovery without the call
// failing outright when FEC compensates (spec.md §7 kind 6, [EXPANSION]).
type DecodeReport struct {
	DataFrames    int
	DroppedFrames int
}

// Decode reads manifest.json and the frame files in inDir, reconstructs
// the original bytes under params, and verifies the end-to-end SHA-256
// (spec.md §4.8). params must describe the same geometry/FEC settings
// used at encode time; the manifest alone does not carry enough
// information to infer them (no fec/border/fiducial/deskew fields).
func Decode(inDir string, params config.RasterParams, logger *zap.Logger, bus *progress.Bus) ([]byte, DecodeReport, error) {
	logger = nopLogger(logger)
	var report DecodeReport

	m, err := manifest.Load(inDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, report, fmt.Errorf("%w: %v", ErrManifestMissing, err)
		}
		return nil, report, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}

	framePaths, err := filepath.Glob(filepath.Join(inDir, "frame_*"+frameFileExt))
	if err != nil {
		return nil, report, fmt.Errorf("pipeline: listing frame files: %w", err)
	}
	sort.Strings(framePaths)

	dataStart := findDataFrameStart(framePaths, params)

	dataPaths := framePaths
	if dataStart < len(framePaths) {
		dataPaths = framePaths[dataStart:]
	} else {
		dataPaths = nil
	}
	report.DataFrames = len(dataPaths)

	decoded, err := decodeFramesConcurrently(dataPaths, params)
	if err != nil {
		return nil, report, err
	}

	var out []byte
	if params.Fec != nil {
		var packets []fec.ShardPacket
		for _, d := range decoded {
			header, shard, ok, perr := framing.UnpackFramePayload(d)
			if perr != nil {
				logger.Warn("frame framing decode error", zap.Error(perr))
				report.DroppedFrames++
				continue
			}
			if !ok {
				logger.Warn("frame header CRC mismatch, discarding frame")
				report.DroppedFrames++
				continue
			}
			if !header.VerifyShard(shard) {
				logger.Warn("shard SHA-256 mismatch, discarding frame",
					zap.Uint32("group_index", header.GroupIndex), zap.Uint16("shard_index", header.ShardIndex))
				report.DroppedFrames++
				continue
			}
			packets = append(packets, fec.ShardPacket{
				GroupIndex: header.GroupIndex,
				ShardIndex: header.ShardIndex,
				Data:       shard,
				SHA256:     header.ShardSHA256,
			})
		}
		out, err = fec.Decode(packets, *params.Fec, m.TotalBytes)
		if err != nil {
			if errors.Is(err, fec.ErrUnrecoverable) {
				return nil, report, fmt.Errorf("%w: %v", ErrFecUnrecoverable, err)
			}
			return nil, report, fmt.Errorf("pipeline: fec decode: %w", err)
		}
	} else {
		// Each frame carries m.ChunkBytes meaningful bytes followed by
		// zero padding out to the grid's full capacity; only the chunk
		// prefix is real data, so the pad must not be spliced in between
		// frames when chunk_bytes < capacity.
		chunkBytes := int(m.ChunkBytes)
		for _, d := range decoded {
			if chunkBytes > 0 && chunkBytes < len(d) {
				d = d[:chunkBytes]
			}
			out = append(out, d...)
		}
		if uint64(len(out)) > m.TotalBytes {
			out = out[:m.TotalBytes]
		}
	}

	if checksum.SHA256Hex(out) != m.SHA256Hex {
		return nil, report, fmt.Errorf("%w", ErrIntegrity)
	}

	logger.Info("decode complete",
		zap.String("in_dir", inDir),
		zap.Int("data_frames", report.DataFrames),
		zap.Int("dropped_frames", report.DroppedFrames),
	)
	bus.Emit("decode", uint64(len(dataPaths)), uint64(len(dataPaths)))
	bus.Done()
	return out, report, nil
}

// findDataFrameStart implements spec.md §4.8 decode step 2: scan up to
// the first 300 frames, counting a frame as non-sync once it shows more
// than one unique classified symbol; the first such frame is taken as
// calibration, the next as the first data frame.
func findDataFrameStart(framePaths []string, params config.RasterParams) int {
	limit := len(framePaths)
	if limit > 300 {
		limit = 300
	}
	for i := 0; i < limit; i++ {
		img, err := loadFrame(framePaths[i])
		if err != nil {
			continue
		}
		if countUniqueSymbols(img, params) > 1 {
			return i + 1
		}
	}
	return params.SyncFrames + params.CalibrationFrames
}

func countUniqueSymbols(img image.Image, params config.RasterParams) int {
	seen := make(map[uint8]struct{}, 8)
	for fy := 0; fy < params.GridRows(); fy++ {
		for fx := 0; fx < params.GridCols(); fx++ {
			px, py := fx*params.CellPx, fy*params.CellPx
			sym := classifyPixel(img, px, py)
			seen[sym] = struct{}{}
			if len(seen) > 1 {
				return len(seen)
			}
		}
	}
	return len(seen)
}

func loadFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: opening %s: %w", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("pipeline: decoding %s: %w", path, err)
	}
	return img, nil
}

// decodeFramesConcurrently runs raster.DecodeFrame over a bounded worker
// pool (teacher's reconstructor pattern: job channel, result channel
// tagged by original index, reassembled via a pending map) so concurrent
// I/O and cell classification never reorder the sequence DecodeFrame's
// caller depends on.
func decodeFramesConcurrently(paths []string, params config.RasterParams) ([][]byte, error) {
	type result struct {
		idx int
		buf []byte
		err error
	}

	jobs := make(chan int, len(paths))
	results := make(chan result, len(paths))

	var wg sync.WaitGroup
	for w := 0; w < workerCount(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				img, err := loadFrame(paths[idx])
				if err != nil {
					results <- result{idx: idx, err: err}
					continue
				}
				results <- result{idx: idx, buf: raster.DecodeFrame(img, params)}
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	pending := make(map[int][]byte, len(paths))
	for r := range results {
		if r.err != nil {
			return nil, fmt.Errorf("pipeline: decoding frame: %w", r.err)
		}
		pending[r.idx] = r.buf
	}

	out := make([][]byte, len(paths))
	for i := range paths {
		out[i] = pending[i]
	}
	return out, nil
}

func classifyPixel(img image.Image, x, y int) uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	return palette.Nearest(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}
