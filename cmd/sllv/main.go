// Command sllv is the CLI front end for the frame codec core: it packs a
// file or directory, optionally encrypts it, hands the result to
// internal/pipeline, and reverses the process on decode. None of this
// wiring lives in the core itself (spec.md §1 Non-goals).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"sllv/internal/config"
	"sllv/internal/crypto"
	"sllv/internal/pipeline"
	"sllv/internal/profile"
	"sllv/pkg/archive"
)

func main() {
	app := cli.NewApp()
	app.Name = "sllv"
	app.Usage = "encode bytes into sequences of color-static frame images, and back"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{
		encodeCommand(),
		decodeCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "sllv: %v\n", err)
		os.Exit(1)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "profile", Value: string(profile.Archive), Usage: "operating profile: archive or scan"},
		cli.IntFlag{Name: "grid-w", Value: 64, Usage: "grid width in cells"},
		cli.IntFlag{Name: "grid-h", Value: 64, Usage: "grid height in cells"},
		cli.StringFlag{Name: "password", Value: "", Usage: "optional encryption password"},
		cli.StringFlag{Name: "log-file", Value: "", Usage: "path to a rotating log file (empty disables file logging)"},
	}
}

func encodeCommand() cli.Command {
	return cli.Command{
		Name:      "encode",
		Usage:     "pack, (optionally encrypt,) and render a file or directory to frame images",
		ArgsUsage: "<input path> <output dir>",
		Flags:     commonFlags(),
		Action:    runEncode,
	}
}

func decodeCommand() cli.Command {
	return cli.Command{
		Name:      "decode",
		Usage:     "read frame images back into the original file or directory",
		ArgsUsage: "<frames dir> <output path>",
		Flags:     commonFlags(),
		Action:    runDecode,
	}
}

func runEncode(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.NewExitError("usage: sllv encode <input path> <output dir>", 1)
	}
	inputPath, outDir := c.Args().Get(0), c.Args().Get(1)
	logger := buildLogger(c.String("log-file"))
	defer logger.Sync()

	params, err := resolveParams(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	data, name, err := archive.Pack(inputPath)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("packing %s: %v", inputPath, err), 1)
	}
	logger.Info("packed input", zap.String("path", inputPath), zap.Int("bytes", len(data)))

	if password := c.String("password"); password != "" {
		data, err = crypto.EncryptWithHash(data, password)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("encrypting: %v", err), 1)
		}
		logger.Info("encrypted payload", zap.Int("bytes", len(data)))
	}

	m, err := pipeline.Encode(data, name, outDir, params, logger, nil)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("encoding: %v", err), 1)
	}

	fmt.Printf("wrote %d frames to %s (%d bytes packed)\n", m.Frames, outDir, len(data))
	return nil
}

func runDecode(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.NewExitError("usage: sllv decode <frames dir> <output path>", 1)
	}
	inDir, outputPath := c.Args().Get(0), c.Args().Get(1)
	logger := buildLogger(c.String("log-file"))
	defer logger.Sync()

	params, err := resolveParams(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	data, report, err := pipeline.Decode(inDir, params, logger, nil)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("decoding: %v", err), 1)
	}
	logger.Info("decoded frames", zap.Int("data_frames", report.DataFrames), zap.Int("dropped_frames", report.DroppedFrames))

	if password := c.String("password"); password != "" {
		data, err = crypto.DecryptWithHash(data, password)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("decrypting: %v", err), 1)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return cli.NewExitError(fmt.Sprintf("creating output dir: %v", err), 1)
	}
	n, err := archive.Unpack(data, outputPath)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("unpacking: %v", err), 1)
	}

	fmt.Printf("recovered %d entries into %s (dropped %d frames)\n", n, outputPath, report.DroppedFrames)
	return nil
}

func resolveParams(c *cli.Context) (config.RasterParams, error) {
	return profile.Resolve(profile.Name(c.String("profile")), c.Int("grid-w"), c.Int("grid-h"))
}

// buildLogger wires a console sink and, when logPath is set, a rotating
// file sink (gopkg.in/natefinch/lumberjack.v2).
func buildLogger(logPath string) *zap.Logger {
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(os.Stderr),
		zapcore.InfoLevel,
	)
	if logPath == "" {
		return zap.New(consoleCore)
	}

	fileSink := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    100, // MB
		MaxBackups: 5,
		MaxAge:     28, // days
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(fileSink),
		zapcore.InfoLevel,
	)
	return zap.New(zapcore.NewTee(consoleCore, fileCore))
}
