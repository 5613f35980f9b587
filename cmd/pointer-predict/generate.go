package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointer.predict/internal/fsutil"
	"github.com/banshee-data/pointer.predict/internal/trace"
)

func newGenerateCmd() *cobra.Command {
	defaults := trace.DefaultGenOptions()
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic pointer traces as CSV",
		Long: `Write synthetic pointer traces as CSV.

With --shape all, --out names a directory and one <shape>.csv is written per
shape. Otherwise --out names a file, or "-" for standard output.`,
		Args: cobra.NoArgs,
		RunE: runGenerate,
	}
	f := cmd.Flags()
	f.String("shape", "line", "Trace shape: line, circle, zigzag, stall or all")
	f.Int("samples", defaults.Samples, "Number of samples")
	f.Float64("interval-ms", defaults.IntervalMs, "Time between samples (ms)")
	f.Float64("speed", defaults.Speed, "Pointer speed (px/s)")
	f.Float64("jitter", 0, "Std dev of Gaussian position noise (px)")
	f.Uint64("seed", 1, "Jitter seed")
	f.StringP("out", "o", "-", "Output file, directory for --shape all, or - for stdout")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	shapeName, _ := cmd.Flags().GetString("shape")
	out, _ := cmd.Flags().GetString("out")
	opts := trace.DefaultGenOptions()
	opts.Samples, _ = cmd.Flags().GetInt("samples")
	opts.IntervalMs, _ = cmd.Flags().GetFloat64("interval-ms")
	opts.Speed, _ = cmd.Flags().GetFloat64("speed")
	opts.Jitter, _ = cmd.Flags().GetFloat64("jitter")
	opts.Seed, _ = cmd.Flags().GetUint64("seed")

	if shapeName == "all" {
		if out == "-" {
			return fmt.Errorf("--shape all needs --out to name a directory")
		}
		for _, shape := range trace.Shapes {
			path := filepath.Join(out, string(shape)+".csv")
			if err := generateTo(cmd.OutOrStdout(), shape, opts, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
		}
		return nil
	}

	shape, err := trace.ParseShape(shapeName)
	if err != nil {
		return err
	}
	return generateTo(cmd.OutOrStdout(), shape, opts, out)
}

func generateTo(stdout io.Writer, shape trace.Shape, opts trace.GenOptions, path string) error {
	tr, err := trace.Generate(shape, opts)
	if err != nil {
		return err
	}
	if path == "-" {
		return trace.WriteCSV(stdout, tr)
	}
	return trace.Save(fsutil.OSFileSystem{}, path, tr)
}
