package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointer.predict/internal/evaluate"
	"github.com/banshee-data/pointer.predict/internal/predict"
	"github.com/banshee-data/pointer.predict/internal/report"
	"github.com/banshee-data/pointer.predict/internal/security"
	"github.com/banshee-data/pointer.predict/internal/store"
	"github.com/banshee-data/pointer.predict/internal/trace"
)

// generatedPrefix marks a trace argument as a synthetic shape, e.g.
// "gen:circle".
const generatedPrefix = "gen:"

func newEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate TRACE...",
		Short: "Replay traces through every algorithm and compare prediction error",
		Long: `Replay traces through every algorithm and compare prediction error.

Each TRACE is a .csv or .json file, or gen:<shape> for a synthetic trace
(line, circle, zigzag or stall). Every trace is replayed once per algorithm
with auto-selection off and once with auto-selection on. --algorithm limits
each trace to a single run: an algorithm name, or "auto".`,
		Args: cobra.MinimumNArgs(1),
		RunE: runEvaluate,
	}
	f := cmd.Flags()
	f.String("config", getEnvStr("POINTER_PREDICT_CONFIG", ""), "Tuning config file (.json, .yaml, .yml)")
	f.String("db", getEnvStr("POINTER_PREDICT_DB", ""), "SQLite file to store results in (empty disables)")
	f.String("plot-dir", "", "Directory for PNG plots and HTML charts (empty disables)")
	f.String("algorithm", "", "Replay with a single algorithm (or \"auto\") instead of comparing all")
	f.Float64("min-confidence", -1, "Override min_confidence; negative keeps the config value")
	f.Bool("json", false, "Print comparisons as JSON")
	f.BoolP("quiet", "q", false, "Hide progress bars")
	return cmd
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	dbPath, _ := cmd.Flags().GetString("db")
	plotDir, _ := cmd.Flags().GetString("plot-dir")
	minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
	asJSON, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	algorithm, _ := cmd.Flags().GetString("algorithm")

	_, cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	single := algorithm != ""
	if single {
		if algorithm == evaluate.LabelAuto {
			cfg.AutoSelect = true
		} else {
			alg, err := predict.ParseAlgorithm(algorithm)
			if err != nil {
				return err
			}
			cfg.AutoSelect = false
			cfg.DefaultAlgorithm = alg
		}
	}
	if minConfidence >= 0 {
		cfg.MinConfidence = minConfidence
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	var st *store.Store
	if dbPath != "" {
		st, err = store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open run store: %w", err)
		}
		defer st.Close()
	}
	if plotDir != "" {
		if err := os.MkdirAll(plotDir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", plotDir, err)
		}
	}

	barOut := cmd.ErrOrStderr()
	if quiet || asJSON {
		barOut = nil
	}
	rep := report.NewTerminalReporter(cmd.OutOrStdout(), barOut)

	var comparisons []*evaluate.Comparison
	for _, arg := range args {
		tr, err := loadTrace(arg)
		if err != nil {
			return err
		}

		var cmp *evaluate.Comparison
		if single {
			rep.StartProgress(tr.Name, len(tr.Samples))
			var res *evaluate.Result
			res, err = evaluate.Run(tr, cfg, evaluate.Options{Progress: rep.Progress})
			if res != nil {
				cmp = evaluate.Single(res)
			}
		} else {
			rep.StartProgress(tr.Name, (len(predict.Algorithms)+1)*len(tr.Samples))
			cmp, err = evaluate.Compare(tr, cfg, rep.Progress)
		}
		rep.FinishProgress()
		if err != nil {
			return fmt.Errorf("trace %s: %w", tr.Name, err)
		}
		comparisons = append(comparisons, cmp)

		if !asJSON {
			rep.Comparison(cmp)
		}
		if st != nil {
			var id string
			if single {
				id, err = st.SaveRun(cmp.Runs[0])
			} else {
				id, err = st.SaveComparison(cmp)
			}
			if err != nil {
				return fmt.Errorf("trace %s: %w", tr.Name, err)
			}
			if !asJSON {
				rep.Label(9, "Stored:", id)
			}
		}
		if plotDir != "" {
			if err := writePlots(plotDir, cmp); err != nil {
				return err
			}
			if !asJSON {
				rep.Label(9, "Plots:", plotDir)
			}
		}
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(comparisons)
	}
	return nil
}

// loadTrace reads a trace file or generates a gen:<shape> trace.
func loadTrace(arg string) (*trace.Trace, error) {
	if name, ok := strings.CutPrefix(arg, generatedPrefix); ok {
		shape, err := trace.ParseShape(name)
		if err != nil {
			return nil, err
		}
		return trace.Generate(shape, trace.DefaultGenOptions())
	}
	return trace.Load(arg)
}

func writePlots(dir string, cmp *evaluate.Comparison) error {
	base, err := security.OutputPath(dir, cmp.Trace, "")
	if err != nil {
		return err
	}
	rows := report.RowsFromComparison(cmp)

	if err := report.WriteErrorPlot(base+"-errors.png", cmp.Trace+" - prediction error", rows); err != nil {
		return err
	}
	if cmp.Best != "" {
		if err := report.WriteErrorTimeline(base+"-timeline.png", cmp); err != nil {
			return err
		}
	}

	f, err := os.Create(base + ".html")
	if err != nil {
		return fmt.Errorf("failed to create chart: %w", err)
	}
	if err := report.RenderComparison(f, rows, report.ChartOptions{
		Title:    "Prediction error by algorithm",
		Subtitle: cmp.Trace,
	}); err != nil {
		f.Close()
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return f.Close()
}

