package main

import (
	"context"
	"fmt"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointer.predict/internal/api"
	"github.com/banshee-data/pointer.predict/internal/httputil"
	"github.com/banshee-data/pointer.predict/internal/predict"
	"github.com/banshee-data/pointer.predict/internal/report"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay TRACE",
		Short: "Stream a trace to a running service and report its accuracy",
		Long: `Stream a trace to a running service, one sample per request, and verify
every returned prediction against the trace position at its target time.

TRACE is a .csv or .json file, or gen:<shape> for a synthetic trace.`,
		Args: cobra.ExactArgs(1),
		RunE: runReplay,
	}
	f := cmd.Flags()
	f.String("server", getEnvStr("POINTER_PREDICT_SERVER", "http://localhost:8080"), "Service base URL")
	f.String("pointer", "", "Pointer ID (default: a new random ID)")
	f.Bool("realtime", false, "Pace requests by the trace timestamps")
	f.String("algorithm", "", "Algorithm the session uses while the service has auto-selection off")
	f.Bool("keep", false, "Keep the session on the server afterwards")
	f.BoolP("quiet", "q", false, "Hide the progress bar")
	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	server, _ := cmd.Flags().GetString("server")
	pointer, _ := cmd.Flags().GetString("pointer")
	realtime, _ := cmd.Flags().GetBool("realtime")
	keep, _ := cmd.Flags().GetBool("keep")
	quiet, _ := cmd.Flags().GetBool("quiet")
	algorithmName, _ := cmd.Flags().GetString("algorithm")

	tr, err := loadTrace(args[0])
	if err != nil {
		return err
	}
	if pointer == "" {
		pointer = api.NewID()
	}
	if !api.ValidPointerID(pointer) {
		return fmt.Errorf("invalid pointer id %q", pointer)
	}
	var algorithm *predict.Algorithm
	if algorithmName != "" {
		alg, err := predict.ParseAlgorithm(algorithmName)
		if err != nil {
			return err
		}
		algorithm = &alg
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := httputil.NewClient(server, nil)
	base := "/api/pointers/" + url.PathEscape(pointer)

	barOut := cmd.ErrOrStderr()
	if quiet {
		barOut = nil
	}
	rep := report.NewTerminalReporter(cmd.OutOrStdout(), barOut)
	rep.StartProgress("replaying "+tr.Name, len(tr.Samples))

	var predictions, verified int
	for i, s := range tr.Samples {
		if realtime && i > 0 {
			wait := time.Duration((s.Timestamp - tr.Samples[i-1].Timestamp) * float64(time.Millisecond))
			if err := sleepCtx(ctx, wait); err != nil {
				rep.FinishProgress()
				return err
			}
		}

		var resp api.SamplesResponse
		if err := client.PostJSON(ctx, base+"/samples", s, &resp); err != nil {
			rep.FinishProgress()
			return fmt.Errorf("sample %d: %w", i, err)
		}
		// The first sample creates the session.
		if i == 0 && algorithm != nil {
			if err := client.PutJSON(ctx, base+"/algorithm", api.AlgorithmBody{Algorithm: *algorithm}, nil); err != nil {
				rep.FinishProgress()
				return fmt.Errorf("set algorithm: %w", err)
			}
		}
		if p := resp.Prediction; p != nil {
			predictions++
			// The service keeps one pending prediction, so score it now
			// against where the trace says the pointer went.
			if x, y, ok := tr.PositionAt(p.Timestamp); ok {
				if err := client.PostJSON(ctx, base+"/verify", api.VerifyRequest{X: x, Y: y}, nil); err != nil {
					rep.FinishProgress()
					return fmt.Errorf("verify after sample %d: %w", i, err)
				}
				verified++
			}
		}
		rep.Progress(i+1, len(tr.Samples))
	}
	rep.FinishProgress()

	var metrics predict.EngineMetrics
	if err := client.GetJSON(ctx, base+"/metrics", &metrics); err != nil {
		return err
	}
	if !keep {
		if err := client.Delete(ctx, base); err != nil {
			return err
		}
	}

	rep.Section(fmt.Sprintf("REPLAY %s -> %s", tr.Name, server))
	const w = 12
	rep.Label(w, "Pointer:", pointer)
	rep.Label(w, "Samples:", fmt.Sprint(len(tr.Samples)))
	rep.Label(w, "Predictions:", fmt.Sprintf("%d (%d verified)", predictions, verified))
	rep.Label(w, "Accuracy:", fmt.Sprintf("%.1f%%", metrics.OverallAccuracy*100))
	rep.Label(w, "Horizon:", fmt.Sprintf("%.1f ms", metrics.AverageHorizonMs))
	rep.Label(w, "Algorithm:", metrics.CurrentAlgorithm.String())
	for _, m := range metrics.Algorithms {
		if m.SampleCount == 0 {
			continue
		}
		rep.Label(w, m.Algorithm.String()+":", fmt.Sprintf("mean %.2fpx  max %.2fpx  n=%d", m.AverageError, m.MaxError, m.SampleCount))
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
