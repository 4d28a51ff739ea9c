package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ordenaclinic/ordenaclinic/internal/domain/triage"
	"github.com/ordenaclinic/ordenaclinic/internal/platform/intake"
	"github.com/ordenaclinic/ordenaclinic/internal/platform/render"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// cliLogger keeps stdout for command output.
func cliLogger(cmd *cobra.Command, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()
}

type sortReport struct {
	Arrival []triage.Patient `json:"arrival"`
	Sorted  []triage.Patient `json:"sorted"`
	Metrics triage.Metrics   `json:"metrics"`
}

func writeReport(w io.Writer, format string, arrival []triage.Patient, res triage.Result) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sortReport{Arrival: arrival, Sorted: res.Patients, Metrics: res.Metrics})
	case formatText:
		_, err := io.WriteString(w, render.Report(arrival, res))
		return err
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, formatText, formatJSON)
	}
}

// sortDataset loads candidates into a fresh queue and sorts it.
func sortDataset(ctx context.Context, logger zerolog.Logger, ds *triage.Dataset) ([]triage.Patient, triage.Result, error) {
	svc := triage.NewService(triage.NewMemoryRepo(), logger)
	arrival, err := svc.Load(ctx, ds.Patients)
	if err != nil {
		return nil, triage.Result{}, err
	}
	res, err := svc.SortSnapshot(ctx)
	if err != nil {
		return nil, triage.Result{}, err
	}
	return arrival, res, nil
}

func demoCmd() *cobra.Command {
	var format string
	var verbose bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Sort the built-in example queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			arrival, res, err := sortDataset(cmd.Context(), cliLogger(cmd, verbose), triage.ExampleDataset())
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), format, arrival, res)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text or json")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log queue operations")
	return cmd
}

func sortCmd() *cobra.Command {
	var file, format string
	var verbose bool
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Sort a YAML queue file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := triage.LoadDatasetFile(file)
			if err != nil {
				return err
			}
			arrival, res, err := sortDataset(cmd.Context(), cliLogger(cmd, verbose), ds)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			return writeReport(cmd.OutOrStdout(), format, arrival, res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a patients list")
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text or json")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log queue operations")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func intakeCmd() *cobra.Command {
	var accessible bool
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Build and sort a queue interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := intake.Options{
				In:         cmd.InOrStdin(),
				Out:        cmd.OutOrStdout(),
				Accessible: accessible,
			}
			svc := triage.NewService(triage.NewMemoryRepo(), cliLogger(cmd, false))
			return runIntake(cmd.Context(), svc, opts)
		},
	}
	cmd.Flags().BoolVar(&accessible, "accessible", false, "plain prompts for screen readers")
	return cmd
}

func runIntake(ctx context.Context, svc *triage.Service, opts intake.Options) error {
	out := opts.Out
	for {
		action, err := intake.PromptAction(ctx, opts)
		if err != nil {
			return err
		}
		if action == intake.ActionQuit {
			return nil
		}
		if err := applyAction(ctx, svc, action, opts); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				continue
			}
			var verr *triage.ValidationError
			if !errors.As(err, &verr) {
				return err
			}
			fmt.Fprintf(out, "Patient not added: %s\n", verr.Message)
		}
	}
}

// applyAction runs one menu action against the queue.
func applyAction(ctx context.Context, svc *triage.Service, action string, opts intake.Options) error {
	out := opts.Out
	switch action {
	case intake.ActionAdd:
		cand, err := intake.PromptPatient(ctx, opts)
		if err != nil {
			return err
		}
		p, err := svc.Add(ctx, cand)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Added %s (arrival %d, %s)\n", p.Name(), p.ArrivalSeq(), render.Priority(p))
	case intake.ActionList:
		queue, err := svc.CurrentQueue(ctx)
		if err != nil {
			return err
		}
		if len(queue) == 0 {
			fmt.Fprintln(out, "Queue is empty")
			return nil
		}
		fmt.Fprintln(out, render.QueueTable(queue))
	case intake.ActionSort:
		queue, err := svc.CurrentQueue(ctx)
		if err != nil {
			return err
		}
		res, err := svc.SortSnapshot(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(out, render.Report(queue, res))
	case intake.ActionExample:
		patients, err := svc.LoadExample(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Loaded %d example patients\n", len(patients))
	case intake.ActionClear:
		if err := svc.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Queue cleared")
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}
