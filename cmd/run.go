package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gofmu/gofmu/fmi"
	"github.com/gofmu/gofmu/fmi/host"
	"github.com/gofmu/gofmu/fmi/trace"
)

var (
	runModel     string   // Built-in model name
	runFile      string   // YAML or HCL model file
	runFMI       string   // FMI version override
	runStart     float64  // Experiment start time
	runStop      float64  // Experiment stop time
	runStep      float64  // Communication step size
	runInstances int      // Number of independent instances
	runWorkers   int      // Instances stepped concurrently
	runOut       string   // CSV output path
	runTrace     string   // Trace level
	runColumns   []string // Variables to record
	runMetrics   string   // Prometheus text file output path
)

// runOptions are the resolved settings of one run.
type runOptions struct {
	Instances int
	Workers   int
	// Start, Stop and Step override the model's default experiment when set.
	Start   *float64
	Stop    *float64
	Step    *float64
	Level   trace.Level
	Columns []string
	Metrics *host.Metrics
}

// runCmd steps one or more instances of a model through an experiment
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run instances of a model through an experiment",
	Run: func(cmd *cobra.Command, args []string) {
		if !trace.IsValidLevel(runTrace) {
			logrus.Fatalf("Invalid trace level: %s (valid: none, steps, final)", runTrace)
		}
		src, err := resolveSource(runModel, runFile, runFMI)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		opts := runOptions{
			Instances: runInstances,
			Workers:   runWorkers,
			Level:     trace.Level(runTrace),
			Columns:   runColumns,
		}
		if cmd.Flags().Changed("start") {
			opts.Start = &runStart
		}
		if cmd.Flags().Changed("stop") {
			opts.Stop = &runStop
		}
		if cmd.Flags().Changed("step") {
			opts.Step = &runStep
		}

		var registry *prometheus.Registry
		if runMetrics != "" {
			registry = prometheus.NewRegistry()
			if opts.Metrics, err = host.NewMetrics(registry); err != nil {
				logrus.Fatalf("registering metrics: %v", err)
			}
		}

		startTime := time.Now()
		results, traces, err := simulate(cmd.Context(), src, opts)
		printResults(os.Stdout, results, traces)
		if err != nil {
			logrus.Fatalf("run of %s failed: %v", src.name, err)
		}
		if runOut != "" {
			if err := writeTraces(runOut, traces); err != nil {
				logrus.Fatalf("writing %s: %v", runOut, err)
			}
			logrus.Infof("wrote %d traces to %s", len(traces), runOut)
		}
		if registry != nil {
			if err := prometheus.WriteToTextfile(runMetrics, registry); err != nil {
				logrus.Fatalf("writing %s: %v", runMetrics, err)
			}
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime))
		if failed := host.Failed(results); len(failed) > 0 {
			logrus.Fatalf("%d of %d instances failed", len(failed), len(results))
		}
	},
}

// simulate instantiates opts.Instances copies of the source and runs them
// in parallel. Instances are named <model>_<i>.
func simulate(ctx context.Context, src *modelSource, opts runOptions) ([]*host.Result, []*trace.Trace, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Instances < 1 {
		return nil, nil, fmt.Errorf("instances must be at least 1, got %d", opts.Instances)
	}
	jobs := make([]host.Job, 0, opts.Instances)
	traces := make([]*trace.Trace, 0, opts.Instances)
	for i := 0; i < opts.Instances; i++ {
		inst, err := src.instantiate(fmt.Sprintf("%s_%d", src.name, i))
		if err != nil {
			return nil, nil, err
		}
		exp := host.ExperimentFrom(inst.ModelInfo().DefaultExperiment)
		if opts.Start != nil {
			exp.StartTime = *opts.Start
		}
		if opts.Stop != nil {
			exp.StopTime = *opts.Stop
		}
		if opts.Step != nil {
			exp.StepSize = *opts.Step
		}
		if err := exp.Validate(); err != nil {
			return nil, nil, err
		}
		cols, err := trace.Columns(inst.Registry(), opts.Columns...)
		if err != nil {
			return nil, nil, err
		}
		tr := trace.New(inst.Name(), trace.Config{Level: opts.Level, Columns: cols})
		jobs = append(jobs, host.Job{Instance: inst, Experiment: exp, Trace: tr, Metrics: opts.Metrics})
		traces = append(traces, tr)
	}
	logrus.Infof("running %d instance(s) of %s (FMI %s)", len(jobs), src.name, src.version)
	results, err := host.RunAll(ctx, jobs, opts.Workers)
	return results, traces, err
}

func printResults(w io.Writer, results []*host.Result, traces []*trace.Trace) {
	if len(results) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE\tSTEPS\tRETRIES\tWARNINGS\tTIME\tSTATE\tSTATUS\tFINAL")
	for i, r := range results {
		if r == nil {
			continue
		}
		final := "-"
		if i < len(traces) {
			final = finalValues(trace.Summarize(traces[i]))
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\t%s\n",
			r.Instance, r.Steps, r.Retries, r.Warnings, fmi.FormatFloat(r.FinalTime), r.State, r.Status, final)
	}
	_ = tw.Flush()
}

func finalValues(s *trace.Summary) string {
	if len(s.Columns) == 0 || s.Steps == 0 {
		return "-"
	}
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = c.Name + "=" + c.Final
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func writeTraces(path string, traces []*trace.Trace) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := trace.WriteCSV(f, traces...); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func init() {
	runCmd.Flags().StringVar(&runModel, "model", "", "Built-in model name (see `gofmu models`)")
	runCmd.Flags().StringVar(&runFile, "file", "", "Model file (.yaml, or .hcl for HCL)")
	runCmd.Flags().StringVar(&runFMI, "fmi", "", "FMI version (2.0 or 3.0); defaults to the model's")

	// Experiment window; unset values come from the model's default experiment
	runCmd.Flags().Float64Var(&runStart, "start", 0, "Start time")
	runCmd.Flags().Float64Var(&runStop, "stop", 1, "Stop time")
	runCmd.Flags().Float64Var(&runStep, "step", 0.01, "Communication step size")

	runCmd.Flags().IntVar(&runInstances, "instances", 1, "Number of independent instances")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Instances stepped concurrently (0 = all)")
	runCmd.Flags().StringVar(&runOut, "out", "", "Write the traces as CSV to this path")
	runCmd.Flags().StringVar(&runTrace, "trace", "steps", "Trace level (none, steps, final)")
	runCmd.Flags().StringSliceVar(&runColumns, "columns", nil, "Variables to record (default: all outputs)")
	runCmd.Flags().StringVar(&runMetrics, "metrics-out", "", "Write step metrics in Prometheus text format to this path")
}
