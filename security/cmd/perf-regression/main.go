// Command perf-regression fails CI when a gated engine benchmark regresses.
//
// The gated benchmarks and the units compared for each are read from
// //perf:gate directives in the benchmark source (engine_bench_test.go by
// default), so adding a gate is a one-line change next to the benchmark.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

const (
	defaultThreshold = 0.30
	defaultSource    = "engine_bench_test.go"
	gateDirective    = "//perf:gate"
)

var errRegression = errors.New("performance regression threshold exceeded")

// gate is one benchmark compared in CI and the units that must not regress.
type gate struct {
	Benchmark string
	Units     []string
}

// results holds every sample by benchmark then unit.
type results map[string]map[string][]float64

type verdict struct {
	Benchmark string
	Unit      string
	Baseline  float64
	Candidate float64
	Delta     float64
	Problem   string
}

func (v verdict) failed(threshold float64) bool {
	return v.Problem != "" || v.Delta > threshold
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		baselinePath  string
		candidatePath string
		sourcePath    string
		threshold     float64
	)

	cmd := &cobra.Command{
		Use:           "perf-regression",
		Short:         "Compare go test -bench output for the benchmarks marked //perf:gate",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if threshold < 0 {
				return errors.New("--threshold must be >= 0")
			}
			gates, err := loadGates(sourcePath)
			if err != nil {
				return fmt.Errorf("load gates: %w", err)
			}
			if len(gates) == 0 {
				return fmt.Errorf("no %s directives in %s", gateDirective, sourcePath)
			}
			baseline, err := readResultsFile(baselinePath, gates)
			if err != nil {
				return fmt.Errorf("read baseline: %w", err)
			}
			candidate, err := readResultsFile(candidatePath, gates)
			if err != nil {
				return fmt.Errorf("read candidate: %w", err)
			}

			verdicts := evaluate(gates, baseline, candidate)
			render(cmd.OutOrStdout(), verdicts, threshold)

			var failed []string
			for _, v := range verdicts {
				if v.failed(threshold) {
					failed = append(failed, v.Benchmark+" "+v.Unit)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%w: %s", errRegression, strings.Join(failed, ", "))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&baselinePath, "baseline", "", "baseline go test -bench output")
	flags.StringVar(&candidatePath, "candidate", "", "candidate go test -bench output")
	flags.StringVar(&sourcePath, "source", defaultSource, "Go file whose //perf:gate directives select the benchmarks")
	flags.Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	_ = cmd.MarkFlagRequired("baseline")
	_ = cmd.MarkFlagRequired("candidate")
	return cmd
}

// loadGates returns the benchmarks of path carrying a //perf:gate directive, in
// source order. A directive without units gates ns/op.
func loadGates(path string) ([]gate, error) {
	file, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	var gates []gate
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || fn.Doc == nil || !strings.HasPrefix(fn.Name.Name, "Benchmark") {
			continue
		}
		for _, c := range fn.Doc.List {
			rest, ok := strings.CutPrefix(c.Text, gateDirective)
			if !ok || (rest != "" && rest[0] != ' ') {
				continue
			}
			units := strings.Fields(rest)
			if len(units) == 0 {
				units = []string{"ns/op"}
			}
			gates = append(gates, gate{Benchmark: fn.Name.Name, Units: units})
			break
		}
	}
	return gates, nil
}

func readResultsFile(path string, gates []gate) (results, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseResults(f, gates)
}

// parseResults collects "value unit" pairs from benchmark lines of gated
// benchmarks. Sub-benchmarks and other lines are ignored.
func parseResults(r io.Reader, gates []gate) (results, error) {
	wanted := make(map[string]bool, len(gates))
	for _, g := range gates {
		wanted[g.Benchmark] = true
	}

	out := results{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || !strings.HasPrefix(fields[0], "Benchmark") {
			continue
		}
		name := trimProcs(fields[0])
		if !wanted[name] {
			continue
		}
		units := out[name]
		if units == nil {
			units = map[string][]float64{}
			out[name] = units
		}
		// fields[1] is the iteration count.
		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			units[fields[i+1]] = append(units[fields[i+1]], value)
		}
	}
	return out, scanner.Err()
}

// trimProcs drops the -GOMAXPROCS suffix go test appends to benchmark names.
func trimProcs(name string) string {
	i := strings.LastIndexByte(name, '-')
	if i <= 0 {
		return name
	}
	if _, err := strconv.Atoi(name[i+1:]); err != nil {
		return name
	}
	return name[:i]
}

func evaluate(gates []gate, baseline, candidate results) []verdict {
	var out []verdict
	for _, g := range gates {
		for _, unit := range g.Units {
			v := verdict{Benchmark: g.Benchmark, Unit: unit}
			base, cand := baseline[g.Benchmark][unit], candidate[g.Benchmark][unit]
			switch {
			case len(base) == 0:
				v.Problem = "no baseline samples"
			case len(cand) == 0:
				v.Problem = "no candidate samples"
			default:
				v.Baseline, v.Candidate = median(base), median(cand)
				if v.Baseline <= 0 {
					v.Problem = "baseline median is not positive"
					break
				}
				v.Delta = (v.Candidate - v.Baseline) / v.Baseline
			}
			out = append(out, v)
		}
	}
	return out
}

func render(w io.Writer, verdicts []verdict, threshold float64) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "BENCHMARK\tUNIT\tBASELINE\tCANDIDATE\tDELTA\tSTATUS\n")
	for _, v := range verdicts {
		status := "ok"
		switch {
		case v.Problem != "":
			status = v.Problem
		case v.Delta > threshold:
			status = fmt.Sprintf("regressed (limit %+.0f%%)", threshold*100)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\t%+.2f%%\t%s\n", v.Benchmark, v.Unit, v.Baseline, v.Candidate, v.Delta*100, status)
	}
	_ = tw.Flush()
}

func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
