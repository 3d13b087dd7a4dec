/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: analyze.go
Description: CLI command that infers an IRP description for unknown captures by running
the decoding strategies and printing the best, or every, result per input.
*/

package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/kleascm/irscope/pkg/analysis"
	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/report"
	"github.com/kleascm/irscope/pkg/strategies"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Analyze returns the run function of the analyze command.
func Analyze(v *viper.Viper) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd, v)
		if err != nil {
			return err
		}
		defer s.close()

		inputs, err := readInputs(cmd, v.GetString("file"), args)
		if err != nil {
			return err
		}
		params, err := s.cfg.StrategyParams()
		if err != nil {
			return err
		}
		filter, err := analysis.NewFilter(s.cfg.Analyzer.Strategies...)
		if err != nil {
			return err
		}

		a, err := buildAnalyzer(inputs, s)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		radix := v.GetInt("analyze.radix")
		if v.GetBool("analyze.timings") {
			fmt.Fprint(out, a.Cleaned().String())
		}

		if v.GetBool("analyze.all") {
			all, err := a.SearchAllProtocols(params, filter)
			if err != nil {
				return err
			}
			var missing []int
			for i, results := range all {
				if len(results) == 0 {
					missing = append(missing, i)
					fmt.Fprintf(out, "#%d <no decode>\n", i)
					continue
				}
				for _, r := range results {
					printResult(out, i, r, radix, true)
				}
			}
			if err := writeReport(v, s, report.FromAnalysis(a.ID(), all, radix)); err != nil {
				return err
			}
			if len(missing) > 0 {
				return fmt.Errorf("%w: inputs %v", analysis.ErrNoDecoderMatch, missing)
			}
			return nil
		}

		best, searchErr := a.SearchBestProtocol(params, filter)
		if searchErr != nil && !errors.Is(searchErr, analysis.ErrNoDecoderMatch) {
			return searchErr
		}
		rows := make([][]*strategies.Result, len(best))
		for i, r := range best {
			rows[i] = []*strategies.Result{r}
			if r == nil {
				fmt.Fprintf(out, "#%d <no decode>\n", i)
				continue
			}
			s.logger.LogAnalysis(a.ID(), i, r.Kind.Name(), r.Weight(), r.Protocol.IrpString(radix))
			printResult(out, i, r, radix, false)
		}
		if err := writeReport(v, s, report.FromAnalysis(a.ID(), rows, radix)); err != nil {
			return err
		}
		return searchErr
	}
}

// buildAnalyzer analyzes a single Pronto signal part by part and everything else as
// bare sequences.
func buildAnalyzer(inputs []string, s *session) (*analysis.Analyzer, error) {
	opts := s.cfg.AnalyzerOptions(s.logger.GetLogger())

	seqs := make([]*ircore.IrSequence, 0, len(inputs))
	for i, text := range inputs {
		signal, seq, err := parseSignal(text, s.cfg)
		if err != nil {
			return nil, fmt.Errorf("input #%d: %w", i, err)
		}
		if signal != nil {
			if len(inputs) == 1 {
				return analysis.FromSignal(signal, opts)
			}
			seq = signal.ToModulatedIrSequence(1)
		}
		if opts.Frequency == 0 {
			opts.Frequency = seq.Frequency
		}
		seqs = append(seqs, seq.IrSequence)
	}
	return analysis.New(seqs, opts)
}

func printResult(out io.Writer, input int, r *strategies.Result, radix int, weight bool) {
	if weight {
		fmt.Fprintf(out, "#%d %s (weight %d): %s\n", input, r.Kind.Name(), r.Weight(), r.Protocol.IrpString(radix))
	} else {
		fmt.Fprintf(out, "#%d %s: %s\n", input, r.Kind.Name(), r.Protocol.IrpString(radix))
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(out, "    warning: %s\n", w)
	}
}
