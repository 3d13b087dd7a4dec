/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: clean.go
Description: CLI commands for the signal preprocessing steps: quantizing captures with the
cleaner and folding them into intro, repeat and ending with the repeat finder.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/irscope/pkg/cleaner"
	"github.com/kleascm/irscope/pkg/repeatfinder"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Clean returns the run function of the clean command.
func Clean(v *viper.Viper) func(cmd *cobra.Command, args []string) error {
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

		out := cmd.OutOrStdout()
		tol := s.cfg.Tolerance
		for i, text := range inputs {
			signal, seq, err := parseSignal(text, s.cfg)
			if err != nil {
				return fmt.Errorf("input #%d: %w", i, err)
			}
			if signal != nil {
				cleaned, err := cleaner.CleanSignal(signal, tol.Absolute, tol.Relative)
				if err != nil {
					return fmt.Errorf("input #%d: %w", i, err)
				}
				fmt.Fprintf(out, "#%d %s\n", i, cleaned)
				continue
			}

			res := cleaner.Clean(seq.IrSequence, tol.Absolute, tol.Relative)
			fmt.Fprintf(out, "#%d %s\n", i, res.Sequence())
			if v.GetBool("clean.timings") {
				fmt.Fprint(out, res.String())
				fmt.Fprintf(out, "%s\n", res.IndexString())
			}
		}
		return nil
	}
}

// RepeatFinder returns the run function of the repeatfinder command.
func RepeatFinder(v *viper.Viper) func(cmd *cobra.Command, args []string) error {
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

		out := cmd.OutOrStdout()
		params := s.cfg.RepeatFinderParams()
		for i, text := range inputs {
			signal, seq, err := parseSignal(text, s.cfg)
			if err != nil {
				return fmt.Errorf("input #%d: %w", i, err)
			}
			if signal != nil {
				seq = signal.ToModulatedIrSequence(1)
			}

			finder := repeatfinder.New(seq.IrSequence, params)
			data := finder.Data()
			s.logger.Debug("Repeat analysis", map[string]interface{}{"component": "repeatfinder", "input": i, "result": data.String()})

			folded, err := finder.ToIrSignal(seq)
			if v.GetBool("repeatfinder.clean") {
				folded, err = finder.ToIrSignalClean(seq)
			}
			if err != nil {
				return fmt.Errorf("input #%d: %w", i, err)
			}
			fmt.Fprintf(out, "#%d %s\n", i, data)
			fmt.Fprintf(out, "    %s\n", folded)
		}
		return nil
	}
}
