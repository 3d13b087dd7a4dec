/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: render.go
Description: CLI commands for working with protocol definitions: rendering a catalogue
protocol or an IRP text for given parameters, and listing the catalogue and the
analyzer strategies.
*/

package commands

import (
	"fmt"
	"strings"

	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/irp"
	"github.com/kleascm/irscope/pkg/strategies"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Render returns the run function of the render command.
func Render(v *viper.Viper) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd, v)
		if err != nil {
			return err
		}
		defer s.close()

		if len(args) != 1 {
			return UsageErrorf("render takes exactly one protocol name or IRP")
		}
		params, err := cmd.Flags().GetStringToInt64("param")
		if err != nil {
			return UsageErrorf("%v", err)
		}

		protocol, err := resolveProtocol(s, args[0])
		if err != nil {
			return err
		}
		signal, err := protocol.Render(params)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if v.GetBool("render.pronto") {
			pronto, err := ircore.FormatPronto(signal)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, pronto)
			return nil
		}
		if n := v.GetInt("render.repeats"); n > 0 {
			fmt.Fprintln(out, signal.ToModulatedIrSequence(n).IrSequence)
			return nil
		}
		fmt.Fprintln(out, signal)
		return nil
	}
}

// resolveProtocol accepts IRP text or the name of a catalogue protocol.
func resolveProtocol(s *session, arg string) (*irp.Protocol, error) {
	if strings.HasPrefix(strings.TrimSpace(arg), "{") {
		return irp.Parse(arg)
	}
	cat, err := loadCatalogue(s)
	if err != nil {
		return nil, err
	}
	np, err := cat.Get(arg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return np.Protocol, nil
}

// List returns the run function of the list command.
func List(v *viper.Viper) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd, v)
		if err != nil {
			return err
		}
		defer s.close()

		out := cmd.OutOrStdout()
		if v.GetBool("list.strategies") {
			fmt.Fprintln(out, "Strategies")
			fmt.Fprintln(out, "==========")
			for _, k := range strategies.Kinds() {
				fmt.Fprintf(out, "%-24s %s\n", k.Name(), k.Description())
			}
			return nil
		}

		cat, err := loadCatalogue(s)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Protocols (%d)\n", cat.Len())
		fmt.Fprintln(out, "=============")
		for _, np := range cat.Protocols() {
			line := fmt.Sprintf("%-10s %s", np.Name, np.Irp)
			if !np.Decodable {
				line += " (not decodable)"
			}
			fmt.Fprintln(out, line)
			if v.GetBool("list.verbose") && np.Documentation != "" {
				fmt.Fprintf(out, "           %s\n", strings.TrimSpace(np.Documentation))
			}
		}
		return nil
	}
}
