/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: decode.go
Description: CLI command that decodes captures against the protocol catalogue, printing
the matching protocols with their parameters or, in recursive mode, the decode tree.
*/

package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kleascm/irscope/pkg/catalogue"
	"github.com/kleascm/irscope/pkg/decoder"
	"github.com/kleascm/irscope/pkg/report"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Decode returns the run function of the decode command.
func Decode(v *viper.Viper) func(cmd *cobra.Command, args []string) error {
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
		cat, err := loadCatalogue(s)
		if err != nil {
			return err
		}
		d, err := decoder.New(cat, s.cfg.DecoderParameters(s.logger.GetLogger()), s.cfg.Decoder.Protocols...)
		if err != nil {
			return err
		}
		if len(d.Protocols()) == 0 {
			return UsageErrorf("no decodable protocol selected")
		}

		out := cmd.OutOrStdout()
		rep := report.NewDecodeReport(d.ID())
		var missing []int
		for i, text := range inputs {
			signal, seq, err := parseSignal(text, s.cfg)
			if err != nil {
				return fmt.Errorf("input #%d: %w", i, err)
			}
			var res *decoder.Result
			if signal != nil {
				res, err = d.Decode(signal)
			} else {
				res, err = d.DecodeSequence(seq)
			}
			if errors.Is(err, decoder.ErrNoMatch) {
				rep.AddDecode(nil)
				missing = append(missing, i)
				s.logger.LogWarning("decode", fmt.Sprintf("input #%d: no protocol matched", i))
				fmt.Fprintf(out, "#%d <no decode>\n", i)
				continue
			}
			if err != nil {
				return fmt.Errorf("input #%d: %w", i, err)
			}
			rep.AddDecode(res)

			if res.Tree != nil {
				fmt.Fprintf(out, "#%d\n", i)
				for _, line := range strings.Split(res.Tree.String(), "\n") {
					fmt.Fprintf(out, "    %s\n", line)
				}
				for _, node := range res.Tree.Nodes {
					for _, dec := range node.Decodes {
						s.logger.LogDecode(d.ID(), dec.Name(), dec.Parameters, node.Begin, node.End)
					}
				}
				if !res.Tree.Complete() {
					missing = append(missing, i)
					s.logger.LogWarning("decode", fmt.Sprintf("input #%d: decode tree has unmatched spans", i))
				}
				continue
			}
			for _, dec := range res.Decodes {
				s.logger.LogDecode(d.ID(), dec.Name(), dec.Parameters, dec.Begin, dec.End)
				fmt.Fprintf(out, "#%d %s\n", i, dec.String())
			}
		}
		s.logger.Debug("Decode finished", map[string]interface{}{"component": "decode", "session": d.ID(), "protocols": rep.Protocols()})
		if err := writeReport(v, s, rep); err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: inputs %v", decoder.ErrNoMatch, missing)
		}
		return nil
	}
}

// loadCatalogue returns the configured protocol file, or the built-in catalogue.
func loadCatalogue(s *session) (*catalogue.Catalogue, error) {
	if path := s.cfg.Decoder.Catalogue; path != "" {
		cat, err := catalogue.Load(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUsage, err)
		}
		return cat, nil
	}
	return catalogue.Default()
}
