/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the irscope commands. Provides configuration loading,
logging setup, input reading and parsing, and the mapping from errors to exit codes.
*/

package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kleascm/irscope/pkg/analysis"
	"github.com/kleascm/irscope/pkg/config"
	"github.com/kleascm/irscope/pkg/decoder"
	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/irp"
	"github.com/kleascm/irscope/pkg/logging"
	"github.com/kleascm/irscope/pkg/report"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ErrUsage marks errors caused by the command line rather than by the input or the engine.
var ErrUsage = errors.New("usage error")

// Exit codes
const (
	ExitOK       = 0
	ExitInternal = 1
	ExitUsage    = 2
	ExitNoMatch  = 3
)

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	var unassigned *irp.NameUnassignedError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage),
		errors.Is(err, ircore.ErrInvalidArgument),
		errors.Is(err, ircore.ErrOddSequenceLength),
		errors.Is(err, irp.ErrParse),
		errors.Is(err, irp.ErrDomain),
		errors.As(err, &unassigned):
		return ExitUsage
	case errors.Is(err, analysis.ErrNoDecoderMatch),
		errors.Is(err, decoder.ErrNoMatch):
		return ExitNoMatch
	default:
		return ExitInternal
	}
}

// UsageErrorf builds an error that maps to ExitUsage.
func UsageErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// session carries what every command needs: the loaded configuration and a logger.
type session struct {
	cfg    *config.Config
	logger *logging.Logger
}

// setup loads the configuration and starts logging to the command's error stream.
func setup(cmd *cobra.Command, v *viper.Viper) (*session, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lc := cfg.Logging
	lc.Console = cmd.ErrOrStderr()
	logger, err := logging.NewLogger(&lc)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return &session{cfg: cfg, logger: logger}, nil
}

func (s *session) close() {
	if err := s.logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

// writeReport stores r when a report directory is configured.
func writeReport(v *viper.Viper, s *session, r *report.Report) error {
	dir := v.GetString("report.dir")
	if dir == "" {
		return nil
	}
	format, err := report.ParseFormat(v.GetString("report.format"))
	if err != nil {
		return err
	}
	path, err := report.Write(dir, format, r)
	if err != nil {
		return err
	}
	s.logger.Info("Report written", map[string]interface{}{"component": r.Kind, "path": path, "inputs": len(r.Inputs)})
	return nil
}

// readInputs returns the signals to work on. With a file ("-" is stdin) every block of
// lines separated by an empty line is one input; otherwise the arguments form one input.
func readInputs(cmd *cobra.Command, file string, args []string) ([]string, error) {
	if file == "" {
		if len(args) == 0 {
			return nil, UsageErrorf("no signal given; pass durations, Pronto Hex or --file")
		}
		return []string{strings.Join(args, " ")}, nil
	}
	if len(args) > 0 {
		return nil, UsageErrorf("--file and signal arguments are mutually exclusive")
	}

	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	var inputs []string
	var block []string
	flush := func() {
		if len(block) > 0 {
			inputs = append(inputs, strings.Join(block, " "))
			block = nil
		}
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			continue
		}
		if line == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	flush()
	if len(inputs) == 0 {
		return nil, UsageErrorf("%s contains no signal", file)
	}
	return inputs, nil
}

// parseSignal reads Pronto Hex into a signal, and raw durations into a bare sequence.
// Exactly one of the results is non-nil.
func parseSignal(text string, cfg *config.Config) (*ircore.IrSignal, *ircore.ModulatedIrSequence, error) {
	if ircore.IsPronto(text) {
		signal, err := ircore.ParsePronto(text)
		if err != nil {
			return nil, nil, err
		}
		return signal, nil, nil
	}
	seq, err := ircore.ParseIrSequence(text, cfg.Decoder.MinLeadout)
	if err != nil {
		return nil, nil, err
	}
	frequency := cfg.Analyzer.Frequency
	if frequency == 0 {
		frequency = ircore.DefaultFrequency
	}
	mod, err := ircore.NewModulatedIrSequence(seq, frequency, 0)
	if err != nil {
		return nil, nil, err
	}
	return nil, mod, nil
}
