/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command-line interface for irscope. Wires the analyze, decode, clean,
repeatfinder, render and list commands, binds their flags to the configuration and maps
failures to exit codes that separate usage errors from internal ones.
*/

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kleascm/irscope/cmd/irscope/commands"
	"github.com/kleascm/irscope/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	rootCmd := newRootCommand(viper.New(), os.Stdout, os.Stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}

// bind maps flags to configuration keys.
func bind(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}

func newRootCommand(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	d := config.Default()

	rootCmd := &cobra.Command{
		Use:   "irscope",
		Short: "irscope - infrared signal analyzer and decoder",
		Long: `irscope cleans and folds captured infrared signals, infers IRP protocol
descriptions for unknown captures and decodes known ones against a protocol catalogue.
Signals are given as raw durations (+9024 -4512 ...) or as Pronto Hex.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return commands.UsageErrorf("%v", err)
	})

	// Persistent flags
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Configuration file path")
	pf.StringP("file", "f", "", "Read signals from a file, one per block of lines (- for stdin)")
	pf.String("log-level", string(d.Logging.Level), "Logging level (debug, info, warn, error)")
	pf.String("log-format", string(d.Logging.Format), "Log format (text, json, custom)")
	pf.String("log-dir", d.Logging.OutputDir, "Log output directory; empty logs to stderr only")
	pf.Int("log-max-files", d.Logging.MaxFiles, "Maximum number of log files to keep")
	pf.Bool("log-colors", d.Logging.Colors, "Colored log output")
	pf.Bool("log-compress", d.Logging.Compress, "Compress log files when done")
	pf.Float64("frequency", d.Analyzer.Frequency, "Carrier frequency of raw captures in Hz (0 = 38000)")
	pf.Float64("absolute-tolerance", d.Tolerance.Absolute, "Absolute duration tolerance in microseconds")
	pf.Float64("relative-tolerance", d.Tolerance.Relative, "Relative duration tolerance")
	pf.Float64("frequency-tolerance", d.Tolerance.Frequency, "Frequency tolerance in Hz (negative disables the check)")
	pf.Float64("min-repeat-gap", d.RepeatFinder.MinRepeatGap, "Minimum gap ending a repeat in microseconds")
	pf.Float64("min-leadout", d.Decoder.MinLeadout, "Minimum duration treated as a frame end in microseconds")
	pf.String("catalogue", d.Decoder.Catalogue, "Protocol catalogue file replacing the built-in one")
	pf.String("report-dir", "", "Write a report of every analyze or decode run to this directory")
	pf.String("report-format", "json", "Report format (json, yaml)")

	bind(v, pf, map[string]string{
		"config":              "config",
		"file":                "file",
		"log-level":           "logging.level",
		"log-format":          "logging.format",
		"log-dir":             "logging.output_dir",
		"log-max-files":       "logging.max_files",
		"log-colors":          "logging.colors",
		"log-compress":        "logging.compress",
		"frequency":           "analyzer.frequency",
		"absolute-tolerance":  "tolerance.absolute",
		"relative-tolerance":  "tolerance.relative",
		"frequency-tolerance": "tolerance.frequency",
		"min-repeat-gap":      "repeatfinder.min_repeat_gap",
		"min-leadout":         "decoder.min_leadout",
		"catalogue":           "decoder.catalogue",
		"report-dir":          "report.dir",
		"report-format":       "report.format",
	})

	// Add analyze command
	analyzeCmd := &cobra.Command{
		Use:   "analyze [durations | pronto]",
		Short: "Infer an IRP protocol description for captures",
		Long: `Run the decoding strategies (Pwm, Biphase, Serial, ...) on one or more captures
and print the lowest weight description per capture, or every description with --all.`,
		RunE: commands.Analyze(v),
	}
	af := analyzeCmd.Flags()
	af.StringSlice("strategy", nil, "Strategy name patterns to run (default all)")
	af.String("timebase", d.Analyzer.TimeBase, "Time unit: 564, 564u or 21p (default: smallest timing)")
	af.String("bit-direction", d.Analyzer.BitDirection, "Bit order of fields (msb, lsb)")
	af.Bool("extents", d.Analyzer.Extents, "End frames with extents instead of gaps")
	af.Bool("invert", d.Analyzer.Invert, "Swap the meaning of zero and one")
	af.IntSlice("widths", nil, "Widths of the decoded fields, in order")
	af.Int("max-width", d.Analyzer.MaxParameterWidth, "Maximum width of a decoded field")
	af.Bool("parameter-specs", d.Analyzer.ParameterSpecs, "Declare fields as parameters")
	af.Bool("clean", d.Analyzer.Clean, "Quantize the captures before analysis")
	af.Bool("repeat-finder", d.Analyzer.RepeatFinder, "Fold captures into intro, repeat and ending")
	af.Bool("validate", d.Analyzer.Validate, "Render every result and warn when it differs from the input")
	af.Int("parallelism", d.Analyzer.Parallelism, "Concurrent strategy runs (0 = GOMAXPROCS)")
	af.Bool("all", false, "Print every successful strategy")
	af.Int("radix", 16, "Radix of definitions (10, 16)")
	af.Bool("timings", false, "Print the cleaned timings")
	bind(v, af, map[string]string{
		"strategy":        "analyzer.strategies",
		"timebase":        "analyzer.timebase",
		"bit-direction":   "analyzer.bit_direction",
		"extents":         "analyzer.extents",
		"invert":          "analyzer.invert",
		"widths":          "analyzer.parameter_widths",
		"max-width":       "analyzer.max_parameter_width",
		"parameter-specs": "analyzer.parameter_specs",
		"clean":           "analyzer.clean",
		"repeat-finder":   "analyzer.repeat_finder",
		"validate":        "analyzer.validate",
		"parallelism":     "analyzer.parallelism",
		"all":             "analyze.all",
		"radix":           "analyze.radix",
		"timings":         "analyze.timings",
	})
	rootCmd.AddCommand(analyzeCmd)

	// Add decode command
	decodeCmd := &cobra.Command{
		Use:   "decode [durations | pronto]",
		Short: "Decode captures against the protocol catalogue",
		Long: `Match captures against the protocol catalogue and print every matching protocol
with its parameters. With --recursive a long capture is decoded as a sequence of frames.`,
		RunE: commands.Decode(v),
	}
	df := decodeCmd.Flags()
	df.StringSlice("protocols", nil, "Protocols to try (default all)")
	df.Bool("strict", d.Decoder.Strict, "Match intro, repeat and ending separately")
	df.Bool("prefer-over", d.Decoder.PreferOver, "Suppress protocols superseded by a more specific match")
	df.Bool("remove-defaulted", d.Decoder.RemoveDefaultedParameters, "Omit parameters equal to their default")
	df.Bool("recursive", d.Decoder.Recursive, "Decode long captures as a sequence of frames")
	df.Bool("override", d.Decoder.Override, "Let the command line tolerances win over protocol tolerances")
	df.Int("parallelism", d.Decoder.Parallelism, "Concurrent protocol matches (0 = GOMAXPROCS)")
	bind(v, df, map[string]string{
		"protocols":        "decoder.protocols",
		"strict":           "decoder.strict",
		"prefer-over":      "decoder.prefer_over",
		"remove-defaulted": "decoder.remove_defaulted_parameters",
		"recursive":        "decoder.recursive",
		"override":         "decoder.override",
		"parallelism":      "decoder.parallelism",
	})
	rootCmd.AddCommand(decodeCmd)

	// Add clean command
	cleanCmd := &cobra.Command{
		Use:   "clean [durations | pronto]",
		Short: "Quantize captures to their duration clusters",
		RunE:  commands.Clean(v),
	}
	cleanCmd.Flags().Bool("timings", false, "Print the clusters and the cluster names of every duration")
	bind(v, cleanCmd.Flags(), map[string]string{"timings": "clean.timings"})
	rootCmd.AddCommand(cleanCmd)

	// Add repeatfinder command
	repeatCmd := &cobra.Command{
		Use:   "repeatfinder [durations | pronto]",
		Short: "Fold captures into intro, repeat and ending",
		RunE:  commands.RepeatFinder(v),
	}
	repeatCmd.Flags().Bool("clean", false, "Print the folded signal with cleaned durations")
	bind(v, repeatCmd.Flags(), map[string]string{"clean": "repeatfinder.clean"})
	rootCmd.AddCommand(repeatCmd)

	// Add render command
	renderCmd := &cobra.Command{
		Use:   "render <protocol | irp>",
		Short: "Render a protocol for given parameters",
		RunE:  commands.Render(v),
	}
	renderCmd.Flags().StringToInt64P("param", "p", nil, "Parameter values, e.g. D=12,F=56")
	renderCmd.Flags().Bool("pronto", false, "Print Pronto Hex")
	renderCmd.Flags().Int("repeats", 0, "Print one flat sequence with this many repeats")
	bind(v, renderCmd.Flags(), map[string]string{
		"pronto":  "render.pronto",
		"repeats": "render.repeats",
	})
	rootCmd.AddCommand(renderCmd)

	// Add list command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List catalogue protocols or analyzer strategies",
		RunE:  commands.List(v),
	}
	listCmd.Flags().Bool("strategies", false, "List the analyzer strategies instead")
	listCmd.Flags().Bool("verbose", false, "Include protocol documentation")
	bind(v, listCmd.Flags(), map[string]string{
		"strategies": "list.strategies",
		"verbose":    "list.verbose",
	})
	rootCmd.AddCommand(listCmd)

	return rootCmd
}
