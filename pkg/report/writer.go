/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: writer.go
Description: Machine readable reports of analysis and decode runs. Reports are written to
an output directory as JSON or YAML files named by time stamp, kind and run identifier.
*/

package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kleascm/irscope/pkg/decoder"
	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/strategies"
	"github.com/lestrrat-go/strftime"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a report file
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml and yml.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: report format %q", ircore.ErrInvalidArgument, s)
}

// Strategy is one strategy result of an input
type Strategy struct {
	Strategy   string           `json:"strategy" yaml:"strategy"`
	Weight     int              `json:"weight" yaml:"weight"`
	Irp        string           `json:"irp" yaml:"irp"`
	Parameters map[string]int64 `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Warnings   []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Match is one protocol decode
type Match struct {
	Protocol   string           `json:"protocol" yaml:"protocol"`
	Parameters map[string]int64 `json:"parameters" yaml:"parameters"`
	Begin      int              `json:"begin" yaml:"begin"`
	End        int              `json:"end" yaml:"end"`
}

// Input collects the results for one capture
type Input struct {
	Index      int        `json:"index" yaml:"index"`
	Strategies []Strategy `json:"strategies,omitempty" yaml:"strategies,omitempty"`
	Matches    []Match    `json:"matches,omitempty" yaml:"matches,omitempty"`
	// Unmatched lists the [begin,end) spans of a decode tree that nothing matched.
	Unmatched [][2]int `json:"unmatched,omitempty" yaml:"unmatched,omitempty"`
}

// Report is the document written for one command run
type Report struct {
	Kind    string    `json:"kind" yaml:"kind"`
	ID      string    `json:"id" yaml:"id"`
	Created time.Time `json:"created" yaml:"created"`
	Inputs  []Input   `json:"inputs" yaml:"inputs"`
}

// FromAnalysis builds a report from the results of an analyzer run, one slice per input.
func FromAnalysis(id string, results [][]*strategies.Result, radix int) *Report {
	r := &Report{Kind: "analysis", ID: id, Created: time.Now()}
	for i, row := range results {
		in := Input{Index: i}
		for _, res := range row {
			if res == nil {
				continue
			}
			in.Strategies = append(in.Strategies, Strategy{
				Strategy:   res.Kind.Name(),
				Weight:     res.Weight(),
				Irp:        res.Protocol.IrpString(radix),
				Parameters: res.Parameters,
				Warnings:   res.Warnings,
			})
		}
		r.Inputs = append(r.Inputs, in)
	}
	return r
}

// AddDecode appends the decoder result of the next input.
func (r *Report) AddDecode(res *decoder.Result) {
	in := Input{Index: len(r.Inputs)}
	if res != nil && res.Tree != nil {
		for _, node := range res.Tree.Nodes {
			if !node.Matched() {
				in.Unmatched = append(in.Unmatched, [2]int{node.Begin, node.End})
			}
			for _, d := range node.Decodes {
				in.Matches = append(in.Matches, match(d, node.Begin, node.End))
			}
		}
	} else if res != nil {
		for _, d := range res.Decodes {
			in.Matches = append(in.Matches, match(d, d.Begin, d.End))
		}
	}
	r.Inputs = append(r.Inputs, in)
}

func match(d decoder.Decode, begin, end int) Match {
	return Match{Protocol: d.Name(), Parameters: d.Parameters, Begin: begin, End: end}
}

// NewDecodeReport starts an empty decode report.
func NewDecodeReport(id string) *Report {
	return &Report{Kind: "decode", ID: id, Created: time.Now()}
}

// Protocols returns the distinct protocol names of all matches, sorted.
func (r *Report) Protocols() []string {
	seen := make(map[string]bool)
	var names []string
	for _, in := range r.Inputs {
		for _, m := range in.Matches {
			if !seen[m.Protocol] {
				seen[m.Protocol] = true
				names = append(names, m.Protocol)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Write stores the report in dir and returns the file path. The file is named
// <time>_<kind>_<id prefix>.<format>.
func Write(dir string, format Format, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	stamp, err := strftime.Format("%Y-%m-%d_%H-%M-%S", r.Created)
	if err != nil {
		return "", err
	}
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s_%s.%s", stamp, r.Kind, id, format))

	var data []byte
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(r)
	default:
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}
