/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: catalogue.go
Description: Catalogue of named protocols loaded from YAML. The catalogue is immutable
after loading and is shared freely between concurrent decoders.
*/

package catalogue

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/irp"
)

// ErrUnknownProtocol is returned for names missing from the catalogue.
var ErrUnknownProtocol = errors.New("unknown protocol")

//go:embed default.yaml
var defaultCatalogue []byte

// Tolerances are the tolerances a protocol declares for itself. Nil fields are not
// declared.
type Tolerances struct {
	Absolute   *float64
	Relative   *float64
	Frequency  *float64
	MinLeadout *float64
}

// Apply returns rp with the declared values replacing the corresponding fields.
func (t Tolerances) Apply(rp irp.RecognizeParams) irp.RecognizeParams {
	if t.Absolute != nil {
		rp.Tolerance.Absolute = *t.Absolute
	}
	if t.Relative != nil {
		rp.Tolerance.Relative = *t.Relative
	}
	if t.Frequency != nil {
		rp.Tolerance.Frequency = *t.Frequency
	}
	if t.MinLeadout != nil {
		rp.MinLeadout = *t.MinLeadout
	}
	return rp
}

// NamedProtocol is a catalogue entry.
type NamedProtocol struct {
	Name          string
	Irp           string
	Protocol      *irp.Protocol
	Documentation string
	PreferOver    []PreferOver
	Tolerances    Tolerances
	Decodable     bool
}

func (n *NamedProtocol) String() string {
	return n.Name + ": " + n.Irp
}

type entry struct {
	Name               string   `yaml:"name"`
	Irp                string   `yaml:"irp"`
	Documentation      string   `yaml:"documentation"`
	PreferOver         []string `yaml:"prefer-over"`
	AbsoluteTolerance  *float64 `yaml:"absolute-tolerance"`
	RelativeTolerance  *float64 `yaml:"relative-tolerance"`
	FrequencyTolerance *float64 `yaml:"frequency-tolerance"`
	MinimumLeadout     *float64 `yaml:"minimum-leadout"`
	Decodable          *bool    `yaml:"decodable"`
}

type document struct {
	Protocols []entry `yaml:"protocols"`
}

// Catalogue holds named protocols in declaration order.
type Catalogue struct {
	protocols []*NamedProtocol
	index     map[string]int
}

// Default returns the built in catalogue.
func Default() (*Catalogue, error) {
	return Parse(defaultCatalogue)
}

// Load reads a catalogue file.
func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue %s: %w", path, err)
	}
	return Parse(data)
}

// Parse reads a YAML catalogue.
func Parse(data []byte) (*Catalogue, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: catalogue: %v", ircore.ErrInvalidArgument, err)
	}
	c := &Catalogue{index: make(map[string]int, len(doc.Protocols))}
	for i, e := range doc.Protocols {
		np, err := e.toNamedProtocol()
		if err != nil {
			return nil, fmt.Errorf("catalogue entry %d: %w", i, err)
		}
		if err := c.add(np); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// New builds a catalogue from already constructed protocols.
func New(protocols ...*NamedProtocol) (*Catalogue, error) {
	c := &Catalogue{index: make(map[string]int, len(protocols))}
	for _, np := range protocols {
		if err := c.add(np); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalogue) add(np *NamedProtocol) error {
	key := strings.ToLower(np.Name)
	if _, dup := c.index[key]; dup {
		return fmt.Errorf("%w: duplicate protocol %q", ircore.ErrInvalidArgument, np.Name)
	}
	c.index[key] = len(c.protocols)
	c.protocols = append(c.protocols, np)
	return nil
}

func (e entry) toNamedProtocol() (*NamedProtocol, error) {
	if strings.TrimSpace(e.Name) == "" {
		return nil, fmt.Errorf("%w: protocol without name", ircore.ErrInvalidArgument)
	}
	proto, err := irp.Parse(e.Irp)
	if err != nil {
		return nil, fmt.Errorf("protocol %s: %w", e.Name, err)
	}
	np := &NamedProtocol{
		Name:          e.Name,
		Irp:           e.Irp,
		Protocol:      proto,
		Documentation: strings.TrimSpace(e.Documentation),
		Tolerances: Tolerances{
			Absolute:   e.AbsoluteTolerance,
			Relative:   e.RelativeTolerance,
			Frequency:  e.FrequencyTolerance,
			MinLeadout: e.MinimumLeadout,
		},
		Decodable: e.Decodable == nil || *e.Decodable,
	}
	for _, s := range e.PreferOver {
		po, err := ParsePreferOver(s)
		if err != nil {
			return nil, fmt.Errorf("protocol %s: %w", e.Name, err)
		}
		np.PreferOver = append(np.PreferOver, po)
	}
	return np, nil
}

// Len returns the number of protocols.
func (c *Catalogue) Len() int { return len(c.protocols) }

// Names returns the protocol names in declaration order.
func (c *Catalogue) Names() []string {
	names := make([]string, len(c.protocols))
	for i, np := range c.protocols {
		names[i] = np.Name
	}
	return names
}

// Protocols returns all protocols in declaration order.
func (c *Catalogue) Protocols() []*NamedProtocol {
	return append([]*NamedProtocol(nil), c.protocols...)
}

// Get looks up a protocol by name, ignoring case.
func (c *Catalogue) Get(name string) (*NamedProtocol, error) {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProtocol, name)
	}
	return c.protocols[i], nil
}

// Select returns the named protocols in catalogue order. Unknown names are reported one
// error each and skipped; an empty list selects everything.
func (c *Catalogue) Select(names []string) ([]*NamedProtocol, []error) {
	if len(names) == 0 {
		return c.Protocols(), nil
	}
	var errs []error
	selected := make(map[int]bool, len(names))
	for _, name := range names {
		i, ok := c.index[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownProtocol, name))
			continue
		}
		selected[i] = true
	}
	var out []*NamedProtocol
	for i, np := range c.protocols {
		if selected[i] {
			out = append(out, np)
		}
	}
	return out, errs
}
