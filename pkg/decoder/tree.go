/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tree.go
Description: Recursive decoding of long captures as a sequence of independent decodes.
*/

package decoder

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kleascm/irscope/pkg/catalogue"
	"github.com/kleascm/irscope/pkg/ircore"
)

// TreeNode covers the durations [Begin, End). Decodes is empty when nothing matched
// there.
type TreeNode struct {
	Begin   int
	End     int
	Decodes []Decode
}

// Matched reports whether the node holds at least one decode.
func (n TreeNode) Matched() bool { return len(n.Decodes) > 0 }

// DecodeTree is the decode of a capture as consecutive nodes.
type DecodeTree struct {
	ID    string
	Nodes []TreeNode
}

// Complete reports whether every node matched.
func (t *DecodeTree) Complete() bool {
	for _, n := range t.Nodes {
		if !n.Matched() {
			return false
		}
	}
	return len(t.Nodes) > 0
}

func (t *DecodeTree) String() string {
	var b strings.Builder
	for i, n := range t.Nodes {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%d,%d)", n.Begin, n.End)
		if !n.Matched() {
			b.WriteString(" <no decode>")
			continue
		}
		for _, d := range n.Decodes {
			b.WriteString(" " + d.String())
		}
	}
	return b.String()
}

// DecodeTree decodes seq from the start. At every position the protocols matching the
// longest span win; the cursor moves past them. A remainder nothing matches becomes a
// final node without decodes.
func (d *Decoder) DecodeTree(seq *ircore.ModulatedIrSequence) (*DecodeTree, error) {
	if seq.Len()%2 != 0 {
		return nil, fmt.Errorf("%w: %d durations", ircore.ErrOddSequenceLength, seq.Len())
	}
	tree := &DecodeTree{ID: uuid.New().String()}
	for pos := 0; pos < seq.Len(); {
		begin := pos
		decodes, err := d.each(func(np *catalogue.NamedProtocol) (*Decode, error) {
			rec, err := np.Protocol.RecognizeSequence(seq, begin, d.params.recognizeParams(np))
			if err != nil {
				return nil, err
			}
			return &Decode{Protocol: np, Parameters: rec.Params, Begin: rec.Begin, End: rec.End}, nil
		})
		if err != nil {
			return nil, err
		}
		longest := begin
		for _, dec := range decodes {
			if dec.End > longest {
				longest = dec.End
			}
		}
		if longest == begin {
			tree.Nodes = append(tree.Nodes, TreeNode{Begin: begin, End: seq.Len()})
			d.logger.WithFields(logrus.Fields{"session": d.id, "tree": tree.ID, "begin": begin}).Debug("Unmatched remainder")
			break
		}
		var best []Decode
		for _, dec := range decodes {
			if dec.End == longest {
				best = append(best, dec)
			}
		}
		tree.Nodes = append(tree.Nodes, TreeNode{Begin: begin, End: longest, Decodes: d.postProcess(best)})
		pos = longest
	}
	return tree, nil
}
