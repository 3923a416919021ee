// Package render delivers emitted geometry to its consumers. A Sink
// receives batches of node summaries; the package ships an in-memory
// Collector, a gRPC sink for remote renderers and a binary STL writer
// for meshed output. Summaries carry evaluated arguments and bounding
// boxes rather than live solids so sinks can serialize them without
// touching kernel internals.
package render

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/funvibe/solidscript/internal/geometry"
)

// Summary is the sink-facing description of one geometry node.
type Summary struct {
	ID     string
	Type   string
	Module string
	Args   map[string]string
	Bounds *Bounds
}

// String renders the summary as one stable line, the form text sinks
// and the CLI print. The node ID is omitted because it changes every
// run.
func (s Summary) String() string {
	var b strings.Builder
	b.WriteString(s.Type)
	b.WriteByte('(')
	b.WriteString(formatArgs(s.Args))
	b.WriteByte(')')
	if s.Module != "" {
		b.WriteString(" module=")
		b.WriteString(s.Module)
	}
	if s.Bounds != nil {
		fmt.Fprintf(&b, " bounds=%s..%s", formatVec(s.Bounds.Min), formatVec(s.Bounds.Max))
	}
	return b.String()
}

// formatArgs prints positional arguments first in call order, then named
// ones alphabetically.
func formatArgs(args map[string]string) string {
	var positional, named []string
	for k := range args {
		if _, err := strconv.Atoi(k); err == nil {
			positional = append(positional, k)
		} else {
			named = append(named, k)
		}
	}
	sort.Slice(positional, func(i, j int) bool {
		a, _ := strconv.Atoi(positional[i])
		b, _ := strconv.Atoi(positional[j])
		return a < b
	})
	sort.Strings(named)

	parts := make([]string, 0, len(args))
	for _, k := range positional {
		parts = append(parts, args[k])
	}
	for _, k := range named {
		parts = append(parts, k+"="+args[k])
	}
	return strings.Join(parts, ", ")
}

func formatVec(v [3]float64) string {
	return fmt.Sprintf("[%g %g %g]", v[0], v[1], v[2])
}

// Bounds is an axis-aligned bounding box. It is nil on summaries of
// nodes that carry no solid payload.
type Bounds struct {
	Min [3]float64
	Max [3]float64
}

// Summarize flattens a geometry node into its wire description.
// Argument values are rendered with their Inspect form.
func Summarize(node *geometry.Node) Summary {
	sum := Summary{
		ID:     node.ID,
		Type:   node.Type,
		Module: node.Metadata.Module,
	}
	if node.Payload == nil {
		return sum
	}
	if len(node.Payload.Args) > 0 {
		sum.Args = make(map[string]string, len(node.Payload.Args))
		for name, v := range node.Payload.Args {
			if v == nil {
				continue
			}
			sum.Args[name] = v.Inspect()
		}
	}
	if node.Payload.Solid != nil {
		bb := node.Payload.Solid.BoundingBox()
		sum.Bounds = &Bounds{
			Min: [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z},
			Max: [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z},
		}
	}
	return sum
}

// SummarizeAll summarizes nodes in emission order.
func SummarizeAll(nodes []*geometry.Node) []Summary {
	sums := make([]Summary, 0, len(nodes))
	for _, node := range nodes {
		if node == nil {
			continue
		}
		sums = append(sums, Summarize(node))
	}
	return sums
}

// Sink receives geometry summaries. Consume may be called several times
// per run; Close flushes and releases whatever the sink holds.
type Sink interface {
	Consume(ctx context.Context, batch []Summary) error
	Close() error
}

// Collector is an in-memory Sink. The CLI uses it for its summary
// output and tests use it to observe what a run emitted.
type Collector struct {
	mu      sync.Mutex
	batches [][]Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Consume(ctx context.Context, batch []Summary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := make([]Summary, len(batch))
	copy(copied, batch)
	c.batches = append(c.batches, copied)
	return nil
}

func (c *Collector) Close() error { return nil }

// Summaries returns every consumed summary in arrival order.
func (c *Collector) Summaries() []Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	var all []Summary
	for _, batch := range c.batches {
		all = append(all, batch...)
	}
	return all
}

// BatchCount reports how many Consume calls the collector has seen.
func (c *Collector) BatchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}
