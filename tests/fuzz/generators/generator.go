// Package generators builds random but syntactically valid solidscript
// programs for fuzzing. Driven from fuzz input bytes the generator turns
// unstructured data into structured source, which reaches far deeper
// into the pipeline than raw byte soup.
package generators

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// RandomSource abstracts the source of randomness.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

// RandSource wraps math/rand.
type RandSource struct {
	*rand.Rand
}

// ByteSource uses a byte slice as a source of randomness. Exhausted
// data yields zeros, which keeps generation total.
type ByteSource struct {
	data []byte
	pos  int
}

func (s *ByteSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	if s.pos >= len(s.data) {
		return 0
	}
	v := int(s.data[s.pos])
	s.pos++
	return v % n
}

func (s *ByteSource) Float64() float64 {
	if s.pos >= len(s.data) {
		return 0.0
	}
	v := int(s.data[s.pos])
	s.pos++
	return float64(v) / 255.0
}

// Generator generates random solidscript code.
type Generator struct {
	src     RandomSource
	depth   int
	vars    []string
	modules []string
}

const (
	MaxDepth      = 4
	MaxStatements = 6
)

func New(seed int64) *Generator {
	return &Generator{
		src:  &RandSource{rand.New(rand.NewSource(seed))},
		vars: []string{"x", "y", "z", "a", "b"},
	}
}

func NewFromData(data []byte) *Generator {
	return &Generator{
		src:  &ByteSource{data: data},
		vars: []string{"x", "y", "z", "a", "b"},
	}
}

// GenerateProgram produces one program. Variables are assigned before
// the first statement that could read them, so generated programs can
// process cleanly end to end.
func (g *Generator) GenerateProgram() string {
	var b strings.Builder
	for _, v := range g.vars[:2] {
		fmt.Fprintf(&b, "%s = %s;\n", v, g.number())
	}
	n := 1 + g.src.Intn(MaxStatements)
	for i := 0; i < n; i++ {
		b.WriteString(g.statement())
		b.WriteByte('\n')
	}
	return b.String()
}

func (g *Generator) statement() string {
	if g.depth >= MaxDepth {
		return g.shape()
	}
	switch g.src.Intn(8) {
	case 0:
		return g.assignment()
	case 1:
		// Only top-level definitions are collected into the registry.
		if g.depth > 0 {
			return g.shape()
		}
		return g.moduleDefinition()
	case 2:
		return g.forLoop()
	case 3:
		return g.ifStatement()
	case 4:
		return g.transform()
	case 5:
		return g.moduleCall()
	default:
		return g.shape()
	}
}

func (g *Generator) assignment() string {
	name := g.vars[g.src.Intn(len(g.vars))]
	return fmt.Sprintf("%s = %s;", name, g.expression())
}

func (g *Generator) expression() string {
	switch g.src.Intn(5) {
	case 0:
		return g.variable()
	case 1:
		op := []string{"+", "-", "*"}[g.src.Intn(3)]
		return fmt.Sprintf("%s %s %s", g.number(), op, g.number())
	case 2:
		return fmt.Sprintf("[%s, %s, %s]", g.number(), g.number(), g.number())
	default:
		return g.number()
	}
}

func (g *Generator) number() string {
	if g.src.Float64() < 0.2 {
		return strconv.FormatFloat(0.5+g.src.Float64()*4, 'g', 3, 64)
	}
	return strconv.Itoa(1 + g.src.Intn(9))
}

func (g *Generator) variable() string {
	// Only the two variables assigned in the preamble are always bound.
	return g.vars[g.src.Intn(2)]
}

func (g *Generator) shape() string {
	switch g.src.Intn(4) {
	case 0:
		return fmt.Sprintf("sphere(%s);", g.number())
	case 1:
		return fmt.Sprintf("cylinder(h = %s, r = %s);", g.number(), g.number())
	case 2:
		return fmt.Sprintf("cube([%s, %s, %s]);", g.number(), g.number(), g.number())
	default:
		return fmt.Sprintf("cube(%s);", g.number())
	}
}

func (g *Generator) body(statements int) string {
	g.depth++
	defer func() { g.depth-- }()

	var b strings.Builder
	for i := 0; i < statements; i++ {
		b.WriteString("    ")
		b.WriteString(g.statement())
		b.WriteByte('\n')
	}
	return b.String()
}

func (g *Generator) forLoop() string {
	iterator := []string{"i", "j", "k"}[g.src.Intn(3)]
	start := g.src.Intn(3)
	end := start + 1 + g.src.Intn(3)
	return fmt.Sprintf("for (%s = [%d:%d]) {\n%s}", iterator, start, end, g.body(1+g.src.Intn(2)))
}

func (g *Generator) ifStatement() string {
	cond := fmt.Sprintf("%s %s %s", g.variable(), []string{">", "<", "=="}[g.src.Intn(3)], g.number())
	if g.src.Intn(2) == 0 {
		return fmt.Sprintf("if (%s) {\n%s}", cond, g.body(1))
	}
	return fmt.Sprintf("if (%s) {\n%s} else {\n%s}", cond, g.body(1), g.body(1))
}

func (g *Generator) transform() string {
	g.depth++
	defer func() { g.depth-- }()

	child := g.shape()
	switch g.src.Intn(3) {
	case 0:
		return fmt.Sprintf("translate([%s, %s, %s]) %s", g.number(), g.number(), g.number(), child)
	case 1:
		return fmt.Sprintf("scale([%s, %s, %s]) %s", g.number(), g.number(), g.number(), child)
	default:
		return fmt.Sprintf("union() {\n    %s\n    %s\n}", child, g.shape())
	}
}

func (g *Generator) moduleDefinition() string {
	name := fmt.Sprintf("part%d", len(g.modules))
	g.modules = append(g.modules, name)
	param := []string{"w", "h", "d"}[g.src.Intn(3)]

	g.depth++
	body := fmt.Sprintf("    cube(%s);\n", param)
	if g.src.Intn(2) == 0 {
		body = fmt.Sprintf("    sphere(%s);\n", param)
	}
	g.depth--

	return fmt.Sprintf("module %s(%s) {\n%s}", name, param, body)
}

func (g *Generator) moduleCall() string {
	if len(g.modules) == 0 {
		return g.shape()
	}
	name := g.modules[g.src.Intn(len(g.modules))]
	return fmt.Sprintf("%s(%s);", name, g.number())
}
