package targets

import (
	"testing"

	"github.com/funvibe/solidscript/internal/parser"
	"github.com/funvibe/solidscript/tests/fuzz/generators"
)

// FuzzParser feeds the parser both raw bytes and structured programs
// derived from them. Raw input may fail with diagnostics but must never
// panic; generator output must parse cleanly.
func FuzzParser(f *testing.F) {
	f.Add([]byte("cube(10);"))
	f.Add([]byte("module box(w) { cube(w); } box(2);"))
	f.Add([]byte("for (i = [0:2]) cube(i + 1);"))
	f.Add([]byte("if (x > 1) { cube(1); } else { sphere(1); }"))
	f.Add([]byte("cube(1"))
	f.Add([]byte("}{"))
	f.Add([]byte("= = ="))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Arbitrary bytes: only the no-panic property holds.
		p := parser.New(string(data))
		p.ParseProgram()
		_ = p.Errors()

		// Structured input: the generator only emits valid syntax.
		code := generators.NewFromData(data).GenerateProgram()
		gp := parser.New(code)
		program := gp.ParseProgram()
		if errs := gp.Errors(); len(errs) > 0 {
			t.Errorf("generated code failed to parse:\n%s\nErrors:\n%v", code, errs)
		}
		for _, node := range program {
			if node == nil {
				t.Errorf("parser returned a nil statement for:\n%s", code)
			}
		}
	})
}
