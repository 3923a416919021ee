package diagnostics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/funvibe/solidscript/internal/token"
)

func TestDiagnosticError_Formats(t *testing.T) {
	tests := []struct {
		name string
		diag *Diagnostic
		want string
	}{
		{
			name: "with file and position",
			diag: &Diagnostic{Code: ErrS001, Message: "unexpected token", Line: 3, Column: 7, File: "model.scad"},
			want: "model.scad:3:7: [S001] unexpected token",
		},
		{
			name: "position only",
			diag: &Diagnostic{Code: ErrE001, Message: "variable not found: x", Line: 1, Column: 5},
			want: "1:5: [E001] variable not found: x",
		},
		{
			name: "no position",
			diag: &Diagnostic{Code: ErrC002, Message: "invalid configuration"},
			want: "[C002] invalid configuration",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.diag.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewError_UsesTokenPosition(t *testing.T) {
	tok := token.Token{Line: 4, Column: 12}
	d := NewError(ErrS004, tok, "malformed literal %q", "1..2")
	if d.Line != 4 || d.Column != 12 {
		t.Errorf("position = %d:%d, want 4:12", d.Line, d.Column)
	}
	if d.Message != `malformed literal "1..2"` {
		t.Errorf("Message = %q", d.Message)
	}
}

func TestWrap(t *testing.T) {
	cause := NewErrorAt(ErrM004, 2, 1, "module not found: gear")
	err := Wrap(StageModules, CategoryModule, cause, map[string]interface{}{"module": "gear"})

	if err.Stage != StageModules || err.Category != CategoryModule {
		t.Errorf("tags = %s/%s, want module_processing/module_error", err.Stage, err.Category)
	}
	if err.Message != cause.Error() {
		t.Errorf("Message = %q, want cause text", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error does not unwrap to its cause")
	}
	if err.Context["module"] != "gear" {
		t.Errorf("Context[module] = %v", err.Context["module"])
	}
	if len(err.Suggestions) == 0 {
		t.Error("no suggestions attached")
	}

	want := "module_processing stage failed (module_error): 2:1: [M004] module not found: gear"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrap_NilCauseAndContext(t *testing.T) {
	err := Wrap(StageGeometry, CategoryGeneration, nil, nil)
	if err.Message != "unknown failure" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Context == nil {
		t.Error("Context not initialized")
	}
	if errors.Unwrap(err) != nil {
		t.Error("nil cause should unwrap to nil")
	}
}

func TestSuggestionsFor_CoversEveryStage(t *testing.T) {
	stages := []Stage{
		StageConfiguration, StageParsing, StageASTProcessing,
		StageModules, StageLoops, StageConditionals, StageGeometry,
	}
	for _, stage := range stages {
		if len(SuggestionsFor(stage)) == 0 {
			t.Errorf("no suggestions for stage %s", stage)
		}
	}
	if SuggestionsFor(Stage("rendering")) != nil {
		t.Error("unknown stage should have no suggestions")
	}
}

func TestSuggestionsFor_ReturnsFreshSlice(t *testing.T) {
	first := SuggestionsFor(StageParsing)
	first[0] = "mutated"
	second := SuggestionsFor(StageParsing)
	if second[0] == "mutated" {
		t.Error("callers share a suggestion slice")
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"syntax", NewErrorAt(ErrS002, 1, 1, "unterminated block"), CategorySyntax},
		{"processing", NewErrorAt(ErrP002, 1, 1, "unknown node type"), CategoryProcessing},
		{"evaluation maps to processing", NewErrorAt(ErrE003, 1, 1, "type mismatch"), CategoryProcessing},
		{"module", NewErrorAt(ErrM005, 1, 1, "recursion depth exceeded"), CategoryModule},
		{"generation", NewErrorAt(ErrG002, 1, 1, "invalid size"), CategoryGeneration},
		{"configuration", NewErrorAt(ErrC001, 0, 0, "not initialized"), CategoryConfiguration},
		{"internal code", NewErrorAt(ErrI001, 0, 0, "panic recovered"), CategoryInternal},
		{"wrapped diagnostic", fmt.Errorf("statement 2: %w", NewErrorAt(ErrM004, 1, 1, "module not found")), CategoryModule},
		{"plain error", errors.New("disk full"), CategoryInternal},
		{"nil", nil, CategoryInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategoryOf(tt.err); got != tt.want {
				t.Errorf("CategoryOf() = %s, want %s", got, tt.want)
			}
		})
	}
}
