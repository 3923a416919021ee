// Package diagnostics defines the error surface shared by every pipeline
// stage: coded component-level diagnostics with source positions, and the
// stage-tagged IntegrationError the orchestrator hands to callers.
package diagnostics

import (
	"errors"
	"fmt"

	"github.com/funvibe/solidscript/internal/token"
)

// Code identifies a diagnostic class. The letter names the producing stage
// family: S syntax, P processing, E evaluation, M module, G generation,
// C configuration, I internal.
type Code string

const (
	ErrS001 Code = "S001" // unexpected token
	ErrS002 Code = "S002" // unterminated construct
	ErrS003 Code = "S003" // expression recursion limit
	ErrS004 Code = "S004" // malformed literal

	ErrP001 Code = "P001" // node failed validation
	ErrP002 Code = "P002" // unknown node type
	ErrP003 Code = "P003" // batch processing aborted

	ErrE001 Code = "E001" // variable not found
	ErrE002 Code = "E002" // unknown binary operator
	ErrE003 Code = "E003" // operand type mismatch
	ErrE004 Code = "E004" // unsupported expression node

	ErrM001 Code = "M001" // malformed module definition
	ErrM002 Code = "M002" // malformed module call
	ErrM003 Code = "M003" // duplicate parameter name
	ErrM004 Code = "M004" // module not found
	ErrM005 Code = "M005" // recursion depth exceeded

	ErrG001 Code = "G001" // unsupported node type at emission
	ErrG002 Code = "G002" // invalid primitive parameters

	ErrC001 Code = "C001" // pipeline used before initialization
	ErrC002 Code = "C002" // invalid configuration

	ErrI001 Code = "I001" // unexpected internal failure
)

// Diagnostic is a single component-level error with a source position.
type Diagnostic struct {
	Code    Code
	Message string
	Line    int
	Column  int
	File    string
}

func (d *Diagnostic) Error() string {
	switch {
	case d.File != "" && d.Line > 0:
		return fmt.Sprintf("%s:%d:%d: [%s] %s", d.File, d.Line, d.Column, d.Code, d.Message)
	case d.Line > 0:
		return fmt.Sprintf("%d:%d: [%s] %s", d.Line, d.Column, d.Code, d.Message)
	default:
		return fmt.Sprintf("[%s] %s", d.Code, d.Message)
	}
}

// NewError builds a Diagnostic positioned at the given token.
func NewError(code Code, tok token.Token, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column,
	}
}

// NewErrorAt builds a Diagnostic at an explicit source position, for
// stages that work from node spans rather than tokens.
func NewErrorAt(code Code, line, column int, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  column,
	}
}

// Stage names one step of the integration pipeline. StageConfiguration is
// the pseudo-stage used for failures before any real stage has run.
type Stage string

const (
	StageConfiguration Stage = "configuration"
	StageParsing       Stage = "parsing"
	StageASTProcessing Stage = "ast_processing"
	StageModules       Stage = "module_processing"
	StageLoops         Stage = "loop_processing"
	StageConditionals  Stage = "conditional_processing"
	StageGeometry      Stage = "geometry_generation"
)

// Category classifies an integration failure for callers that branch on
// error kind rather than message text.
type Category string

const (
	CategorySyntax        Category = "syntax_error"
	CategoryModule        Category = "module_error"
	CategoryProcessing    Category = "processing_error"
	CategoryGeneration    Category = "generation_error"
	CategoryConfiguration Category = "configuration_error"
	CategoryInternal      Category = "internal_error"
)

// CategoryOf derives the failure category from the first Diagnostic in
// err's chain. The code family decides, not the stage the error surfaced
// in: a missing module reported during geometry emission is still a
// module error. Errors without a Diagnostic are internal.
func CategoryOf(err error) Category {
	var d *Diagnostic
	if !errors.As(err, &d) || len(d.Code) == 0 {
		return CategoryInternal
	}
	switch d.Code[0] {
	case 'S':
		return CategorySyntax
	case 'P', 'E':
		return CategoryProcessing
	case 'M':
		return CategoryModule
	case 'G':
		return CategoryGeneration
	case 'C':
		return CategoryConfiguration
	default:
		return CategoryInternal
	}
}

// IntegrationError is the single aggregated error returned across the
// pipeline's public boundary. It always preserves the original cause and
// carries enough context to be displayed directly.
type IntegrationError struct {
	Message     string
	Stage       Stage
	Category    Category
	Cause       error
	Context     map[string]interface{}
	Suggestions []string
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%s stage failed (%s): %s", e.Stage, e.Category, e.Message)
}

func (e *IntegrationError) Unwrap() error {
	return e.Cause
}

// Wrap builds an IntegrationError around a stage failure, attaching the
// stage's stock recovery suggestions and any caller-provided context.
func Wrap(stage Stage, category Category, cause error, context map[string]interface{}) *IntegrationError {
	msg := "unknown failure"
	if cause != nil {
		msg = cause.Error()
	}
	if context == nil {
		context = map[string]interface{}{}
	}
	return &IntegrationError{
		Message:     msg,
		Stage:       stage,
		Category:    category,
		Cause:       cause,
		Context:     context,
		Suggestions: SuggestionsFor(stage),
	}
}

// SuggestionsFor returns the stock recovery suggestions for a stage. The
// slice is freshly allocated so callers may append to it.
func SuggestionsFor(stage Stage) []string {
	switch stage {
	case StageParsing:
		return []string{
			"check for unbalanced brackets, braces or parentheses",
			"check that statements end with a semicolon",
		}
	case StageASTProcessing:
		return []string{
			"check that every statement uses a supported construct",
		}
	case StageModules:
		return []string{
			"check module definitions and parameter lists",
			"check that every module call names a defined module",
		}
	case StageLoops:
		return []string{
			"check loop ranges: bounds must evaluate to numbers",
		}
	case StageConditionals:
		return []string{
			"check that condition variables are assigned before use",
		}
	case StageGeometry:
		return []string{
			"check primitive parameters (size, radius, height)",
			"check that transformations wrap at least one child shape",
		}
	case StageConfiguration:
		return []string{
			"call Initialize before ProcessCode",
			"review the pipeline configuration for conflicting options",
		}
	default:
		return nil
	}
}
