package diagnostic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/walteh/dbtls/pkg/parser"
	"github.com/walteh/dbtls/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// Diagnostics represents diagnostic information that can be formatted in different ways
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Hints    []Diagnostic
}

// Diagnostic represents a single diagnostic message
type Diagnostic struct {
	Message  string
	Range    position.Range
	Severity DiagnosticSeverity
	// Code is the category of the underlying parse error, if any.
	Code string
}

// DiagnosticSeverity represents the severity level of a diagnostic
type DiagnosticSeverity string

const (
	Error   DiagnosticSeverity = "error"
	Warning DiagnosticSeverity = "warning"
	Info    DiagnosticSeverity = "info"
	Hint    DiagnosticSeverity = "hint"
)

// LSP severity numbers
func (s DiagnosticSeverity) Protocol() int {
	switch s {
	case Error:
		return 1
	case Warning:
		return 2
	case Info:
		return 3
	}
	return 4
}

// FromParse converts the recoverable errors of a parse into diagnostics,
// positioned using idx.
func FromParse(errs []parser.ParseError, idx *position.Index) *Diagnostics {
	diagnostics := &Diagnostics{
		Errors:   make([]Diagnostic, 0, len(errs)),
		Warnings: make([]Diagnostic, 0),
	}
	for _, e := range errs {
		diagnostics.Add(Diagnostic{
			Message:  e.Message,
			Range:    idx.Range(e.Range),
			Severity: Error,
			Code:     e.Category.String(),
		})
	}
	return diagnostics
}

func (me *Diagnostics) Add(d Diagnostic) {
	switch d.Severity {
	case Error:
		me.Errors = append(me.Errors, d)
	case Warning:
		me.Warnings = append(me.Warnings, d)
	default:
		me.Hints = append(me.Hints, d)
	}
}

// All returns errors, then warnings, then hints.
func (me *Diagnostics) All() []Diagnostic {
	out := make([]Diagnostic, 0, len(me.Errors)+len(me.Warnings)+len(me.Hints))
	out = append(out, me.Errors...)
	out = append(out, me.Warnings...)
	return append(out, me.Hints...)
}

func (me *Diagnostics) Len() int {
	return len(me.Errors) + len(me.Warnings) + len(me.Hints)
}

// Formatter formats diagnostics into different output formats
type Formatter interface {
	// Format formats the diagnostics of one file
	Format(file string, diagnostics *Diagnostics) ([]byte, error)
}

// NewFormatter returns the formatter for name, "text" or "json".
func NewFormatter(name string) (Formatter, error) {
	switch name {
	case "text", "":
		return &TextFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	}
	return nil, errors.Errorf("unknown diagnostics format %q", name)
}

// TextFormatter prints one "file:line:col: severity: message" line per
// diagnostic, with 1-based line and column.
type TextFormatter struct{}

func (f *TextFormatter) Format(file string, diagnostics *Diagnostics) ([]byte, error) {
	if diagnostics == nil {
		return nil, errors.Errorf("diagnostics is nil")
	}
	var sb strings.Builder
	for _, d := range diagnostics.All() {
		fmt.Fprintf(&sb, "%s:%d:%d: %s: %s", file, d.Range.Start.Line+1, d.Range.Start.Character+1, d.Severity, d.Message)
		if d.Code != "" {
			fmt.Fprintf(&sb, " [%s]", d.Code)
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}

// JSONFormatter emits the LSP diagnostic shape, one JSON array per file.
type JSONFormatter struct{}

type jsonPlace struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type jsonRange struct {
	Start jsonPlace `json:"start"`
	End   jsonPlace `json:"end"`
}

type jsonDiagnostic struct {
	File     string    `json:"file"`
	Severity int       `json:"severity"`
	Code     string    `json:"code,omitempty"`
	Message  string    `json:"message"`
	Range    jsonRange `json:"range"`
}

func (f *JSONFormatter) Format(file string, diagnostics *Diagnostics) ([]byte, error) {
	if diagnostics == nil {
		return nil, errors.Errorf("diagnostics is nil")
	}

	result := make([]jsonDiagnostic, 0, diagnostics.Len())
	for _, d := range diagnostics.All() {
		result = append(result, jsonDiagnostic{
			File:     file,
			Severity: d.Severity.Protocol(),
			Code:     d.Code,
			Message:  d.Message,
			Range: jsonRange{
				Start: jsonPlace{Line: d.Range.Start.Line, Character: d.Range.Start.Character},
				End:   jsonPlace{Line: d.Range.End.Line, Character: d.Range.End.Character},
			},
		})
	}

	out, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Errorf("marshalling diagnostics: %w", err)
	}
	return append(out, '\n'), nil
}
