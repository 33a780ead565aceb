package query

import (
	"testing"
)

func TestQueryDSL_Parse(t *testing.T) {
	dsl := NewQueryDSL(DetectionFields)

	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		// Valid expressions
		{"simple equality", `severity == "high"`, false},
		{"in operator", `severity in ["high", "critical"]`, false},
		{"and logic", `severity == "high" and host contains "srv"`, false},
		{"or logic", `tactic == "Execution" or tactic == "Persistence"`, false},
		{"not logic", `not (command_line contains "powershell")`, false},
		{"startsWith", `filename startsWith "tmp"`, false},
		{"endsWith", `filename endsWith ".exe"`, false},
		{"bool field", `false_positive == false`, false},
		{"time field", `detected_at >= "2025-06-01"`, false},
		{"lower function", `lower(title) == "x"`, false},

		// Invalid expressions
		{"empty expression", ``, true},
		{"unknown field", `foo == "bar"`, true},
		{"syntax error", `severity ==`, true},
		{"operator not allowed", `severity contains "hi"`, true},
		{"function not allowed", `trim(title) == "x"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dsl.Parse(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFieldDef_IsOperatorAllowed(t *testing.T) {
	field := FieldDef{
		Operators: []string{"==", "!=", "in"},
	}

	tests := []struct {
		op   string
		want bool
	}{
		{"==", true},
		{"!=", true},
		{"in", true},
		{">=", false},
		{"contains", false},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			if got := field.IsOperatorAllowed(tt.op); got != tt.want {
				t.Errorf("IsOperatorAllowed(%q) = %v, want %v", tt.op, got, tt.want)
			}
		})
	}
}

func TestSchemasDefaultColumnToName(t *testing.T) {
	for name, f := range FindingFields {
		if f.Column == "" {
			t.Errorf("field %q has no column", name)
		}
	}
	if got := DetectionFields["host"].Column; got != "hostname" {
		t.Errorf("host column = %q, want hostname", got)
	}
}
