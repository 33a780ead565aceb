// Package query builds parameterized SQL for the dashboard list
// endpoints: structured predicates from query parameters and a small
// expression DSL for the filter parameter.
package query

// FieldType represents the data type of a queryable field.
type FieldType int

const (
	FieldTypeString FieldType = iota
	FieldTypeInt
	FieldTypeFloat
	FieldTypeBool
	FieldTypeTime
)

// FieldDef defines a queryable field with its allowed operators.
type FieldDef struct {
	Name      string    // expr field name
	Column    string    // SQL column name
	Type      FieldType // data type
	Operators []string  // allowed operators
}

// Schema is the set of fields one table exposes to filters.
type Schema map[string]FieldDef

var (
	textOps  = []string{"==", "!=", "in", "contains", "startsWith", "endsWith"}
	labelOps = []string{"==", "!=", "in"}
	numOps   = []string{"==", "!=", ">=", "<=", ">", "<"}
	boolOps  = []string{"==", "!="}
	timeOps  = []string{">=", "<=", ">", "<"}
)

func schema(defs ...FieldDef) Schema {
	s := make(Schema, len(defs))
	for _, d := range defs {
		if d.Column == "" {
			d.Column = d.Name
		}
		s[d.Name] = d
	}
	return s
}

// DetectionFields covers detections and alerts.
var DetectionFields = schema(
	FieldDef{Name: "title", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "severity", Type: FieldTypeString, Operators: labelOps},
	FieldDef{Name: "tactic", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "technique", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "host", Column: "hostname", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "filename", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "process", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "command_line", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "sensor_type", Type: FieldTypeString, Operators: labelOps},
	FieldDef{Name: "status", Type: FieldTypeString, Operators: labelOps},
	FieldDef{Name: "false_positive", Type: FieldTypeBool, Operators: boolOps},
	FieldDef{Name: "detected_at", Type: FieldTypeTime, Operators: timeOps},
)

// FindingFields covers vulnerabilities, cloud findings and scorecard issues.
var FindingFields = schema(
	FieldDef{Name: "title", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "severity", Type: FieldTypeString, Operators: labelOps},
	FieldDef{Name: "category", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "asset", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "score", Type: FieldTypeFloat, Operators: numOps},
	FieldDef{Name: "cve", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "status", Type: FieldTypeString, Operators: labelOps},
	FieldDef{Name: "observed_at", Type: FieldTypeTime, Operators: timeOps},
)

// PhishingFields covers phishing reports.
var PhishingFields = schema(
	FieldDef{Name: "subject", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "sender", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "reporter", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "verdict", Type: FieldTypeString, Operators: labelOps},
	FieldDef{Name: "reported_at", Type: FieldTypeTime, Operators: timeOps},
)

// AdvisoryFields covers threat advisories.
var AdvisoryFields = schema(
	FieldDef{Name: "title", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "severity", Type: FieldTypeString, Operators: labelOps},
	FieldDef{Name: "cves", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "vendor", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "published_at", Type: FieldTypeTime, Operators: timeOps},
)

// OpenItemFields covers tracker open items.
var OpenItemFields = schema(
	FieldDef{Name: "issue_key", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "summary", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "status", Type: FieldTypeString, Operators: labelOps},
	FieldDef{Name: "priority", Type: FieldTypeString, Operators: labelOps},
	FieldDef{Name: "assignee", Type: FieldTypeString, Operators: textOps},
	FieldDef{Name: "opened_at", Type: FieldTypeTime, Operators: timeOps},
)

// IsOperatorAllowed checks if an operator is valid for a field.
func (f FieldDef) IsOperatorAllowed(op string) bool {
	for _, allowed := range f.Operators {
		if allowed == op {
			return true
		}
	}
	return false
}
