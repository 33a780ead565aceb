package ingest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Source identifies the tool and export kind a file came from.
type Source string

const (
	SourceTenable                Source = "tenable"
	SourceFalcon                 Source = "falcon"
	SourceSecureworks            Source = "secureworks"
	SourcePhishing               Source = "phishing"
	SourceAWSSecurityHub         Source = "aws_security_hub"
	SourceNetgearScorecardPDF    Source = "netgear_scorecard_pdf"
	SourceNetgearFullIssues      Source = "netgear_full_issues"
	SourceNetgearScorecardReport Source = "netgear_scorecard_report"
	SourcePerimeterProtection    Source = "perimeter_protection"
	SourceXDRSecureworks         Source = "xdr_secureworks"
	SourceThreatAdvisory         Source = "threat_advisory"
	SourceOpenItems              Source = "open_items"
)

// Rule is one entry of the filename registry. Period tokens are taken
// from the named groups "date" (YYYYMMDD), "month", "year" and "quarter".
type Rule struct {
	Source      Source
	Pattern     *regexp.Regexp
	Description string
	Example     string
	// FileType is the declared type; empty means "use the extension".
	FileType string
}

// Classification is the result of matching a filename against the registry.
type Classification struct {
	Valid         bool    `json:"valid"`
	Source        Source  `json:"source,omitempty"`
	FileType      string  `json:"file_type,omitempty"`
	ExtractedDate string  `json:"extracted_date,omitempty"`
	Period        *Period `json:"period,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// rules is tried in order; the first structural match wins, so more
// specific patterns come before the generic keyword rules.
var rules = []Rule{
	{
		Source:      SourceTenable,
		Pattern:     regexp.MustCompile(`(?i)^Tenable_.+_(?P<date>\d{8})\.csv$`),
		Description: "Tenable vulnerability export",
		Example:     "Tenable_Vulnerabilities_20241224.csv",
		FileType:    "csv",
	},
	{
		Source:      SourceFalcon,
		Pattern:     regexp.MustCompile(`(?i)^Falcon_.+_(?P<date>\d{8})\.csv$`),
		Description: "CrowdStrike Falcon detections export",
		Example:     "Falcon_Detections_20250630.csv",
		FileType:    "csv",
	},
	{
		Source:      SourceSecureworks,
		Pattern:     regexp.MustCompile(`(?i)^Secureworks_.+_(?P<date>\d{8})\.csv$`),
		Description: "Secureworks alerts export",
		Example:     "Secureworks_Alerts_20250630.csv",
		FileType:    "csv",
	},
	{
		Source:      SourcePhishing,
		Pattern:     regexp.MustCompile(`(?i)^Phishing_.+_(?P<date>\d{8})\.csv$`),
		Description: "Phishing reports export",
		Example:     "Phishing_Reports_20250630.csv",
		FileType:    "csv",
	},
	{
		Source:      SourceAWSSecurityHub,
		Pattern:     regexp.MustCompile(`(?i)^AWS_Security_Hub_.+_(?P<date>\d{8})\.csv$`),
		Description: "AWS Security Hub findings export",
		Example:     "AWS_Security_Hub_Findings_20250630.csv",
		FileType:    "csv",
	},
	{
		Source:      SourceNetgearScorecardPDF,
		Pattern:     regexp.MustCompile(`(?i)^NETGEAR-Scorecard-.+_(?P<date>\d{8})\.pdf$`),
		Description: "NETGEAR scorecard PDF",
		Example:     "NETGEAR-Scorecard-Executive_20250630.pdf",
		FileType:    "pdf",
	},
	{
		Source:      SourceNetgearFullIssues,
		Pattern:     regexp.MustCompile(`(?i)^NETGEAR_FullIssues_.+_(?P<date>\d{8})\.csv$`),
		Description: "NETGEAR scorecard full issues export",
		Example:     "NETGEAR_FullIssues_netgear.com_20250630.csv",
		FileType:    "csv",
	},
	{
		Source:      SourceNetgearScorecardReport,
		Pattern:     regexp.MustCompile(`(?i)^NETGEAR_Scorecard_Report_(?P<date>\d{8})\.csv$`),
		Description: "NETGEAR scorecard factor report",
		Example:     "NETGEAR_Scorecard_Report_20250630.csv",
		FileType:    "csv",
	},
	{
		Source:      SourcePerimeterProtection,
		Pattern:     regexp.MustCompile(`(?i)^Perimeter_Protection_Quarter0(?P<quarter>[1-4])_(?P<month>\d{2})(?P<year>\d{4})\.csv$`),
		Description: "Perimeter protection quarterly metrics",
		Example:     "Perimeter_Protection_Quarter03_092025.csv",
		FileType:    "csv",
	},
	{
		Source:      SourceXDRSecureworks,
		Pattern:     regexp.MustCompile(`(?i)^XDR_Secureworks_(?P<month>\d{2})(?P<year>\d{4})\.csv$`),
		Description: "Secureworks XDR monthly metrics",
		Example:     "XDR_Secureworks_092025.csv",
		FileType:    "csv",
	},
	{
		Source:      SourceXDRSecureworks,
		Pattern:     regexp.MustCompile(`(?i)^ToolMetrics_Secureworks_Quarter0(?P<quarter>[1-4])_(?P<month>\d{2})(?P<year>\d{4})\.csv$`),
		Description: "Secureworks XDR quarterly tool metrics",
		Example:     "ToolMetrics_Secureworks_Quarter03_092025.csv",
		FileType:    "csv",
	},
	{
		Source:      SourceThreatAdvisory,
		Pattern:     regexp.MustCompile(`(?i)(threat.*advisory|advisory.*threat)`),
		Description: "Threat advisory list (name contains \"threat\" and \"advisory\")",
		Example:     "Monthly Threat Advisory.csv",
	},
	{
		Source:      SourceOpenItems,
		Pattern:     regexp.MustCompile(`(?i)open items`),
		Description: "Issue tracker open items (name contains \"open items\")",
		Example:     "Security Open Items.csv",
	},
}

// Rules returns a copy of the registry in match order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify matches a filename against the registry and extracts its
// reporting period. It has no side effects.
func Classify(filename string) Classification {
	name := filepath.Base(strings.TrimSpace(filename))

	for _, rule := range rules {
		match := rule.Pattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		return classifyMatch(rule, name, match)
	}

	return Classification{Valid: false, Error: unknownFilenameMessage(name)}
}

func classifyMatch(rule Rule, name string, match []string) Classification {
	groups := make(map[string]string)
	for i, g := range rule.Pattern.SubexpNames() {
		if g != "" && i < len(match) {
			groups[g] = match[i]
		}
	}

	result := Classification{
		Source:   rule.Source,
		FileType: rule.FileType,
	}
	if result.FileType == "" {
		result.FileType = strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	}

	switch {
	case groups["date"] != "":
		p, err := periodFromDate(groups["date"])
		if err != nil {
			result.Error = fmt.Sprintf("invalid filename %q: %v", name, err)
			return result
		}
		result.ExtractedDate = groups["date"]
		result.Period = p
	case groups["month"] != "":
		p, err := periodFromMonth(groups["month"], groups["year"], groups["quarter"])
		if err != nil {
			result.Error = fmt.Sprintf("invalid filename %q: %v", name, err)
			return result
		}
		result.Period = p
	}

	result.Valid = true
	return result
}

// unknownFilenameMessage lists every rule with one example so a rejected
// upload shows what the service would have accepted.
func unknownFilenameMessage(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid filename %q. Expected one of:", name)
	for _, rule := range rules {
		fmt.Fprintf(&b, "\n  - %s (e.g. %s)", rule.Description, rule.Example)
	}
	return b.String()
}
