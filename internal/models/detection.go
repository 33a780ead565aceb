package models

import "time"

// Feed identifies which tool a detection or finding was imported from.
type Feed string

const (
	FeedFalcon      Feed = "falcon"
	FeedSecureworks Feed = "secureworks"
	FeedTenable     Feed = "tenable"
	FeedAWS         Feed = "aws_security_hub"
	FeedNetgear     Feed = "netgear"
)

// Detection is an endpoint detection (Falcon) or XDR alert (Secureworks).
// TimestampText keeps the vendor's original text; DetectedAt is set only
// when that text could be normalized.
type Detection struct {
	ID            string     `json:"id"`
	Feed          Feed       `json:"feed"`
	ExternalID    string     `json:"external_id"`
	Title         string     `json:"title,omitempty"`
	Severity      string     `json:"severity"`
	Tactic        string     `json:"tactic,omitempty"`
	Technique     string     `json:"technique,omitempty"`
	Hostname      string     `json:"hostname,omitempty"`
	Filename      string     `json:"filename,omitempty"`
	Process       string     `json:"process,omitempty"`
	CommandLine   string     `json:"command_line,omitempty"`
	SensorType    string     `json:"sensor_type,omitempty"`
	Status        string     `json:"status,omitempty"`
	FalsePositive bool       `json:"false_positive"`
	TimestampText string     `json:"timestamp_text,omitempty"`
	DetectedAt    *time.Time `json:"detected_at,omitempty"`
	SourceFile    string     `json:"source_file"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Finding is a vulnerability (Tenable), cloud finding (AWS Security Hub)
// or scorecard issue (NETGEAR). Category holds the plugin family, product
// type or scorecard factor depending on the feed.
type Finding struct {
	ID            string     `json:"id"`
	Feed          Feed       `json:"feed"`
	ExternalKey   string     `json:"external_key"`
	Title         string     `json:"title"`
	Severity      string     `json:"severity"`
	Category      string     `json:"category,omitempty"`
	Asset         string     `json:"asset,omitempty"`
	Score         *float64   `json:"score,omitempty"`
	CVE           string     `json:"cve,omitempty"`
	Status        string     `json:"status,omitempty"`
	FirstSeenText string     `json:"first_seen_text,omitempty"`
	ObservedAt    *time.Time `json:"observed_at,omitempty"`
	SourceFile    string     `json:"source_file"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// PhishingReport is a user-reported email from a phishing export.
type PhishingReport struct {
	ID           string     `json:"id"`
	ExternalKey  string     `json:"external_key"`
	Subject      string     `json:"subject"`
	Sender       string     `json:"sender,omitempty"`
	Reporter     string     `json:"reporter,omitempty"`
	Verdict      string     `json:"verdict,omitempty"`
	ReportedText string     `json:"reported_text,omitempty"`
	ReportedAt   *time.Time `json:"reported_at,omitempty"`
	SourceFile   string     `json:"source_file"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Advisory is a threat advisory row.
type Advisory struct {
	ID            string     `json:"id"`
	ExternalKey   string     `json:"external_key"`
	Title         string     `json:"title"`
	Severity      string     `json:"severity,omitempty"`
	CVEs          string     `json:"cves,omitempty"`
	Vendor        string     `json:"vendor,omitempty"`
	Summary       string     `json:"summary,omitempty"`
	PublishedText string     `json:"published_text,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	SourceFile    string     `json:"source_file"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OpenItem is an issue-tracker row keyed by its sanitized issue key.
type OpenItem struct {
	ID          string     `json:"id"`
	IssueKey    string     `json:"issue_key"`
	Summary     string     `json:"summary"`
	Status      string     `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	Assignee    string     `json:"assignee,omitempty"`
	CreatedText string     `json:"created_text,omitempty"`
	DueText     string     `json:"due_text,omitempty"`
	OpenedAt    *time.Time `json:"opened_at,omitempty"`
	SourceFile  string     `json:"source_file"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
