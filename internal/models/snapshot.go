package models

import "time"

// Period identifies the reporting period a snapshot belongs to. All three
// representations are derived from the same filename tokens.
type Period struct {
	Month   time.Time `json:"period_month"`
	Quarter string    `json:"period_quarter"`
	Label   string    `json:"report_label"`
}

// MetricField is one named, optional value of a snapshot.
type MetricField struct {
	Name  string
	Value *float64
}

// EmailMetrics is the monthly email-protection snapshot.
type EmailMetrics struct {
	ID string `json:"id"`
	Period
	InboundEmails     *int64    `json:"inbound_emails"`
	OutboundEmails    *int64    `json:"outbound_emails"`
	BlockedProofpoint *int64    `json:"blocked_proofpoint"`
	SpamBlocked       *int64    `json:"spam_blocked"`
	PhishingBlocked   *int64    `json:"phishing_blocked"`
	MalwareBlocked    *int64    `json:"malware_blocked"`
	Quarantined       *int64    `json:"quarantined"`
	SourceFile        string    `json:"source_file"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Fields lists the snapshot's metrics in display order.
func (m *EmailMetrics) Fields() []MetricField {
	return []MetricField{
		{"inbound_emails", intValue(m.InboundEmails)},
		{"outbound_emails", intValue(m.OutboundEmails)},
		{"blocked_proofpoint", intValue(m.BlockedProofpoint)},
		{"spam_blocked", intValue(m.SpamBlocked)},
		{"phishing_blocked", intValue(m.PhishingBlocked)},
		{"malware_blocked", intValue(m.MalwareBlocked)},
		{"quarantined", intValue(m.Quarantined)},
	}
}

// PerimeterMetrics is the monthly firewall / perimeter snapshot.
type PerimeterMetrics struct {
	ID string `json:"id"`
	Period
	BlockedConnections *int64    `json:"blocked_connections"`
	IntrusionAttempts  *int64    `json:"intrusion_attempts"`
	BlockedWebRequests *int64    `json:"blocked_web_requests"`
	VPNSessions        *int64    `json:"vpn_sessions"`
	DDoSEvents         *int64    `json:"ddos_events"`
	SourceFile         string    `json:"source_file"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Fields lists the snapshot's metrics in display order.
func (m *PerimeterMetrics) Fields() []MetricField {
	return []MetricField{
		{"blocked_connections", intValue(m.BlockedConnections)},
		{"intrusion_attempts", intValue(m.IntrusionAttempts)},
		{"blocked_web_requests", intValue(m.BlockedWebRequests)},
		{"vpn_sessions", intValue(m.VPNSessions)},
		{"ddos_events", intValue(m.DDoSEvents)},
	}
}

// XDRMetrics is the monthly managed-XDR snapshot.
type XDRMetrics struct {
	ID string `json:"id"`
	Period
	TotalAlerts        *int64    `json:"total_alerts"`
	CriticalAlerts     *int64    `json:"critical_alerts"`
	HighAlerts         *int64    `json:"high_alerts"`
	Investigations     *int64    `json:"investigations"`
	TruePositives      *int64    `json:"true_positives"`
	FalsePositives     *int64    `json:"false_positives"`
	EndpointsMonitored *int64    `json:"endpoints_monitored"`
	MTTRHours          *float64  `json:"mttr_hours"`
	SourceFile         string    `json:"source_file"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Fields lists the snapshot's metrics in display order.
func (m *XDRMetrics) Fields() []MetricField {
	return []MetricField{
		{"total_alerts", intValue(m.TotalAlerts)},
		{"critical_alerts", intValue(m.CriticalAlerts)},
		{"high_alerts", intValue(m.HighAlerts)},
		{"investigations", intValue(m.Investigations)},
		{"true_positives", intValue(m.TruePositives)},
		{"false_positives", intValue(m.FalsePositives)},
		{"endpoints_monitored", intValue(m.EndpointsMonitored)},
		{"mttr_hours", m.MTTRHours},
	}
}

// ScorecardFactor is one scored factor of a vendor scorecard.
type ScorecardFactor struct {
	Name  string   `json:"name"`
	Score *float64 `json:"score,omitempty"`
	Grade string   `json:"grade,omitempty"`
}

// ScorecardSnapshot is the monthly NETGEAR scorecard summary.
type ScorecardSnapshot struct {
	ID string `json:"id"`
	Period
	OverallScore *float64          `json:"overall_score"`
	OverallGrade string            `json:"overall_grade,omitempty"`
	Factors      []ScorecardFactor `json:"factors"`
	SourceFile   string            `json:"source_file"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Fields lists the snapshot's metrics in display order.
func (m *ScorecardSnapshot) Fields() []MetricField {
	fields := []MetricField{{"overall_score", m.OverallScore}}
	for _, f := range m.Factors {
		fields = append(fields, MetricField{Name: f.Name, Value: f.Score})
	}
	return fields
}

func intValue(v *int64) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
