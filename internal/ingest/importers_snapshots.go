package ingest

import (
	"context"
	"math"
	"strings"

	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

// metricAlias maps a metric name to a snapshot field. A row matches the
// first alias contained in its lowercase metric name.
type metricAlias struct {
	field   string
	aliases []string
}

var emailMetrics = []metricAlias{
	{"blocked_proofpoint", []string{"proofpoint"}},
	{"spam_blocked", []string{"spam"}},
	{"phishing_blocked", []string{"phish"}},
	{"malware_blocked", []string{"malware", "virus"}},
	{"quarantined", []string{"quarantin"}},
	{"outbound_emails", []string{"outbound"}},
	{"inbound_emails", []string{"inbound"}},
}

var perimeterMetrics = []metricAlias{
	{"ddos_events", []string{"ddos", "dos attack"}},
	{"intrusion_attempts", []string{"intrusion", "ips"}},
	{"vpn_sessions", []string{"vpn"}},
	{"blocked_web_requests", []string{"web", "url"}},
	{"blocked_connections", []string{"connection", "denied", "dropped"}},
}

var xdrMetrics = []metricAlias{
	{"critical_alerts", []string{"critical"}},
	{"high_alerts", []string{"high"}},
	{"true_positives", []string{"true positive"}},
	{"false_positives", []string{"false positive"}},
	{"investigations", []string{"investigation"}},
	{"endpoints_monitored", []string{"endpoint"}},
	{"mttr_hours", []string{"mttr", "time to respond", "response time"}},
	{"total_alerts", []string{"total alert", "alert"}},
}

func matchMetric(table []metricAlias, name string) (string, bool) {
	name = strings.ToLower(name)
	for _, m := range table {
		for _, a := range m.aliases {
			if strings.Contains(name, a) {
				return m.field, true
			}
		}
	}
	return "", false
}

// metricValues collects field values for one snapshot. The last row
// naming a field wins.
type metricValues map[string]float64

func (v metricValues) int(field string) *int64 {
	f, ok := v[field]
	if !ok {
		return nil
	}
	n := int64(math.Round(f))
	return &n
}

func (v metricValues) float(field string) *float64 {
	f, ok := v[field]
	if !ok {
		return nil
	}
	return &f
}

// looksLikeHeader reports whether row names one of the words in a cell
// and has no numeric value in its last cell.
func looksLikeHeader(row Row, words ...string) bool {
	if len(row) == 0 {
		return false
	}
	if _, ok := parseNumber(row[len(row)-1]); ok {
		return false
	}
	for _, cell := range row {
		c := strings.ToLower(cell)
		for _, w := range words {
			if c == w {
				return true
			}
		}
	}
	return false
}

// dataRows returns the rows to read and the 1-based line of the first.
func dataRows(doc *Document, headerWords ...string) ([]Row, int) {
	if looksLikeHeader(doc.Header(), headerWords...) {
		return doc.Rows[1:], 2
	}
	return doc.Rows, 1
}

func requirePeriod(doc *Document) error {
	if doc.Classification.Period == nil {
		return validationf("file %s does not name a reporting period", doc.Filename)
	}
	rows, _ := dataRows(doc, "category", "metric", "value", "factor", "score")
	if len(rows) == 0 {
		return validationf("file %s has no data rows", doc.Filename)
	}
	return nil
}

type perimeterImporter struct {
	store storage.Storage
}

func newPerimeterImporter(store storage.Storage) Importer {
	return &perimeterImporter{store: store}
}

func (p *perimeterImporter) Source() Source { return SourcePerimeterProtection }

func (p *perimeterImporter) Prepare(doc *Document) error { return requirePeriod(doc) }

// Import reads Category,Metric,Value rows. Email rows and network rows
// each replace one snapshot for the period.
func (p *perimeterImporter) Import(ctx context.Context, doc *Document) (*Outcome, error) {
	if err := p.Prepare(doc); err != nil {
		return &Outcome{}, err
	}

	out := &Outcome{}
	email, network := metricValues{}, metricValues{}
	emailRows, networkRows := 0, 0

	rows, line := dataRows(doc, "category", "metric", "value")
	for i, row := range rows {
		n := line + i
		if len(row) < 3 {
			out.skip(n, "expected category, metric and value")
			continue
		}
		category, metric, raw := row[0], row[1], row[2]

		var isEmail bool
		switch c := strings.ToLower(category); {
		case strings.Contains(c, "mail"):
			isEmail = true
		case containsAny(c, "firewall", "perimeter", "network", "web", "vpn"):
		default:
			out.skip(n, "unknown category %q", category)
			continue
		}

		table, values := perimeterMetrics, network
		if isEmail {
			table, values = emailMetrics, email
		}
		field, ok := matchMetric(table, metric)
		if !ok {
			out.skip(n, "unknown metric %q", metric)
			continue
		}
		v, ok := parseNumber(raw)
		if !ok {
			out.skip(n, "invalid value %q for %s", raw, metric)
			continue
		}
		values[field] = v
		if isEmail {
			emailRows++
		} else {
			networkRows++
		}
	}

	period := doc.Classification.Period.Model()
	if emailRows > 0 {
		_, err := p.store.Snapshots().UpsertEmail(ctx, &models.EmailMetrics{
			Period:            period,
			InboundEmails:     email.int("inbound_emails"),
			OutboundEmails:    email.int("outbound_emails"),
			BlockedProofpoint: email.int("blocked_proofpoint"),
			SpamBlocked:       email.int("spam_blocked"),
			PhishingBlocked:   email.int("phishing_blocked"),
			MalwareBlocked:    email.int("malware_blocked"),
			Quarantined:       email.int("quarantined"),
			SourceFile:        doc.Filename,
		})
		if err != nil {
			return out, stepFailed("store email metrics", err)
		}
		out.Count += emailRows
	}
	if networkRows > 0 {
		_, err := p.store.Snapshots().UpsertPerimeter(ctx, &models.PerimeterMetrics{
			Period:             period,
			BlockedConnections: network.int("blocked_connections"),
			IntrusionAttempts:  network.int("intrusion_attempts"),
			BlockedWebRequests: network.int("blocked_web_requests"),
			VPNSessions:        network.int("vpn_sessions"),
			DDoSEvents:         network.int("ddos_events"),
			SourceFile:         doc.Filename,
		})
		if err != nil {
			return out, stepFailed("store perimeter metrics", err)
		}
		out.Count += networkRows
	}
	return out, nil
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

type xdrImporter struct {
	store storage.Storage
}

func newXDRImporter(store storage.Storage) Importer {
	return &xdrImporter{store: store}
}

func (x *xdrImporter) Source() Source { return SourceXDRSecureworks }

func (x *xdrImporter) Prepare(doc *Document) error { return requirePeriod(doc) }

// Import reads Metric,Value or Category,Metric,Value rows into one
// snapshot for the period.
func (x *xdrImporter) Import(ctx context.Context, doc *Document) (*Outcome, error) {
	if err := x.Prepare(doc); err != nil {
		return &Outcome{}, err
	}

	out := &Outcome{}
	values := metricValues{}
	accepted := 0

	rows, line := dataRows(doc, "category", "metric", "value")
	for i, row := range rows {
		n := line + i
		if len(row) < 2 {
			out.skip(n, "expected metric and value")
			continue
		}
		metric, raw := row[len(row)-2], row[len(row)-1]
		field, ok := matchMetric(xdrMetrics, metric)
		if !ok {
			out.skip(n, "unknown metric %q", metric)
			continue
		}
		v, ok := parseNumber(raw)
		if !ok {
			out.skip(n, "invalid value %q for %s", raw, metric)
			continue
		}
		values[field] = v
		accepted++
	}

	if accepted == 0 {
		return out, nil
	}
	_, err := x.store.Snapshots().UpsertXDR(ctx, &models.XDRMetrics{
		Period:             doc.Classification.Period.Model(),
		TotalAlerts:        values.int("total_alerts"),
		CriticalAlerts:     values.int("critical_alerts"),
		HighAlerts:         values.int("high_alerts"),
		Investigations:     values.int("investigations"),
		TruePositives:      values.int("true_positives"),
		FalsePositives:     values.int("false_positives"),
		EndpointsMonitored: values.int("endpoints_monitored"),
		MTTRHours:          values.float("mttr_hours"),
		SourceFile:         doc.Filename,
	})
	if err != nil {
		return out, stepFailed("store xdr metrics", err)
	}
	out.Count = accepted
	return out, nil
}

type scorecardReportImporter struct {
	store storage.Storage
}

func newScorecardReportImporter(store storage.Storage) Importer {
	return &scorecardReportImporter{store: store}
}

func (s *scorecardReportImporter) Source() Source { return SourceNetgearScorecardReport }

func (s *scorecardReportImporter) Prepare(doc *Document) error { return requirePeriod(doc) }

// Import reads Factor,Score[,Grade] rows. The "Overall" row sets the
// snapshot's overall score; every other row is a factor.
func (s *scorecardReportImporter) Import(ctx context.Context, doc *Document) (*Outcome, error) {
	if err := s.Prepare(doc); err != nil {
		return &Outcome{}, err
	}

	out := &Outcome{}
	snap := &models.ScorecardSnapshot{
		Period:     doc.Classification.Period.Model(),
		Factors:    []models.ScorecardFactor{},
		SourceFile: doc.Filename,
	}
	accepted := 0

	rows, line := dataRows(doc, "factor", "name", "category", "score", "grade")
	for i, row := range rows {
		n := line + i
		if len(row) < 2 || row[0] == "" {
			out.skip(n, "expected factor and score")
			continue
		}
		score, ok := parseNumber(row[1])
		if !ok {
			out.skip(n, "invalid score %q for %s", row[1], row[0])
			continue
		}
		grade := row.Get(2)

		if strings.Contains(strings.ToLower(row[0]), "overall") {
			snap.OverallScore = &score
			snap.OverallGrade = grade
		} else {
			snap.Factors = append(snap.Factors, models.ScorecardFactor{Name: row[0], Score: &score, Grade: grade})
		}
		accepted++
	}

	if accepted == 0 {
		return out, nil
	}
	if _, err := s.store.Snapshots().UpsertScorecard(ctx, snap); err != nil {
		return out, stepFailed("store scorecard", err)
	}
	out.Count = accepted
	return out, nil
}
