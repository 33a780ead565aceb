package ingest

import (
	"context"
	"testing"

	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"SEC-101"}, "SEC-101"},
		{[]string{" SEC 101 / a "}, "SEC_101_a"},
		{[]string{"Open Port", "10.0.0.1"}, "Open_Port_10_0_0_1"},
		{[]string{"!!"}, ""},
	}
	for _, tt := range tests {
		if got := sanitizeKey(tt.in...); got != tt.want {
			t.Errorf("sanitizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,234", 1234, true},
		{" 12.5% ", 12.5, true},
		{"0", 0, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestMatchMetric(t *testing.T) {
	tests := []struct {
		table []metricAlias
		name  string
		want  string
	}{
		{emailMetrics, "Total Inbound", "inbound_emails"},
		{emailMetrics, "Blocked - Proofpoint", "blocked_proofpoint"},
		{emailMetrics, "Inbound Spam Blocked", "spam_blocked"},
		{perimeterMetrics, "DDoS Events Mitigated", "ddos_events"},
		{perimeterMetrics, "Blocked Web Requests", "blocked_web_requests"},
		{xdrMetrics, "Critical Alerts", "critical_alerts"},
		{xdrMetrics, "Total Alerts", "total_alerts"},
		{xdrMetrics, "MTTR (hours)", "mttr_hours"},
	}
	for _, tt := range tests {
		got, ok := matchMetric(tt.table, tt.name)
		if !ok || got != tt.want {
			t.Errorf("matchMetric(%q) = %q, %v; want %q", tt.name, got, ok, tt.want)
		}
	}
	if _, ok := matchMetric(emailMetrics, "Coffee"); ok {
		t.Error("unknown metric should not match")
	}
}

func TestRegistry_CoversEveryRule(t *testing.T) {
	reg := NewRegistry(nil)
	for _, rule := range Rules() {
		if _, ok := reg.Get(rule.Source); !ok {
			t.Errorf("no importer for %s", rule.Source)
		}
	}
}

func TestImporters_Findings(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	svc := NewService(store)

	if _, err := svc.Import(ctx, "Tenable_Vulnerabilities_20241224.csv", csv(
		"Plugin ID,Plugin Name,Severity,Host,Port,CVSS,First Discovered",
		"19506,Nessus Scan Information,Info,10.0.0.1,0,,2024-12-01",
		"104743,TLS 1.0 Enabled,Medium,10.0.0.1,443,6.5,2024-11-20",
	)); err != nil {
		t.Fatal(err)
	}
	list, _, _ := store.Findings().List(ctx, models.FeedTenable, storage.ListFilter{})
	keys := map[string]models.Finding{}
	for _, f := range list {
		keys[f.ExternalKey] = f
	}
	tls, ok := keys["104743|10.0.0.1|443"]
	if !ok {
		t.Fatalf("findings = %+v", list)
	}
	if tls.Score == nil || *tls.Score != 6.5 || tls.ObservedAt == nil {
		t.Errorf("tls = %+v", tls)
	}

	if _, err := svc.Import(ctx, "NETGEAR_FullIssues_Q3_20250930.csv", csv(
		"Issue,Severity,Factor,Score Impact,Asset",
		"Open Port,High,Network Security,-2.5,10.0.0.9",
	)); err != nil {
		t.Fatal(err)
	}
	issues, _, _ := store.Findings().List(ctx, models.FeedNetgear, storage.ListFilter{})
	if len(issues) != 1 || issues[0].ExternalKey != "Open_Port_10_0_0_9" || issues[0].Category != "Network Security" {
		t.Errorf("issues = %+v", issues)
	}
}

func TestImporters_ScorecardAndXDR(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	svc := NewService(store)

	res, err := svc.Import(ctx, "NETGEAR_Scorecard_Report_20250930.csv", csv(
		"Factor,Score,Grade",
		"Overall,86,B",
		"DNS Health,92,A",
		"Patching Cadence,71,C",
	))
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 3 {
		t.Errorf("count = %d, want 3", res.Count)
	}
	cards, _ := store.Snapshots().ListScorecard(ctx, nil, nil)
	if len(cards) != 1 || cards[0].OverallScore == nil || *cards[0].OverallScore != 86 || len(cards[0].Factors) != 2 {
		t.Fatalf("scorecards = %+v", cards)
	}

	if _, err := svc.Import(ctx, "ToolMetrics_Secureworks_Quarter03_092025.csv", csv(
		"Category,Metric,Value",
		"Alerts,Total Alerts,420",
		"Alerts,Critical Alerts,3",
		"Response,MTTR Hours,1.75",
	)); err != nil {
		t.Fatal(err)
	}
	xdr, _ := store.Snapshots().ListXDR(ctx, nil, nil)
	if len(xdr) != 1 {
		t.Fatalf("xdr snapshots = %d", len(xdr))
	}
	x := xdr[0]
	if *x.TotalAlerts != 420 || *x.CriticalAlerts != 3 || *x.MTTRHours != 1.75 || x.HighAlerts != nil {
		t.Errorf("xdr = %+v", x)
	}
}

func TestImporters_OpenItemsAndAdvisories(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	svc := NewService(store)

	res, err := svc.Import(ctx, "Security Open Items.csv", csv(
		"Issue Key,Summary,Status,Priority",
		"SEC 12,Rotate service keys,Open,High",
		"!!,Bad key,Open,Low",
	))
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 1 || len(res.Errors) != 1 {
		t.Errorf("result = %+v", res)
	}
	items, _, _ := store.OpenItems().List(ctx, storage.ListFilter{})
	if len(items) != 1 || items[0].IssueKey != "SEC_12" {
		t.Errorf("items = %+v", items)
	}

	if _, err := svc.Import(ctx, "Monthly Threat Advisory.csv", csv(
		"Title,Severity,CVE,Published",
		"Exchange RCE,Critical,CVE-2025-0001,2025-09-02",
	)); err != nil {
		t.Fatal(err)
	}
	advs, _, _ := store.Advisories().List(ctx, storage.ListFilter{})
	if len(advs) != 1 || advs[0].ExternalKey != "Exchange_RCE" || advs[0].PublishedAt == nil {
		t.Errorf("advisories = %+v", advs)
	}
}
