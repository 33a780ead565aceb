package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/query"
)

type snapshotRepo struct {
	db *DB
}

var periodColumns = []string{"period_month", "period_quarter", "report_label"}

func snapshotSpec(table string, metrics ...string) upsertSpec {
	cols := append(append([]string{}, periodColumns...), metrics...)
	return upsertSpec{
		table:   table,
		key:     []string{"period_month"},
		columns: append(cols, "source_file"),
	}
}

var (
	emailUpsert = snapshotSpec("email_metrics",
		"inbound_emails", "outbound_emails", "blocked_proofpoint", "spam_blocked",
		"phishing_blocked", "malware_blocked", "quarantined")
	perimeterUpsert = snapshotSpec("perimeter_metrics",
		"blocked_connections", "intrusion_attempts", "blocked_web_requests",
		"vpn_sessions", "ddos_events")
	xdrUpsert = snapshotSpec("xdr_metrics",
		"total_alerts", "critical_alerts", "high_alerts", "investigations",
		"true_positives", "false_positives", "endpoints_monitored", "mttr_hours")
	scorecardUpsert = snapshotSpec("scorecard_snapshots",
		"overall_score", "overall_grade", "factors_json")
)

func periodValues(p models.Period) []any {
	return []any{p.Month.UTC(), p.Quarter, p.Label}
}

func (r *snapshotRepo) UpsertEmail(ctx context.Context, m *models.EmailMetrics) (*models.EmailMetrics, error) {
	values := append(periodValues(m.Period),
		nullInt(m.InboundEmails), nullInt(m.OutboundEmails), nullInt(m.BlockedProofpoint),
		nullInt(m.SpamBlocked), nullInt(m.PhishingBlocked), nullInt(m.MalwareBlocked),
		nullInt(m.Quarantined), m.SourceFile)
	s, err := r.db.upsert(ctx, emailUpsert, values, []any{m.Month.UTC()})
	if err != nil {
		return nil, err
	}
	out := *m
	out.ID, out.CreatedAt, out.UpdatedAt = s.ID, s.CreatedAt, s.UpdatedAt
	return &out, nil
}

func (r *snapshotRepo) UpsertPerimeter(ctx context.Context, m *models.PerimeterMetrics) (*models.PerimeterMetrics, error) {
	values := append(periodValues(m.Period),
		nullInt(m.BlockedConnections), nullInt(m.IntrusionAttempts), nullInt(m.BlockedWebRequests),
		nullInt(m.VPNSessions), nullInt(m.DDoSEvents), m.SourceFile)
	s, err := r.db.upsert(ctx, perimeterUpsert, values, []any{m.Month.UTC()})
	if err != nil {
		return nil, err
	}
	out := *m
	out.ID, out.CreatedAt, out.UpdatedAt = s.ID, s.CreatedAt, s.UpdatedAt
	return &out, nil
}

func (r *snapshotRepo) UpsertXDR(ctx context.Context, m *models.XDRMetrics) (*models.XDRMetrics, error) {
	values := append(periodValues(m.Period),
		nullInt(m.TotalAlerts), nullInt(m.CriticalAlerts), nullInt(m.HighAlerts),
		nullInt(m.Investigations), nullInt(m.TruePositives), nullInt(m.FalsePositives),
		nullInt(m.EndpointsMonitored), nullFloat(m.MTTRHours), m.SourceFile)
	s, err := r.db.upsert(ctx, xdrUpsert, values, []any{m.Month.UTC()})
	if err != nil {
		return nil, err
	}
	out := *m
	out.ID, out.CreatedAt, out.UpdatedAt = s.ID, s.CreatedAt, s.UpdatedAt
	return &out, nil
}

func (r *snapshotRepo) UpsertScorecard(ctx context.Context, m *models.ScorecardSnapshot) (*models.ScorecardSnapshot, error) {
	factors := m.Factors
	if factors == nil {
		factors = []models.ScorecardFactor{}
	}
	raw, err := json.Marshal(factors)
	if err != nil {
		return nil, fmt.Errorf("encode scorecard factors: %w", err)
	}

	values := append(periodValues(m.Period),
		nullFloat(m.OverallScore), m.OverallGrade, string(raw), m.SourceFile)
	s, err := r.db.upsert(ctx, scorecardUpsert, values, []any{m.Month.UTC()})
	if err != nil {
		return nil, err
	}
	out := *m
	out.Factors = factors
	out.ID, out.CreatedAt, out.UpdatedAt = s.ID, s.CreatedAt, s.UpdatedAt
	return &out, nil
}

// listSnapshots queries one snapshot table in period order.
func (r *snapshotRepo) listSnapshots(ctx context.Context, u upsertSpec, start, end *time.Time) (*sql.Rows, error) {
	cols := append([]string{"id"}, u.columns...)
	cols = append(cols, "created_at", "updated_at")

	q := query.New(u.table, cols, 0)
	q.Where(query.DateRange(start, end, "period_month"))
	if err := q.OrderBy("period_month", false); err != nil {
		return nil, err
	}

	sqlText, args := q.Build()
	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", u.table, err)
	}
	return rows, nil
}

func (r *snapshotRepo) ListEmail(ctx context.Context, start, end *time.Time) ([]models.EmailMetrics, error) {
	rows, err := r.listSnapshots(ctx, emailUpsert, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.EmailMetrics{}
	for rows.Next() {
		var m models.EmailMetrics
		var v [7]sql.NullInt64
		err := rows.Scan(&m.ID, &m.Month, &m.Quarter, &m.Label,
			&v[0], &v[1], &v[2], &v[3], &v[4], &v[5], &v[6],
			&m.SourceFile, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan email metrics: %w", err)
		}
		m.InboundEmails, m.OutboundEmails, m.BlockedProofpoint = intPtr(v[0]), intPtr(v[1]), intPtr(v[2])
		m.SpamBlocked, m.PhishingBlocked, m.MalwareBlocked = intPtr(v[3]), intPtr(v[4]), intPtr(v[5])
		m.Quarantined = intPtr(v[6])
		m.Month = m.Month.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *snapshotRepo) ListPerimeter(ctx context.Context, start, end *time.Time) ([]models.PerimeterMetrics, error) {
	rows, err := r.listSnapshots(ctx, perimeterUpsert, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.PerimeterMetrics{}
	for rows.Next() {
		var m models.PerimeterMetrics
		var v [5]sql.NullInt64
		err := rows.Scan(&m.ID, &m.Month, &m.Quarter, &m.Label,
			&v[0], &v[1], &v[2], &v[3], &v[4],
			&m.SourceFile, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan perimeter metrics: %w", err)
		}
		m.BlockedConnections, m.IntrusionAttempts, m.BlockedWebRequests = intPtr(v[0]), intPtr(v[1]), intPtr(v[2])
		m.VPNSessions, m.DDoSEvents = intPtr(v[3]), intPtr(v[4])
		m.Month = m.Month.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *snapshotRepo) ListXDR(ctx context.Context, start, end *time.Time) ([]models.XDRMetrics, error) {
	rows, err := r.listSnapshots(ctx, xdrUpsert, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.XDRMetrics{}
	for rows.Next() {
		var m models.XDRMetrics
		var v [7]sql.NullInt64
		var mttr sql.NullFloat64
		err := rows.Scan(&m.ID, &m.Month, &m.Quarter, &m.Label,
			&v[0], &v[1], &v[2], &v[3], &v[4], &v[5], &v[6], &mttr,
			&m.SourceFile, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan xdr metrics: %w", err)
		}
		m.TotalAlerts, m.CriticalAlerts, m.HighAlerts = intPtr(v[0]), intPtr(v[1]), intPtr(v[2])
		m.Investigations, m.TruePositives, m.FalsePositives = intPtr(v[3]), intPtr(v[4]), intPtr(v[5])
		m.EndpointsMonitored = intPtr(v[6])
		m.MTTRHours = floatPtr(mttr)
		m.Month = m.Month.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *snapshotRepo) ListScorecard(ctx context.Context, start, end *time.Time) ([]models.ScorecardSnapshot, error) {
	rows, err := r.listSnapshots(ctx, scorecardUpsert, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ScorecardSnapshot{}
	for rows.Next() {
		var m models.ScorecardSnapshot
		var score sql.NullFloat64
		var factors string
		err := rows.Scan(&m.ID, &m.Month, &m.Quarter, &m.Label,
			&score, &m.OverallGrade, &factors,
			&m.SourceFile, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan scorecard snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(factors), &m.Factors); err != nil {
			return nil, fmt.Errorf("decode scorecard factors: %w", err)
		}
		m.OverallScore = floatPtr(score)
		m.Month = m.Month.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
