package dashboard

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/secdash/internal/aggregate"
	"github.com/good-yellow-bee/secdash/internal/models"
)

// MetricsResponse is a snapshot series with the latest period-over-period
// change of every field.
type MetricsResponse struct {
	Snapshots any                        `json:"snapshots"`
	Trends    map[string]aggregate.Trend `json:"trends"`
}

type fielder interface{ Fields() []models.MetricField }

func series[T any, P interface {
	*T
	fielder
}](items []T) [][]models.MetricField {
	out := make([][]models.MetricField, len(items))
	for i := range items {
		out[i] = P(&items[i]).Fields()
	}
	return out
}

// Metrics handles GET /api/v1/metrics/{kind} for email, perimeter and xdr.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	p, err := parseParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	ctx := r.Context()
	start, end := p.filter.Start, p.filter.End
	kind := chi.URLParam(r, "kind")

	var resp MetricsResponse
	switch kind {
	case "email":
		items, err := h.store.Snapshots().ListEmail(ctx, start, end)
		if err != nil {
			fail(w, "email metrics", err)
			return
		}
		resp = MetricsResponse{Snapshots: items, Trends: aggregate.FieldTrends(series(items))}
	case "perimeter":
		items, err := h.store.Snapshots().ListPerimeter(ctx, start, end)
		if err != nil {
			fail(w, "perimeter metrics", err)
			return
		}
		resp = MetricsResponse{Snapshots: items, Trends: aggregate.FieldTrends(series(items))}
	case "xdr":
		items, err := h.store.Snapshots().ListXDR(ctx, start, end)
		if err != nil {
			fail(w, "xdr metrics", err)
			return
		}
		resp = MetricsResponse{Snapshots: items, Trends: aggregate.FieldTrends(series(items))}
	default:
		jsonError(w, http.StatusNotFound, errCodeNotFound, fmt.Sprintf("unknown metrics kind %q", kind))
		return
	}
	jsonOK(w, resp)
}

// ScorecardResponse is the scorecard series with its overall trend and
// the ranked open issues.
type ScorecardResponse struct {
	Snapshots    []models.ScorecardSnapshot `json:"snapshots"`
	Latest       *models.ScorecardSnapshot  `json:"latest,omitempty"`
	OverallTrend aggregate.Trend            `json:"overall_trend"`
	FactorTrends map[string]aggregate.Trend `json:"factor_trends"`
	IssueStats   aggregate.FindingStats     `json:"issue_stats"`
}

// Scorecard handles GET /api/v1/scorecard.
func (h *Handler) Scorecard(w http.ResponseWriter, r *http.Request) {
	p, err := parseParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	var (
		snapshots []models.ScorecardSnapshot
		issues    []models.Finding
	)
	g, gCtx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		snapshots, err = h.store.Snapshots().ListScorecard(gCtx, p.filter.Start, p.filter.End)
		return err
	})
	g.Go(func() error {
		var err error
		issues, _, err = h.store.Findings().List(gCtx, models.FeedNetgear, p.unpaged())
		return err
	})
	if err := g.Wait(); err != nil {
		fail(w, "scorecard", err)
		return
	}

	trends := aggregate.FieldTrends(series(snapshots))
	resp := &ScorecardResponse{
		Snapshots:    snapshots,
		OverallTrend: trends["overall_score"],
		FactorTrends: trends,
		IssueStats:   aggregate.SummarizeFindings(issues, h.parse),
	}
	delete(resp.FactorTrends, "overall_score")
	if resp.OverallTrend.Direction == "" {
		resp.OverallTrend.Direction = aggregate.DirectionNone
	}
	if n := len(snapshots); n > 0 {
		resp.Latest = &snapshots[n-1]
	}
	jsonOK(w, resp)
}

// Ingestions handles GET /api/v1/ingestions - import history, newest first.
func (h *Handler) Ingestions(w http.ResponseWriter, r *http.Request) {
	p, err := parseParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	f := p.filter
	if p.chartOnly {
		f.Page, f.PageSize = 1, maxPageSize
	}

	items, total, err := h.store.Ingestions().List(r.Context(), f.PageSize, (f.Page-1)*f.PageSize)
	if err != nil {
		fail(w, "ingestion", err)
		return
	}
	if items == nil {
		items = []*models.IngestionLog{}
	}
	jsonOK(w, newPage(items, total, f))
}

// Reports handles GET /api/v1/reports - uploaded document metadata.
func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.store.Reports().List(r.Context())
	if err != nil {
		fail(w, "report", err)
		return
	}
	if reports == nil {
		reports = []*models.Report{}
	}
	jsonOK(w, reports)
}

// DownloadReport handles GET /api/v1/reports/{id}/content.
func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.store.Reports().GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, "report", err)
		return
	}
	if rep == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "report not found")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(rep.Content)))
	if _, err := w.Write(rep.Content); err != nil {
		log.Printf("report download error: %v", err)
	}
}

// OverviewResponse is the landing page summary.
type OverviewResponse struct {
	Detections      aggregate.DetectionStats `json:"detections"`
	Alerts          aggregate.DetectionStats `json:"alerts"`
	Vulnerabilities aggregate.FindingStats   `json:"vulnerabilities"`
	CloudFindings   aggregate.FindingStats   `json:"cloud_findings"`
	Phishing        aggregate.PhishingStats  `json:"phishing"`
	LastIngestions  []*models.IngestionLog   `json:"last_ingestions"`
}

// Overview handles GET /api/v1/overview. The feed reads run in parallel.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	p, err := parseParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	f := p.unpaged()
	resp := &OverviewResponse{}

	g, gCtx := errgroup.WithContext(r.Context())
	detections := func(feed models.Feed, out *aggregate.DetectionStats) func() error {
		return func() error {
			items, _, err := h.store.Detections().List(gCtx, feed, h.withPolicy(f, feed))
			if err != nil {
				return err
			}
			*out = aggregate.SummarizeDetections(items, h.policy, h.parse)
			return nil
		}
	}
	findings := func(feed models.Feed, out *aggregate.FindingStats) func() error {
		return func() error {
			items, _, err := h.store.Findings().List(gCtx, feed, f)
			if err != nil {
				return err
			}
			*out = aggregate.SummarizeFindings(items, h.parse)
			return nil
		}
	}

	g.Go(detections(models.FeedFalcon, &resp.Detections))
	g.Go(detections(models.FeedSecureworks, &resp.Alerts))
	g.Go(findings(models.FeedTenable, &resp.Vulnerabilities))
	g.Go(findings(models.FeedAWS, &resp.CloudFindings))
	g.Go(func() error {
		items, _, err := h.store.Phishing().List(gCtx, f)
		if err != nil {
			return err
		}
		resp.Phishing = aggregate.SummarizePhishing(items, h.parse)
		return nil
	})
	g.Go(func() error {
		logs, _, err := h.store.Ingestions().List(gCtx, 5, 0)
		if logs == nil {
			logs = []*models.IngestionLog{}
		}
		resp.LastIngestions = logs
		return err
	})

	if err := g.Wait(); err != nil {
		fail(w, "overview", err)
		return
	}
	jsonOK(w, resp)
}
