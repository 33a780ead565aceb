package dashboard

import (
	"net/http"

	"github.com/good-yellow-bee/secdash/internal/aggregate"
	"github.com/good-yellow-bee/secdash/internal/models"
)

// Detections handles GET /api/v1/detections.
func (h *Handler) Detections(w http.ResponseWriter, r *http.Request) {
	h.listDetections(w, r, models.FeedFalcon)
}

// DetectionStats handles GET /api/v1/detections/stats.
func (h *Handler) DetectionStats(w http.ResponseWriter, r *http.Request) {
	h.detectionStats(w, r, models.FeedFalcon)
}

// Alerts handles GET /api/v1/alerts.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	h.listDetections(w, r, models.FeedSecureworks)
}

// AlertStats handles GET /api/v1/alerts/stats.
func (h *Handler) AlertStats(w http.ResponseWriter, r *http.Request) {
	h.detectionStats(w, r, models.FeedSecureworks)
}

func (h *Handler) listDetections(w http.ResponseWriter, r *http.Request, feed models.Feed) {
	p, err := parseParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	f := h.withPolicy(p.filter, feed)
	items, total, err := h.store.Detections().List(r.Context(), feed, f)
	if err != nil {
		fail(w, string(feed), err)
		return
	}
	if p.chartOnly {
		jsonOK(w, items)
		return
	}
	jsonOK(w, newPage(items, total, f))
}

func (h *Handler) detectionStats(w http.ResponseWriter, r *http.Request, feed models.Feed) {
	p, err := parseParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	items, _, err := h.store.Detections().List(r.Context(), feed, h.withPolicy(p.unpaged(), feed))
	if err != nil {
		fail(w, string(feed), err)
		return
	}
	jsonOK(w, aggregate.SummarizeDetections(items, h.policy, h.parse))
}

// Vulnerabilities handles GET /api/v1/vulnerabilities.
func (h *Handler) Vulnerabilities(w http.ResponseWriter, r *http.Request) {
	h.listFindings(w, r, models.FeedTenable, false)
}

// VulnerabilityStats handles GET /api/v1/vulnerabilities/stats.
func (h *Handler) VulnerabilityStats(w http.ResponseWriter, r *http.Request) {
	h.findingStats(w, r, models.FeedTenable)
}

// CloudFindings handles GET /api/v1/cloud-findings.
func (h *Handler) CloudFindings(w http.ResponseWriter, r *http.Request) {
	h.listFindings(w, r, models.FeedAWS, false)
}

// CloudFindingStats handles GET /api/v1/cloud-findings/stats. ByCategory
// holds the product type.
func (h *Handler) CloudFindingStats(w http.ResponseWriter, r *http.Request) {
	h.findingStats(w, r, models.FeedAWS)
}

// ScorecardIssues handles GET /api/v1/scorecard/issues - issues ordered
// by severity rank then score.
func (h *Handler) ScorecardIssues(w http.ResponseWriter, r *http.Request) {
	h.listFindings(w, r, models.FeedNetgear, true)
}

func (h *Handler) listFindings(w http.ResponseWriter, r *http.Request, feed models.Feed, ranked bool) {
	p, err := parseParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	// Rank order spans every page, so ranked lists are sorted before paging.
	f := p.filter
	if ranked {
		f = p.unpaged()
	}
	items, total, err := h.store.Findings().List(r.Context(), feed, f)
	if err != nil {
		fail(w, string(feed), err)
		return
	}
	if ranked {
		aggregate.SortFindings(items)
		items = pageOf(items, p.filter.Page, p.filter.PageSize)
	}
	if p.chartOnly {
		jsonOK(w, items)
		return
	}
	jsonOK(w, newPage(items, total, p.filter))
}

func (h *Handler) findingStats(w http.ResponseWriter, r *http.Request, feed models.Feed) {
	p, err := parseParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	items, _, err := h.store.Findings().List(r.Context(), feed, p.unpaged())
	if err != nil {
		fail(w, string(feed), err)
		return
	}
	jsonOK(w, aggregate.SummarizeFindings(items, h.parse))
}

func pageOf[T any](items []T, page, size int) []T {
	if size <= 0 {
		return items
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := min(start+size, len(items))
	return items[start:end]
}

// Phishing handles GET /api/v1/phishing.
func (h *Handler) Phishing(w http.ResponseWriter, r *http.Request) {
	p, err := parseParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	items, total, err := h.store.Phishing().List(r.Context(), p.filter)
	if err != nil {
		fail(w, "phishing", err)
		return
	}
	if p.chartOnly {
		jsonOK(w, items)
		return
	}
	jsonOK(w, newPage(items, total, p.filter))
}

// PhishingStats handles GET /api/v1/phishing/stats.
func (h *Handler) PhishingStats(w http.ResponseWriter, r *http.Request) {
	p, err := parseParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	items, _, err := h.store.Phishing().List(r.Context(), p.unpaged())
	if err != nil {
		fail(w, "phishing", err)
		return
	}
	jsonOK(w, aggregate.SummarizePhishing(items, h.parse))
}

// Advisories handles GET /api/v1/advisories.
func (h *Handler) Advisories(w http.ResponseWriter, r *http.Request) {
	p, err := parseParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	items, total, err := h.store.Advisories().List(r.Context(), p.filter)
	if err != nil {
		fail(w, "advisory", err)
		return
	}
	if p.chartOnly {
		jsonOK(w, items)
		return
	}
	jsonOK(w, newPage(items, total, p.filter))
}

// OpenItems handles GET /api/v1/open-items.
func (h *Handler) OpenItems(w http.ResponseWriter, r *http.Request) {
	p, err := parseParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	items, total, err := h.store.OpenItems().List(r.Context(), p.filter)
	if err != nil {
		fail(w, "open items", err)
		return
	}
	if p.chartOnly {
		jsonOK(w, items)
		return
	}
	jsonOK(w, newPage(items, total, p.filter))
}
