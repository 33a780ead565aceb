package batch

import (
	"context"
	"fmt"
	"sort"

	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

type dumpFunc func(ctx context.Context, store storage.Storage, f storage.ListFilter, e *Exporter) (int, error)

func detections(feed models.Feed) dumpFunc {
	return func(ctx context.Context, store storage.Storage, f storage.ListFilter, e *Exporter) (int, error) {
		items, _, err := store.Detections().List(ctx, feed, f)
		if err != nil {
			return 0, err
		}
		return len(items), e.ExportDetections(items)
	}
}

func findings(feed models.Feed) dumpFunc {
	return func(ctx context.Context, store storage.Storage, f storage.ListFilter, e *Exporter) (int, error) {
		items, _, err := store.Findings().List(ctx, feed, f)
		if err != nil {
			return 0, err
		}
		return len(items), e.ExportFindings(items)
	}
}

var dumpers = map[string]dumpFunc{
	"detections":       detections(models.FeedFalcon),
	"alerts":           detections(models.FeedSecureworks),
	"vulnerabilities":  findings(models.FeedTenable),
	"cloud-findings":   findings(models.FeedAWS),
	"scorecard-issues": findings(models.FeedNetgear),
	"phishing": func(ctx context.Context, store storage.Storage, f storage.ListFilter, e *Exporter) (int, error) {
		items, _, err := store.Phishing().List(ctx, f)
		if err != nil {
			return 0, err
		}
		return len(items), e.ExportPhishing(items)
	},
	"advisories": func(ctx context.Context, store storage.Storage, f storage.ListFilter, e *Exporter) (int, error) {
		items, _, err := store.Advisories().List(ctx, f)
		if err != nil {
			return 0, err
		}
		return len(items), e.ExportAdvisories(items)
	},
	"open-items": func(ctx context.Context, store storage.Storage, f storage.ListFilter, e *Exporter) (int, error) {
		items, _, err := store.OpenItems().List(ctx, f)
		if err != nil {
			return 0, err
		}
		return len(items), e.ExportOpenItems(items)
	},
}

// Kinds lists the record kinds Dump accepts, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(dumpers))
	for k := range dumpers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Dump writes every stored record of kind matching f and returns how
// many were written. Paging fields of f are ignored.
func Dump(ctx context.Context, store storage.Storage, kind string, f storage.ListFilter, e *Exporter) (int, error) {
	fn, ok := dumpers[kind]
	if !ok {
		return 0, fmt.Errorf("unknown record kind %q", kind)
	}
	f.Page, f.PageSize = 0, 0
	return fn(ctx, store, f, e)
}
