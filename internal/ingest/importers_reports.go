package ingest

import (
	"context"

	"github.com/good-yellow-bee/secdash/internal/models"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

// scorecardPDFImporter stores the uploaded PDF as a report without
// reading it.
type scorecardPDFImporter struct {
	store storage.Storage
}

func newScorecardPDFImporter(store storage.Storage) Importer {
	return &scorecardPDFImporter{store: store}
}

func (s *scorecardPDFImporter) Source() Source { return SourceNetgearScorecardPDF }

func (s *scorecardPDFImporter) Prepare(doc *Document) error {
	if len(doc.Content) == 0 {
		return validationf("file %s is empty", doc.Filename)
	}
	return nil
}

func (s *scorecardPDFImporter) Import(ctx context.Context, doc *Document) (*Outcome, error) {
	rep := &models.Report{
		Source:    string(SourceNetgearScorecardPDF),
		Filename:  doc.Filename,
		SizeBytes: int64(len(doc.Content)),
		Checksum:  doc.Checksum,
		Content:   doc.Content,
	}
	if p := doc.Classification.Period; p != nil {
		rep.PeriodMonth = p.MonthStart()
	}
	if err := s.store.Reports().Create(ctx, rep); err != nil {
		return &Outcome{}, stepFailed("store report", err)
	}
	return &Outcome{Count: 1}, nil
}
