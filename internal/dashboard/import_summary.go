package dashboard

import (
	"context"
	"time"

	"github.com/JonMunkholm/crmimport/internal/store"
)

// WidgetImportSummary is the widget type of the import summary.
const WidgetImportSummary = "import.summary"

// SummarySource totals import history.
type SummarySource interface {
	SummarizeImports(ctx context.Context, from, to time.Time) ([]store.ImportSummary, error)
}

// ImportSummary renders the import summary widget.
type ImportSummary struct {
	factory *Factory
	source  SummarySource
}

// NewImportSummary returns the import summary widget renderer.
func NewImportSummary(factory *Factory, source SummarySource) *ImportSummary {
	return &ImportSummary{factory: factory, source: source}
}

// Render returns the widget data for imports finished in [from, to) and
// whether it came from the cache.
func (w *ImportSummary) Render(ctx context.Context, userID int64, from, to time.Time) (map[string]any, bool, error) {
	dateFrom, err := FormatDateParam(from)
	if err != nil {
		return nil, false, err
	}
	dateTo, err := FormatDateParam(to)
	if err != nil {
		return nil, false, err
	}

	detail := w.factory.Create(Widget{
		Type:   WidgetImportSummary,
		Params: map[string]any{"dateFrom": dateFrom, "dateTo": dateTo},
	}, userID)
	if detail.IsCached() {
		return detail.TemplateData(), true, nil
	}

	rows, err := w.source.SummarizeImports(ctx, from, to)
	if err != nil {
		return nil, false, err
	}

	var inserted, merged, failed int
	for _, r := range rows {
		inserted += r.Inserted
		merged += r.Merged
		failed += r.Failed
	}
	data := map[string]any{
		"dateFrom": dateFrom,
		"dateTo":   dateTo,
		"kinds":    rows,
		"inserted": inserted,
		"merged":   merged,
		"failed":   failed,
	}
	detail.SetTemplateData(data, false)
	return data, false, nil
}
