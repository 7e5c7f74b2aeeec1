package marketdata

import (
	"context"
	"log"
	"time"

	"nifty-signal/internal/model"
)

// ArchiveSource serves bars from the local archive for offline evaluation.
type ArchiveSource struct {
	reader model.BarReader
	now    func() time.Time
}

// NewArchiveSource creates a source backed by r.
func NewArchiveSource(r model.BarReader) *ArchiveSource {
	return &ArchiveSource{reader: r, now: time.Now}
}

// FetchBars reads archived bars newer than now-lookback.
func (a *ArchiveSource) FetchBars(ctx context.Context, req model.BarRequest) (model.BarSeries, error) {
	return a.reader.ReadBars(ctx, req.Symbol, req.Interval, a.now().Add(-req.Lookback))
}

// ArchivingSource persists every series its inner source returns.
// Archive failures are logged and never fail the fetch.
type ArchivingSource struct {
	inner  model.BarSource
	writer model.BarWriter
}

// NewArchivingSource wraps src so fetched bars are written to w.
func NewArchivingSource(src model.BarSource, w model.BarWriter) *ArchivingSource {
	return &ArchivingSource{inner: src, writer: w}
}

// FetchBars fetches from the inner source and archives the result.
func (a *ArchivingSource) FetchBars(ctx context.Context, req model.BarRequest) (model.BarSeries, error) {
	bars, err := a.inner.FetchBars(ctx, req)
	if err != nil || len(bars) == 0 {
		return bars, err
	}
	if err := a.writer.SaveBars(ctx, req.Symbol, req.Interval, bars); err != nil {
		log.Printf("[marketdata] archive %s: %v", req.Symbol, err)
	}
	return bars, nil
}
