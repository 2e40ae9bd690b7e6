package progress

import (
	"context"
	"log/slog"
	"time"

	"fluently/internal/logging"
	"fluently/internal/recording"
	"fluently/internal/services"
)

// Report is the aggregate view of one owner's window.
type Report struct {
	OwnerID               int64
	WindowStart           time.Time
	WindowEnd             time.Time
	SampleCount           int
	AverageDisfluencyRate float64
	AverageFluencyScore   float64
	ImprovementRate       float64
	TypeDistribution      map[string]float64
}

// Aggregator computes windowed progress metrics from completed analyses and
// persists them idempotently. Empty windows produce no stored metrics.
type Aggregator struct {
	store  *recording.Store
	logger *slog.Logger
}

// NewAggregator constructs an Aggregator on the shared store.
func NewAggregator(store *recording.Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		logger: logging.NewComponentLogger(logger, "progress"),
	}
}

// ComputeWindow aggregates the owner's completed analyses inside [start, end)
// and upserts the derived metrics. Recomputing the same window converges on
// identical stored rows.
func (a *Aggregator) ComputeWindow(ctx context.Context, ownerID int64, start, end time.Time) (Report, error) {
	results, err := a.store.ResultsInWindow(ctx, ownerID, start, end)
	if err != nil {
		return Report{}, services.Wrap(services.ErrQueueUnavailable, "progress", "compute", "load window results", err)
	}

	report := Report{
		OwnerID:     ownerID,
		WindowStart: start,
		WindowEnd:   end,
		SampleCount: len(results),
	}
	if len(results) == 0 {
		a.logger.Debug("window empty, no metrics stored",
			logging.Int64(logging.FieldOwnerID, ownerID))
		return report, nil
	}

	report.AverageDisfluencyRate = meanDisfluencyRate(results)
	report.AverageFluencyScore = meanFluencyScore(results)
	report.ImprovementRate = improvementRate(results)
	report.TypeDistribution = typeDistribution(results)

	if err := a.persist(ctx, report); err != nil {
		return Report{}, err
	}
	a.logger.Info("window metrics stored",
		logging.Int64(logging.FieldOwnerID, ownerID),
		logging.Int("sample_count", report.SampleCount),
		logging.Float64("average_disfluency_rate", report.AverageDisfluencyRate),
	)
	return report, nil
}

func (a *Aggregator) persist(ctx context.Context, report Report) error {
	metrics := []*recording.Metric{
		{
			OwnerID:     report.OwnerID,
			Type:        recording.MetricAverageDisfluencyRate,
			Value:       report.AverageDisfluencyRate,
			WindowStart: report.WindowStart,
			WindowEnd:   report.WindowEnd,
			Metadata: map[string]any{
				"sample_count":          report.SampleCount,
				"average_fluency_score": report.AverageFluencyScore,
			},
		},
		{
			OwnerID:     report.OwnerID,
			Type:        recording.MetricImprovementRate,
			Value:       report.ImprovementRate,
			WindowStart: report.WindowStart,
			WindowEnd:   report.WindowEnd,
			Metadata:    map[string]any{"sample_count": report.SampleCount},
		},
		{
			OwnerID:     report.OwnerID,
			Type:        recording.MetricTypeDistribution,
			Value:       float64(len(report.TypeDistribution)),
			WindowStart: report.WindowStart,
			WindowEnd:   report.WindowEnd,
			Metadata:    distributionMetadata(report.TypeDistribution),
		},
	}
	for _, metric := range metrics {
		if err := a.store.UpsertMetric(ctx, metric); err != nil {
			return services.Wrap(services.ErrQueueUnavailable, "progress", "compute", "store metric", err)
		}
	}
	return nil
}

func meanDisfluencyRate(results []*recording.Result) float64 {
	total := 0.0
	for _, result := range results {
		total += result.DisfluencyRate
	}
	return total / float64(len(results))
}

func meanFluencyScore(results []*recording.Result) float64 {
	total := 0.0
	for _, result := range results {
		total += result.FluencyScore
	}
	return total / float64(len(results))
}

// improvementRate compares the first and second half of the window in
// chronological order: a positive value is the percentage drop in disfluency
// rate from the earlier half to the later one.
func improvementRate(results []*recording.Result) float64 {
	if len(results) < 2 {
		return 0
	}
	mid := len(results) / 2
	early := meanDisfluencyRate(results[:mid])
	late := meanDisfluencyRate(results[mid:])
	if early == 0 {
		return 0
	}
	return (early - late) / early * 100
}

// typeDistribution sums per-type counts across the window and normalizes them
// into proportions.
func typeDistribution(results []*recording.Result) map[string]float64 {
	counts := make(map[string]float64)
	total := 0.0
	for _, result := range results {
		raw, ok := result.DetailedAnalysis["type_counts"].(map[string]any)
		if !ok {
			continue
		}
		for label, value := range raw {
			count := toFloat(value)
			if count <= 0 {
				continue
			}
			counts[label] += count
			total += count
		}
	}
	if total == 0 {
		return map[string]float64{}
	}
	for label := range counts {
		counts[label] /= total
	}
	return counts
}

func distributionMetadata(distribution map[string]float64) map[string]any {
	metadata := make(map[string]any, len(distribution))
	for label, share := range distribution {
		metadata[label] = share
	}
	return metadata
}

func toFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
