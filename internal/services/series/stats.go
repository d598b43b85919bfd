package series

import "PowerPull/internal/domain/models"

// ComputeStats scans series for the extremes and mean of m. With realOnly,
// synthesized values are skipped. Returns nil when no bucket qualifies.
func ComputeStats(series []models.SeriesPoint, m models.Measure, realOnly bool) *models.SeriesStats {
	var st *models.SeriesStats
	sum := 0.0
	for _, p := range series {
		v, ok := p.Values[m]
		if !ok {
			continue
		}
		filled := p.IsFilled(m)
		if realOnly && filled {
			continue
		}
		if st == nil {
			st = &models.SeriesStats{Min: v, Max: v, MinTimeKey: p.TimeKey, MaxTimeKey: p.TimeKey}
		}
		// strict comparisons keep the first occurrence on ties
		if v < st.Min {
			st.Min, st.MinTimeKey = v, p.TimeKey
		}
		if v > st.Max {
			st.Max, st.MaxTimeKey = v, p.TimeKey
		}
		sum += v
		st.BucketCount++
		if filled {
			st.SyntheticCount++
		}
	}
	if st == nil {
		return nil
	}
	st.Average = Round2(sum / float64(st.BucketCount))
	return st
}

// ComputeStatsSet computes stats for every measure; nil when none qualifies.
func ComputeStatsSet(series []models.SeriesPoint, measures []models.Measure, realOnly bool) models.StatsSet {
	var set models.StatsSet
	for _, m := range measures {
		st := ComputeStats(series, m, realOnly)
		if st == nil {
			continue
		}
		if set == nil {
			set = make(models.StatsSet, len(measures))
		}
		set[m] = st
	}
	return set
}
