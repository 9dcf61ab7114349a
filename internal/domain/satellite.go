package domain

// VegetationIndexStats is the only output the engine consumes from the
// satellite analysis collaborator: mean index before and after a cutoff.
type VegetationIndexStats struct {
	MeanIndexBefore float64 `json:"mean_index_before"`
	MeanIndexAfter  float64 `json:"mean_index_after"`
}

// RelativeDrop is the fraction of vegetation index lost across the cutoff.
// Zero when there was nothing to lose.
func (v VegetationIndexStats) RelativeDrop() float64 {
	if v.MeanIndexBefore <= 0 {
		return 0
	}
	drop := (v.MeanIndexBefore - v.MeanIndexAfter) / v.MeanIndexBefore
	if drop < 0 {
		return 0
	}
	return drop
}
