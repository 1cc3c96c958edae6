package feedback

// Weights is a feature-name-keyed weight vector for a single (provider,
// research_type) bucket.
type Weights map[string]float64

// clone returns a copy so callers can compare before/after snapshots
// without aliasing the stored map, matching the "before/after weights"
// payload spec.md §4.6 requires on AdaptationApplied events.
func (w Weights) clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// ApplyUpdate performs the bounded online weight update named in spec.md
// §4.6: w ← w + η·(rating_error)·feature_vector, η ∈ (0, 1). Features
// absent from the current weight vector start at zero, so the first
// feedback sample for a bucket seeds its weight from scratch.
func ApplyUpdate(current Weights, learningRate, ratingError float64, features map[string]float64) Weights {
	updated := current.clone()
	for feature, value := range features {
		updated[feature] = updated[feature] + learningRate*ratingError*value
	}
	return updated
}
