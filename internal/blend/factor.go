package blend

// Factor is the slider position of a blend, 0 meaning the source pose and
// 100 the destination.
type Factor int

const (
	MinFactor Factor = 0
	MaxFactor Factor = 100
)

// Clamp limits f to MinFactor..MaxFactor.
func (f Factor) Clamp() Factor {
	return min(max(f, MinFactor), MaxFactor)
}

// Normalized maps the clamped factor to [0, 1].
func (f Factor) Normalized() float64 {
	return float64(f.Clamp()) / float64(MaxFactor)
}
