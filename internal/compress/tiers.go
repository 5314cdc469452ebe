package compress

// Tier maps an original file size threshold to the settings used for it.
type Tier struct {
	Name         string
	Threshold    int64 // applies when the original size is strictly greater than this
	MaxDimension int
	Quality      float64
}

// Tiers is ordered from most to least aggressive; the first matching tier wins.
var Tiers = []Tier{
	{Name: "aggressive", Threshold: 10 * MB, MaxDimension: 1600, Quality: 0.70},
	{Name: "strong", Threshold: 5 * MB, MaxDimension: 1920, Quality: 0.75},
	{Name: "default", Threshold: 5 * MB / 2, MaxDimension: 2400, Quality: 0.85},
}

// TierFor returns the tier for a file of the given size, or false when the file is small
// enough to pass through unmodified.
func TierFor(size int64) (Tier, bool) {
	for _, t := range Tiers {
		if size > t.Threshold {
			return t, true
		}
	}
	return Tier{}, false
}

// Options builds compression options for this tier with the given byte budget.
func (t Tier) Options(maxBytes int64) Options {
	return Options{
		MaxBytes:     maxBytes,
		Quality:      t.Quality,
		MaxDimension: t.MaxDimension,
	}
}
