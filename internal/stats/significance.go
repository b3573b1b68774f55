package stats

import (
	"math"

	"github.com/splitlab/splitlab/internal/store"
)

// MinSampleSize is the assignment count a variant needs before it can be
// considered for a winner declaration.
const MinSampleSize = 30

// WinnerConfidence is the confidence level (percent) at which a winner is
// declared.
const WinnerConfidence = 95.0

// VariantMetrics contains derived statistics for a single variant.
// ConversionRate and the interval bounds are percentages.
type VariantMetrics struct {
	VariantID      string  `json:"variant_id"`
	Name           string  `json:"name"`
	TotalUsers     int     `json:"total_users"`
	Conversions    int     `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`
	TotalValue     float64 `json:"total_value"`
	CILower        float64 `json:"ci_lower"`
	CIUpper        float64 `json:"ci_upper"`
}

// Results is the full statistical picture of an experiment. Winner is empty
// until a variant clears both the sample floor and the confidence threshold.
// ConfidenceLevel is 0-100 and is reported whether or not a winner exists.
type Results struct {
	ExperimentID    string           `json:"experiment_id"`
	Variants        []VariantMetrics `json:"variants"`
	Winner          string           `json:"winner,omitempty"`
	ConfidenceLevel float64          `json:"confidence_level"`
}

// SignificanceTest performs a two-proportion z-test.
// Returns confidence level (0-1) that variant A beats variant B.
func SignificanceTest(aConv, aUsers, bConv, bUsers int) float64 {
	if aUsers == 0 || bUsers == 0 {
		return 0.5 // Need data from both variants
	}

	pA := float64(aConv) / float64(aUsers)
	pB := float64(bConv) / float64(bUsers)

	// Pooled proportion under null hypothesis (pA = pB)
	pooledP := float64(aConv+bConv) / float64(aUsers+bUsers)

	// Standard error of the difference
	se := math.Sqrt(pooledP * (1 - pooledP) * (1/float64(aUsers) + 1/float64(bUsers)))

	if se == 0 {
		if pA > pB {
			return 1.0
		} else if pA < pB {
			return 0.0
		}
		return 0.5
	}

	z := (pA - pB) / se

	// P(Z < z) gives us confidence that A > B
	return normalCDF(z)
}

// normalCDF approximates the cumulative distribution function
// of the standard normal distribution
func normalCDF(x float64) float64 {
	// Abramowitz and Stegun, Handbook of Mathematical Functions,
	// formula 7.1.26
	a1 := 0.254829592
	a2 := -0.284496736
	a3 := 1.421413741
	a4 := -1.453152027
	a5 := 1.061405429
	p := 0.3275911

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt(2)

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}

// Analyze computes per-variant metrics and the winner determination for an
// experiment. Every declared variant appears in the output, including those
// with zero assignments.
func Analyze(exp *store.Experiment, variantStats []store.VariantStats) *Results {
	statsMap := make(map[string]store.VariantStats)
	for _, s := range variantStats {
		statsMap[s.VariantID] = s
	}

	variants := make([]VariantMetrics, len(exp.Variants))
	for i, v := range exp.Variants {
		stat := statsMap[v.ID] // Zero-valued if no assignments yet

		rate := 0.0
		if stat.Users > 0 {
			rate = float64(stat.Conversions) / float64(stat.Users) * 100
		}

		ciLower, ciUpper := WilsonInterval(stat.Conversions, stat.Users, 0.95)

		variants[i] = VariantMetrics{
			VariantID:      v.ID,
			Name:           v.Name,
			TotalUsers:     stat.Users,
			Conversions:    stat.Conversions,
			ConversionRate: rate,
			TotalValue:     stat.TotalValue,
			CILower:        ciLower * 100,
			CIUpper:        ciUpper * 100,
		}
	}

	// Winner determination: compare the two best eligible variants by
	// conversion rate. Eligibility requires the sample floor; a best rate
	// of zero means no variant has converted, so there is nothing to win.
	best, second := topTwoEligible(variants)
	if best == nil || second == nil || best.Conversions == 0 {
		return &Results{ExperimentID: exp.ID, Variants: variants}
	}

	confidence := SignificanceTest(best.Conversions, best.TotalUsers, second.Conversions, second.TotalUsers) * 100

	winner := ""
	if confidence >= WinnerConfidence {
		winner = best.VariantID
	}

	return &Results{
		ExperimentID:    exp.ID,
		Variants:        variants,
		Winner:          winner,
		ConfidenceLevel: confidence,
	}
}

// topTwoEligible returns the two variants with the highest conversion rates
// among those meeting the sample floor, best first. Either may be nil when
// fewer than two variants qualify.
func topTwoEligible(variants []VariantMetrics) (best, second *VariantMetrics) {
	for i := range variants {
		v := &variants[i]
		if v.TotalUsers < MinSampleSize {
			continue
		}
		switch {
		case best == nil || v.ConversionRate > best.ConversionRate:
			second = best
			best = v
		case second == nil || v.ConversionRate > second.ConversionRate:
			second = v
		}
	}
	return best, second
}
