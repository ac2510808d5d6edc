package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ledgersync/internal/core"
)

// frequencyBands maps a mean day-gap range onto a named cadence. The
// variance penalty differs per band: tight cadences tolerate less jitter.
var frequencyBands = []struct {
	name        string
	minGap      float64
	maxGap      float64
	stdevFactor float64
}{
	{"weekly", 5, 9, 10},
	{"biweekly", 12, 16, 7},
	{"monthly", 25, 35, 5},
	{"quarterly", 85, 95, 3},
	{"yearly", 355, 375, 1},
}

const minConfidence = 50

type recurringKey struct {
	Category string
	Account  string
	Bucket   string // amount rounded to nearest 100, fixed string form
	Type     core.TransactionType
}

// detectRecurringPatterns clusters income and expense transactions by
// (category, account, amount-to-nearest-100, type) and keeps clusters of at
// least three occurrences whose interval pattern matches a known cadence
// with sufficient regularity.
func detectRecurringPatterns(owner string, txs []core.Transaction) []core.RecurringPattern {
	type cluster struct {
		dates   []time.Time
		total   decimal.Decimal
		bucket  decimal.Decimal
	}
	clusters := make(map[recurringKey]*cluster)

	for _, tx := range txs {
		if tx.Type != core.TypeIncome && tx.Type != core.TypeExpense {
			continue
		}
		bucket := tx.Amount.Div(hundred).Round(0).Mul(hundred)
		key := recurringKey{
			Category: tx.Category,
			Account:  tx.Account,
			Bucket:   bucket.StringFixed(2),
			Type:     tx.Type,
		}
		c, ok := clusters[key]
		if !ok {
			c = &cluster{bucket: bucket}
			clusters[key] = c
		}
		c.dates = append(c.dates, tx.Date)
		c.total = c.total.Add(tx.Amount)
	}

	var patterns []core.RecurringPattern
	for key, c := range clusters {
		if len(c.dates) < 3 {
			continue
		}
		sort.Slice(c.dates, func(i, j int) bool { return c.dates[i].Before(c.dates[j]) })

		gaps := dayGaps(c.dates)
		frequency, confidence := classifyFrequency(gaps)
		if frequency == "" || confidence < minConfidence {
			continue
		}

		p := core.RecurringPattern{
			Owner:         owner,
			Category:      key.Category,
			Account:       key.Account,
			Type:          key.Type,
			AmountBucket:  c.bucket,
			Frequency:     frequency,
			Confidence:    confidence,
			Occurrences:   len(c.dates),
			AverageAmount: c.total.Div(decimal.NewFromInt(int64(len(c.dates)))),
			FirstSeen:     c.dates[0],
			LastSeen:      c.dates[len(c.dates)-1],
		}
		if frequency == "monthly" {
			p.ExpectedDay = dayOfMonthMode(c.dates)
		}
		patterns = append(patterns, p)
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Category != patterns[j].Category {
			return patterns[i].Category < patterns[j].Category
		}
		if patterns[i].Account != patterns[j].Account {
			return patterns[i].Account < patterns[j].Account
		}
		return patterns[i].AmountBucket.LessThan(patterns[j].AmountBucket)
	})
	return patterns
}

func dayGaps(sorted []time.Time) []float64 {
	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, sorted[i].Sub(sorted[i-1]).Hours()/24)
	}
	return gaps
}

// classifyFrequency matches the mean gap against the cadence bands and
// scores regularity as 100 minus the band's factor times the gap stdev,
// clamped at zero. An empty frequency means no band matched.
func classifyFrequency(gaps []float64) (string, float64) {
	if len(gaps) == 0 {
		return "", 0
	}
	mean := meanOf(gaps)
	stdev := stdevOf(gaps, mean)

	for _, band := range frequencyBands {
		if mean >= band.minGap && mean <= band.maxGap {
			confidence := 100 - band.stdevFactor*stdev
			if confidence < 0 {
				confidence = 0
			}
			return band.name, confidence
		}
	}
	return "", 0
}

// dayOfMonthMode is the statistical mode of the occurrence days; ties break
// toward the earliest day for determinism.
func dayOfMonthMode(dates []time.Time) int {
	counts := make(map[int]int)
	for _, d := range dates {
		counts[d.Day()]++
	}
	best, bestCount := 0, 0
	for day, count := range counts {
		if count > bestCount || (count == bestCount && day < best) {
			best = day
			bestCount = count
		}
	}
	return best
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdevOf(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values)))
}
