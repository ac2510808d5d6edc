package analytics

import (
	"regexp"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ledgersync/internal/core"
)

// Known brand patterns checked against the note before falling back to the
// capitalized-word heuristic. Extraction is best-effort: a miss only means a
// row does not contribute to merchant intelligence.
var brandPatterns = []struct {
	re   *regexp.Regexp
	name string
}{
	{regexp.MustCompile(`(?i)\bamazon\b`), "Amazon"},
	{regexp.MustCompile(`(?i)\bflipkart\b`), "Flipkart"},
	{regexp.MustCompile(`(?i)\bswiggy\b`), "Swiggy"},
	{regexp.MustCompile(`(?i)\bzomato\b`), "Zomato"},
	{regexp.MustCompile(`(?i)\buber\b`), "Uber"},
	{regexp.MustCompile(`(?i)\bola\b`), "Ola"},
	{regexp.MustCompile(`(?i)\bnetflix\b`), "Netflix"},
	{regexp.MustCompile(`(?i)\bspotify\b`), "Spotify"},
	{regexp.MustCompile(`(?i)\bmyntra\b`), "Myntra"},
	{regexp.MustCompile(`(?i)\bbigbasket\b`), "BigBasket"},
	{regexp.MustCompile(`(?i)\bdmart\b`), "DMart"},
	{regexp.MustCompile(`(?i)\bairtel\b`), "Airtel"},
	{regexp.MustCompile(`(?i)\bjio\b`), "Jio"},
}

var capitalizedWord = regexp.MustCompile(`\b[A-Z][a-zA-Z]{2,}\b`)

// ExtractMerchant derives a merchant name from a free-text expense note:
// a known brand match first, otherwise the first capitalized word of at
// least three characters. Returns "" when nothing usable is found.
func ExtractMerchant(note string) string {
	if note == "" {
		return ""
	}
	for _, bp := range brandPatterns {
		if bp.re.MatchString(note) {
			return bp.name
		}
	}
	return capitalizedWord.FindString(note)
}

// buildMerchantProfiles groups expenses by extracted merchant and keeps
// merchants seen at least twice.
func buildMerchantProfiles(owner string, txs []core.Transaction) []core.MerchantProfile {
	type merchantAgg struct {
		profile    core.MerchantProfile
		dates      []time.Time
		categories map[string]int
	}
	byName := make(map[string]*merchantAgg)

	for _, tx := range txs {
		if tx.Type != core.TypeExpense || tx.Note == "" {
			continue
		}
		name := ExtractMerchant(tx.Note)
		if name == "" {
			continue
		}
		m, ok := byName[name]
		if !ok {
			m = &merchantAgg{
				profile:    core.MerchantProfile{Owner: owner, Name: name, FirstSeen: tx.Date, LastSeen: tx.Date},
				categories: make(map[string]int),
			}
			byName[name] = m
		}
		m.profile.Occurrences++
		m.profile.TotalSpent = m.profile.TotalSpent.Add(tx.Amount)
		m.categories[tx.Category]++
		m.dates = append(m.dates, tx.Date)
		if tx.Date.Before(m.profile.FirstSeen) {
			m.profile.FirstSeen = tx.Date
		}
		if tx.Date.After(m.profile.LastSeen) {
			m.profile.LastSeen = tx.Date
		}
	}

	profiles := make([]core.MerchantProfile, 0, len(byName))
	for _, m := range byName {
		if m.profile.Occurrences < 2 {
			continue
		}
		p := m.profile
		p.AverageSpent = p.TotalSpent.Div(decimal.NewFromInt(int64(p.Occurrences)))
		p.MonthsActive = monthSpan(p.FirstSeen, p.LastSeen)
		p.AvgGapDays = averageGapDays(m.dates)
		p.IsRecurring = p.Occurrences >= 3 && p.AvgGapDays > 0 && p.AvgGapDays < 45
		p.TopCategory = topCategory(m.categories)
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles
}

// monthSpan is the inclusive calendar-month span between two dates.
func monthSpan(first, last time.Time) int {
	return (last.Year()-first.Year())*12 + int(last.Month()) - int(first.Month()) + 1
}

func averageGapDays(dates []time.Time) float64 {
	if len(dates) < 2 {
		return 0
	}
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var total float64
	for i := 1; i < len(sorted); i++ {
		total += sorted[i].Sub(sorted[i-1]).Hours() / 24
	}
	return total / float64(len(sorted)-1)
}

func topCategory(counts map[string]int) string {
	var best string
	bestCount := -1
	for category, count := range counts {
		if count > bestCount || (count == bestCount && category < best) {
			best = category
			bestCount = count
		}
	}
	return best
}
