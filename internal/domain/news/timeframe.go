package news

import "strings"

// Frequency values accepted by the news pipeline.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYear    = "year"
)

var timeRangeByFrequency = map[string]string{
	FrequencyDaily:   "d",
	FrequencyWeekly:  "w",
	FrequencyMonthly: "m",
	FrequencyYear:    "y",
}

var daysByFrequency = map[string]int{
	FrequencyDaily:   1,
	FrequencyWeekly:  7,
	FrequencyMonthly: 30,
	FrequencyYear:    366,
}

// MapTimeframe folds free-form timeframe text ("last 24 hours", "past week")
// into a fetch frequency, defaulting to daily.
func MapTimeframe(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "24") || strings.Contains(t, "day"):
		return FrequencyDaily
	case strings.Contains(t, "week") || strings.Contains(t, "7"):
		return FrequencyWeekly
	case strings.Contains(t, "month") || strings.Contains(t, "30"):
		return FrequencyMonthly
	case strings.Contains(t, "year") || strings.Contains(t, "365"):
		return FrequencyYear
	default:
		return FrequencyDaily
	}
}
