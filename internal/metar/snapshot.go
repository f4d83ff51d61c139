package metar

import "time"

// DefaultFreshnessWindow is how long a snapshot is considered current.
const DefaultFreshnessWindow = 3600 * time.Second

// WeatherSnapshot is the normalized observation handed to calculation and
// display collaborators: the decoded report plus the caller-resolved absolute
// issuance timestamp and source tag.
type WeatherSnapshot struct {
	Report          *ParsedReport `json:"report"`
	IssuedAt        time.Time     `json:"issued_at"`
	Source          string        `json:"source"`
	FreshnessWindow time.Duration `json:"freshness_window_seconds"`
}

// ToSnapshot combines a parsed report with its absolute issuance time and
// source tag. Total function with no failure path; callers never invoke it
// with a nil report.
func ToSnapshot(report *ParsedReport, issuedAt time.Time, source string) WeatherSnapshot {
	return WeatherSnapshot{
		Report:          report,
		IssuedAt:        issuedAt,
		Source:          source,
		FreshnessWindow: DefaultFreshnessWindow,
	}
}

// Age returns how far the snapshot's issuance lies behind now.
func (s WeatherSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.IssuedAt)
}

// IsFresh reports whether the snapshot is still inside its freshness window.
func (s WeatherSnapshot) IsFresh(now time.Time) bool {
	return s.Age(now) <= s.FreshnessWindow
}
