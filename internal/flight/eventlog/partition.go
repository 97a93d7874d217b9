package eventlog

import (
	"fmt"
	"strings"
	"time"
)

const (
	// RootPrefix is the common prefix of every partition key.
	RootPrefix = "events/"
	// PartitionFile is the object name inside a day prefix.
	PartitionFile = "flights.jsonl"
	// MaxRangeDays bounds per-day listing. Wider ranges list RootPrefix once.
	MaxRangeDays = 366
)

// PartitionPrefix returns events/YYYY/MM/DD/ for the UTC day of t.
func PartitionPrefix(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%04d/%02d/%02d/", RootPrefix, t.Year(), int(t.Month()), t.Day())
}

// PartitionKey returns the object key holding flights created on t's UTC day.
func PartitionKey(t time.Time) string {
	return PartitionPrefix(t) + PartitionFile
}

// ParsePartitionKey extracts the UTC day from a partition key. Keys that do
// not follow the layout report false.
func ParsePartitionKey(key string) (time.Time, bool) {
	rest, ok := strings.CutPrefix(key, RootPrefix)
	if !ok {
		return time.Time{}, false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 4 || parts[3] != PartitionFile {
		return time.Time{}, false
	}
	if len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return time.Time{}, false
	}
	day, err := time.Parse("2006/01/02", strings.Join(parts[:3], "/"))
	if err != nil {
		return time.Time{}, false
	}
	return day.UTC(), true
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dayPrefixes lists the day prefixes covering [from, to]. narrowed is false
// when the range is open or wider than MaxRangeDays and the caller must list
// RootPrefix instead.
func dayPrefixes(from, to time.Time) (prefixes []string, narrowed bool) {
	if from.IsZero() || to.IsZero() {
		return nil, false
	}
	first, last := startOfDay(from), startOfDay(to)
	if last.Before(first) {
		return nil, true
	}
	if days := int(last.Sub(first).Hours()/24) + 1; days > MaxRangeDays {
		return nil, false
	}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		prefixes = append(prefixes, PartitionPrefix(d))
	}
	return prefixes, true
}

// dayInRange reports whether any instant of day overlaps [from, to].
func dayInRange(day, from, to time.Time) bool {
	if !from.IsZero() && day.Before(startOfDay(from)) {
		return false
	}
	if !to.IsZero() && day.After(startOfDay(to)) {
		return false
	}
	return true
}
