package core

import "sort"

// DayBundle is the aggregated view of all records sharing one collection
// date, the unit the dashboard cards and the exporter work on.
type DayBundle struct {
	Date   string
	Grupo1 []Record
	Grupo2 []Record
	Total  int
}

// BundleByDay groups both record lists by collection date, most recent day
// first. Pure function: same inputs always yield the same bundles in the
// same order.
func BundleByDay(grupo1, grupo2 []Record) []DayBundle {
	byDate := make(map[string]*DayBundle)

	for _, r := range grupo1 {
		b := bundleFor(byDate, r.Date)
		b.Grupo1 = append(b.Grupo1, r)
		b.Total++
	}
	for _, r := range grupo2 {
		b := bundleFor(byDate, r.Date)
		b.Grupo2 = append(b.Grupo2, r)
		b.Total++
	}

	bundles := make([]DayBundle, 0, len(byDate))
	for _, b := range byDate {
		bundles = append(bundles, *b)
	}
	// ISO dates order lexicographically.
	sort.Slice(bundles, func(i, j int) bool {
		return bundles[i].Date > bundles[j].Date
	})
	return bundles
}

func bundleFor(byDate map[string]*DayBundle, date string) *DayBundle {
	if b, ok := byDate[date]; ok {
		return b
	}
	b := &DayBundle{Date: date}
	byDate[date] = b
	return b
}

// SortByLine returns a copy of the records ordered by production line,
// ascending. The export layout requires this ordering regardless of how the
// store returned the rows.
func SortByLine(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Line < out[j].Line
	})
	return out
}
