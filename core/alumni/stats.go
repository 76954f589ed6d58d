package alumni

import (
	"sort"
	"strings"
)

// ComputeStats aggregates Stats over items. Inactive accounts are ignored, and only verified
// accounts with coordinates count as located.
func ComputeStats(items []Alumni) Stats {
	var st Stats
	byCountry := make(map[string]int)
	byDepartment := make(map[string]int)
	byYear := make(map[string]int)

	for _, a := range items {
		if !a.IsActive {
			continue
		}
		st.TotalAlumni++
		if a.IsVerified {
			st.VerifiedAlumni++
		} else {
			st.PendingVerification++
		}
		if a.Department != "" {
			byDepartment[a.Department]++
		}
		if a.GraduationYear > 0 {
			byYear[yearLabel(a.GraduationYear)]++
		}
		if a.IsVerified && a.HasLocation() {
			st.LocatedAlumni++
			if a.Country != "" {
				byCountry[a.Country]++
			}
		}
	}

	st.Countries = len(byCountry)
	st.ByCountry = statCounts(byCountry)
	st.ByDepartment = statCounts(byDepartment)
	st.ByGraduationYear = statCounts(byYear)
	return st
}

func statCounts(counts map[string]int) []StatCount {
	scs := make([]StatCount, 0, len(counts))
	for label, count := range counts {
		scs = append(scs, StatCount{Label: label, Count: count})
	}
	SortStatCounts(scs)
	return scs
}

// SortStatCounts sorts by count descending, then label ascending (case-insensitive, then exact).
func SortStatCounts(scs []StatCount) {
	sort.Slice(scs, func(i, j int) bool {
		if scs[i].Count != scs[j].Count {
			return scs[i].Count > scs[j].Count
		}
		li, lj := strings.ToLower(scs[i].Label), strings.ToLower(scs[j].Label)
		if li != lj {
			return li < lj
		}
		return scs[i].Label < scs[j].Label
	})
}
