// internal/domain/alert/donor.go
package alert

import "sort"

// DonorCandidate is a bar's current unit count for the deficient pool.
type DonorCandidate struct {
	BarID uint
	Units int64
}

// SuggestDonors ranks candidate bars by surplus above the donation
// threshold, descending, ties broken by bar id. Each proposal offers
// min(surplus, needed) units. The second result is the externalNeeded
// flag: true when no candidate has positive surplus.
func SuggestDonors(candidates []DonorCandidate, donationThreshold, needed int64) ([]DonorSuggestion, bool) {
	if needed < 1 {
		needed = 1
	}

	var donors []DonorSuggestion
	for _, c := range candidates {
		surplus := c.Units - donationThreshold
		if surplus <= 0 {
			continue
		}
		suggested := surplus
		if suggested > needed {
			suggested = needed
		}
		donors = append(donors, DonorSuggestion{
			BarID:             c.BarID,
			SurplusUnits:      surplus,
			SuggestedQuantity: suggested,
		})
	}

	sort.SliceStable(donors, func(i, j int) bool {
		if donors[i].SurplusUnits != donors[j].SurplusUnits {
			return donors[i].SurplusUnits > donors[j].SurplusUnits
		}
		return donors[i].BarID < donors[j].BarID
	})

	return donors, len(donors) == 0
}
