package service

import (
	"math"
	"sort"

	"poll-service/internal/domain"
)

// Aggregate turns raw vote rows plus the poll's choice set into ranked
// percentage results. One entry is emitted per known choice (zero-vote
// choices included); choice texts present in votes but missing from
// the choice set (stale or renamed choices) are appended afterward.
//
// Percentages are rounded to the nearest integer and are all zero when
// there are no votes. Results are sorted by count descending with a
// stable sort, so ties keep encounter order. Pure function: no I/O,
// deterministic for identical inputs.
func Aggregate(votes []*domain.Vote, choiceTexts []string) []domain.VoteResult {
	counts := make(map[string]int, len(choiceTexts))
	for _, vote := range votes {
		counts[vote.Choice]++
	}

	results := make([]domain.VoteResult, 0, len(choiceTexts))
	seen := make(map[string]bool, len(choiceTexts))
	for _, text := range choiceTexts {
		if seen[text] {
			continue
		}
		seen[text] = true
		results = append(results, domain.VoteResult{
			Choice: text,
			Count:  counts[text],
		})
	}

	// Stale votes referencing choices no longer on the poll still
	// count toward the total; append them in vote encounter order.
	for _, vote := range votes {
		if !seen[vote.Choice] {
			seen[vote.Choice] = true
			results = append(results, domain.VoteResult{
				Choice: vote.Choice,
				Count:  counts[vote.Choice],
			})
		}
	}

	total := len(votes)
	if total > 0 {
		for i := range results {
			results[i].Percentage = int(math.Round(float64(results[i].Count) / float64(total) * 100))
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Count > results[j].Count
	})

	return results
}
