package service

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"poll-service/internal/domain"
)

func vote(choice string) *domain.Vote {
	return &domain.Vote{
		PollID:  uuid.New(),
		VoterID: uuid.New(),
		Choice:  choice,
	}
}

func votes(choices ...string) []*domain.Vote {
	vs := make([]*domain.Vote, len(choices))
	for i, c := range choices {
		vs[i] = vote(c)
	}
	return vs
}

func TestAggregate_Percentages(t *testing.T) {
	results := Aggregate(votes("Yes", "Yes", "No"), []string{"Yes", "No"})

	assert.Len(t, results, 2)
	assert.Equal(t, "Yes", results[0].Choice)
	assert.Equal(t, 2, results[0].Count)
	assert.Equal(t, 67, results[0].Percentage)
	assert.Equal(t, "No", results[1].Choice)
	assert.Equal(t, 1, results[1].Count)
	assert.Equal(t, 33, results[1].Percentage)
}

func TestAggregate_NoVotes(t *testing.T) {
	results := Aggregate(nil, []string{"A", "B", "C"})

	assert.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, 0, r.Count)
		assert.Equal(t, 0, r.Percentage)
	}
}

func TestAggregate_ZeroVoteChoicesIncluded(t *testing.T) {
	results := Aggregate(votes("A"), []string{"A", "B"})

	assert.Len(t, results, 2)
	assert.Equal(t, "A", results[0].Choice)
	assert.Equal(t, 100, results[0].Percentage)
	assert.Equal(t, "B", results[1].Choice)
	assert.Equal(t, 0, results[1].Count)
}

func TestAggregate_SortedByCountDescending(t *testing.T) {
	results := Aggregate(votes("B", "B", "B", "A", "C", "C"), []string{"A", "B", "C"})

	assert.Equal(t, "B", results[0].Choice)
	assert.Equal(t, "C", results[1].Choice)
	assert.Equal(t, "A", results[2].Choice)
}

func TestAggregate_TiesKeepChoiceOrder(t *testing.T) {
	results := Aggregate(votes("A", "B", "C"), []string{"C", "B", "A"})

	// All tied at one vote each; choice-set order is preserved.
	assert.Equal(t, "C", results[0].Choice)
	assert.Equal(t, "B", results[1].Choice)
	assert.Equal(t, "A", results[2].Choice)
}

func TestAggregate_StaleVoteChoices(t *testing.T) {
	// A vote exists for a choice that was since removed from the poll.
	results := Aggregate(votes("Old", "New"), []string{"New"})

	assert.Len(t, results, 2)
	total := 0
	for _, r := range results {
		total += r.Count
	}
	assert.Equal(t, 2, total)

	choices := []string{results[0].Choice, results[1].Choice}
	assert.Contains(t, choices, "Old")
	assert.Contains(t, choices, "New")
}

func TestAggregate_DuplicateChoiceTexts(t *testing.T) {
	results := Aggregate(votes("A"), []string{"A", "A", "B"})

	assert.Len(t, results, 2)
}

func TestProperty_AggregateCountsSumToTotal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	choiceSet := []string{"A", "B", "C", "D"}

	properties.Property("counts always sum to the number of votes", prop.ForAll(
		func(picks []int) bool {
			vs := make([]*domain.Vote, len(picks))
			for i, p := range picks {
				vs[i] = vote(choiceSet[p%len(choiceSet)])
			}

			results := Aggregate(vs, choiceSet)

			total := 0
			for _, r := range results {
				total += r.Count
			}
			return total == len(vs)
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.Property("results are ordered by descending count", prop.ForAll(
		func(picks []int) bool {
			vs := make([]*domain.Vote, len(picks))
			for i, p := range picks {
				vs[i] = vote(choiceSet[p%len(choiceSet)])
			}

			results := Aggregate(vs, choiceSet)
			for i := 1; i < len(results); i++ {
				if results[i-1].Count < results[i].Count {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.Property("every known choice appears exactly once", prop.ForAll(
		func(picks []int) bool {
			vs := make([]*domain.Vote, len(picks))
			for i, p := range picks {
				vs[i] = vote(choiceSet[p%len(choiceSet)])
			}

			results := Aggregate(vs, choiceSet)
			seen := make(map[string]int)
			for _, r := range results {
				seen[r.Choice]++
			}
			for _, c := range choiceSet {
				if seen[c] != 1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}

func TestAggregate_Deterministic(t *testing.T) {
	vs := votes("A", "B", "A", "C", "B", "A")
	choiceSet := []string{"A", "B", "C"}

	first := Aggregate(vs, choiceSet)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Aggregate(vs, choiceSet), fmt.Sprintf("run %d diverged", i))
	}
}
