// Package vote implements the best-of-N ensemble decision over a batch
// of per-image classifications. Plurality wins; a vote-count tie is
// resolved by summing raw class probabilities across the batch, and an
// exactly equal sum falls back to the first tied class in the
// configured class order. The result is a pure function of the ballot
// multiset: shuffling the inputs never changes the decision.
package vote

import (
	"errors"
	"fmt"
)

// ErrNoBallots is returned when Decide is called with an empty batch.
var ErrNoBallots = errors.New("vote: no ballots")

// Method records how a decision was reached.
type Method string

const (
	// MethodPlurality means one class had strictly the most votes.
	MethodPlurality Method = "plurality"
	// MethodProbabilitySum means a vote tie was resolved by summed
	// raw probabilities (or by class order when sums were equal).
	MethodProbabilitySum Method = "probability-sum"
)

// Ballot is one classifier prediction: the chosen label plus the raw
// probability the model assigned to every class, index-aligned with
// the class order passed to Decide.
type Ballot struct {
	Label string
	Probs []float64
}

// Decision is the winning label for a batch and how it was selected.
type Decision struct {
	Label  string
	Method Method
	Tally  map[string]int
}

// Decide aggregates ballots into a single decision. classes is the
// ordered class set; every ballot must carry a label from it and one
// probability per class.
func Decide(classes []string, ballots []Ballot) (Decision, error) {
	if len(ballots) == 0 {
		return Decision{}, ErrNoBallots
	}
	if len(classes) < 2 {
		return Decision{}, fmt.Errorf("vote: need at least 2 classes, got %d", len(classes))
	}

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	tally := make(map[string]int, len(classes))
	for _, b := range ballots {
		if _, ok := index[b.Label]; !ok {
			return Decision{}, fmt.Errorf("vote: ballot label %q not in class set", b.Label)
		}
		if len(b.Probs) != len(classes) {
			return Decision{}, fmt.Errorf("vote: ballot for %q has %d probabilities, want %d",
				b.Label, len(b.Probs), len(classes))
		}
		tally[b.Label]++
	}

	// Leaders in configured class order, so ties resolve deterministically.
	best := -1
	var leaders []string
	for _, c := range classes {
		switch n := tally[c]; {
		case n > best:
			best = n
			leaders = []string{c}
		case n == best:
			leaders = append(leaders, c)
		}
	}

	if len(leaders) == 1 {
		return Decision{Label: leaders[0], Method: MethodPlurality, Tally: tally}, nil
	}

	// Tie-break: sum raw probabilities for each tied class across the
	// whole batch. Strict > keeps the earliest tied class on equal sums.
	winner := leaders[0]
	bestSum := probSum(ballots, index[winner])
	for _, c := range leaders[1:] {
		if s := probSum(ballots, index[c]); s > bestSum {
			winner = c
			bestSum = s
		}
	}

	return Decision{Label: winner, Method: MethodProbabilitySum, Tally: tally}, nil
}

func probSum(ballots []Ballot, class int) float64 {
	var sum float64
	for _, b := range ballots {
		sum += b.Probs[class]
	}
	return sum
}
