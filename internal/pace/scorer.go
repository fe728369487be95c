package pace

import "strings"

// Scorer rates a set of generated samples. Higher is better. Scores are
// only compared against each other within one optimization run, so any
// consistent scale works.
type Scorer interface {
	Score(samples []string) float64
}

// LexicalDiversity scores a sample set by its average pairwise lexical
// distance. Candidate prompts that produce near-duplicate samples score
// low; varied phrasing scores high. Distance between two samples is the
// Jaccard distance of their lowercased token sets.
type LexicalDiversity struct{}

func (LexicalDiversity) Score(samples []string) float64 {
	if len(samples) < 2 {
		return 0
	}

	sets := make([]map[string]struct{}, len(samples))
	for i, s := range samples {
		sets[i] = tokenSet(s)
	}

	var sum float64
	var pairs int
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			sum += jaccardDistance(sets[i], sets[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}

func jaccardDistance(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return 1 - float64(inter)/float64(union)
}
