package summarize

// ScoreSentences assigns each sentence a salience score: the sum of the
// frequency-model counts of its content words, divided by the content-word
// count plus one. Unknown words contribute 0. The +1 denominator damps short
// sentences from ranking high on a single frequent word while still
// rewarding sentences with many content-bearing tokens. Sentences with no
// content words score 0. The returned slice is indexed by sentence position.
func ScoreSentences(sents []string, freq map[string]int) []float64 {
	scores := make([]float64, len(sents))
	for i, sent := range sents {
		words := contentTokens(sent)
		sum := 0
		for _, w := range words {
			sum += freq[w]
		}
		scores[i] = float64(sum) / float64(len(words)+1)
	}
	return scores
}
