package summarize

// BuildFrequencyModel counts occurrences of each normalized content word in
// text. Stopwords and tokens that normalize to the empty string are never
// inserted, so every key is non-empty, lowercase and alphanumeric-only.
// Identical input always produces an identical mapping.
func BuildFrequencyModel(text string) map[string]int {
	freq := make(map[string]int)
	for _, w := range contentTokens(text) {
		freq[w]++
	}
	return freq
}
