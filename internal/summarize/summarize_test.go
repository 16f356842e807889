package summarize

import (
	"strings"
	"testing"
)

const mammalsText = "Cats are mammals. Dogs are mammals too. The sky is blue. Water boils at 100 degrees."

func TestSummarizeSelectsRepeatedThemeSentences(t *testing.T) {
	t.Parallel()

	got := Summarize(mammalsText, 2)
	want := "Cats are mammals.\n\nDogs are mammals too."
	if got != want {
		t.Fatalf("summary mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestSummarizeIsIdempotent(t *testing.T) {
	t.Parallel()

	first := Summarize(mammalsText, 2)
	second := Summarize(mammalsText, 2)
	if first != second {
		t.Fatalf("repeated calls differ: %q vs %q", first, second)
	}
}

func TestSummarizeShortInputPassthrough(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Hello world.", "Hello world."},
		{"   padded short text   ", "padded short text"},
		{"", ""},
		{"   \n\t  ", ""},
	}
	for _, c := range cases {
		for _, k := range []int{1, 2, 10} {
			if got := Summarize(c.in, k); got != c.want {
				t.Fatalf("Summarize(%q, %d) = %q, want %q", c.in, k, got, c.want)
			}
		}
	}
}

func TestSummarizeReturnsAllSentencesWhenFewEnough(t *testing.T) {
	t.Parallel()

	text := "Glaciers carve valleys over millennia. Rivers then deepen those same valleys."
	got := Summarize(text, 4)
	want := "Glaciers carve valleys over millennia.\n\nRivers then deepen those same valleys."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSummarizeRespectsBound(t *testing.T) {
	t.Parallel()

	text := "Ants build colonies. Bees make honey. Wasps hunt insects. Termites eat wood. Beetles bore bark. Moths fly at night."
	for _, k := range []int{1, 2, 3} {
		got := Summarize(text, k)
		if n := len(strings.Split(got, "\n\n")); n != k {
			t.Fatalf("k=%d: got %d sentences: %q", k, n, got)
		}
	}

	// More slots than sentences: everything comes back.
	got := Summarize(text, 10)
	if n := len(strings.Split(got, "\n\n")); n != 6 {
		t.Fatalf("k=10: got %d sentences, want 6", n)
	}
}

func TestSummarizePreservesDocumentOrder(t *testing.T) {
	t.Parallel()

	// The last sentence ranks first by score; the output must still present
	// the selected sentences in document order.
	text := "Solar panels convert sunlight efficiently. The cat slept. Wind turbines spin in coastal wind farms. Solar energy and solar storage beat solar costs."
	got := Summarize(text, 2)
	want := "Solar panels convert sunlight efficiently.\n\nSolar energy and solar storage beat solar costs."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSummarizeTieBreakPrefersEarlierSentence(t *testing.T) {
	t.Parallel()

	// All three sentences score identically.
	text := "Red foxes hunt mice. Gray wolves hunt elk. Brown bears hunt fish."
	got := Summarize(text, 2)
	want := "Red foxes hunt mice.\n\nGray wolves hunt elk."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSummarizeStopwordOnlyTextFallsBackToLeadingSentences(t *testing.T) {
	t.Parallel()

	text := "The and or but. He she it they. We you i me. Was were been being. This that these those."
	got := Summarize(text, 2)
	want := "The and or but.\n\nHe she it they."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSummarizeWithContextShiftsSelection(t *testing.T) {
	t.Parallel()

	// Without context the mammal sentences win; a sky-heavy prompt must pull
	// the sky sentence into the selection without itself being selectable.
	got := SummarizeWithContext("sky weather sky sky", mammalsText, 2)

	if !strings.Contains(got, "The sky is blue.") {
		t.Fatalf("expected context to promote the sky sentence, got %q", got)
	}
	if strings.Contains(got, "weather") {
		t.Fatalf("context text leaked into the summary: %q", got)
	}
	if n := len(strings.Split(got, "\n\n")); n != 2 {
		t.Fatalf("got %d sentences, want 2: %q", n, got)
	}
}

func TestSummarizeWithContextShortDocumentStillPassesThrough(t *testing.T) {
	t.Parallel()

	// A long prompt must not make a short document summarizable.
	prompt := strings.Repeat("relevant context words here ", 10)
	got := SummarizeWithContext(prompt, "Tiny document.", 3)
	if got != "Tiny document." {
		t.Fatalf("got %q, want short passthrough", got)
	}
}

func TestSummarizeMaxSentencesBelowOneIsClamped(t *testing.T) {
	t.Parallel()

	got := Summarize(mammalsText, 0)
	if n := len(strings.Split(got, "\n\n")); n != 1 {
		t.Fatalf("k=0: got %d sentences, want 1: %q", n, got)
	}
}

func TestSplitSentences(t *testing.T) {
	t.Parallel()

	sents := SplitSentences(mammalsText)
	want := []string{
		"Cats are mammals.",
		"Dogs are mammals too.",
		"The sky is blue.",
		"Water boils at 100 degrees.",
	}
	if len(sents) != len(want) {
		t.Fatalf("got %d sentences %v, want %d", len(sents), sents, len(want))
	}
	for i := range want {
		if sents[i] != want[i] {
			t.Fatalf("sentence %d = %q, want %q", i, sents[i], want[i])
		}
	}
}

func TestScoreSentences(t *testing.T) {
	t.Parallel()

	freq := BuildFrequencyModel(mammalsText)
	sents := SplitSentences(mammalsText)
	scores := ScoreSentences(sents, freq)

	if len(scores) != len(sents) {
		t.Fatalf("got %d scores for %d sentences", len(scores), len(sents))
	}
	// "mammals" repeats, so both mammal sentences must outrank the rest.
	if scores[0] <= scores[2] || scores[1] <= scores[2] {
		t.Fatalf("mammal sentences should outrank sky sentence: %v", scores)
	}
	for i, s := range scores {
		if s < 0 {
			t.Fatalf("score %d is negative: %v", i, s)
		}
	}
}

func TestScoreSentencesNoContentWordsScoresZero(t *testing.T) {
	t.Parallel()

	scores := ScoreSentences([]string{"the and of", "!!!", ""}, map[string]int{"cats": 3})
	for i, s := range scores {
		if s != 0 {
			t.Fatalf("sentence %d: got score %v, want 0", i, s)
		}
	}
}
