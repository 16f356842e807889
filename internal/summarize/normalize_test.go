package summarize

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"Hello", "hello"},
		{"Hello!!!", "hello"},
		{"don't", "dont"},
		{"U.S.A.", "usa"},
		{"ABC123", "abc123"},
		{"2024", "2024"},
		{"...", ""},
		{"", ""},
		{"naïve", "nave"}, // only ASCII alphanumerics survive
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Fatalf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsStopword(t *testing.T) {
	t.Parallel()

	for _, w := range []string{"the", "The", "THE", "and", "don't", "DON'T", "you're", "is"} {
		if !IsStopword(w) {
			t.Fatalf("IsStopword(%q) = false", w)
		}
	}
	for _, w := range []string{"mammals", "invoice", "2024", "", "..."} {
		if IsStopword(w) {
			t.Fatalf("IsStopword(%q) = true", w)
		}
	}
}

func TestBuildFrequencyModel(t *testing.T) {
	t.Parallel()

	freq := BuildFrequencyModel("The cats chased the CATS. Don't chase cats!")

	if freq["cats"] != 3 {
		t.Fatalf("cats = %d, want 3", freq["cats"])
	}
	if freq["chased"] != 1 || freq["chase"] != 1 {
		t.Fatalf("verb counts: %v", freq)
	}
	for _, stop := range []string{"the", "dont"} {
		if _, ok := freq[stop]; ok {
			t.Fatalf("stopword %q present in model: %v", stop, freq)
		}
	}
	if _, ok := freq[""]; ok {
		t.Fatalf("empty token present in model: %v", freq)
	}
}

func TestBuildFrequencyModelNumbersCount(t *testing.T) {
	t.Parallel()

	freq := BuildFrequencyModel("Invoice 2024 totals 2024 units.")
	if freq["2024"] != 2 {
		t.Fatalf("2024 = %d, want 2", freq["2024"])
	}
}

func TestBuildFrequencyModelEmptyInput(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "the and of is", "!!! ???"} {
		if freq := BuildFrequencyModel(in); len(freq) != 0 {
			t.Fatalf("BuildFrequencyModel(%q) = %v, want empty", in, freq)
		}
	}
}
