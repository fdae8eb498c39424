package orchestration

import (
	"strings"
	"testing"
)

func TestSplitSentencesBasic(t *testing.T) {
	got := SplitSentences("The first sentence is here. The second sentence follows! Is there a third one?")

	want := []string{
		"The first sentence is here.",
		"The second sentence follows!",
		"Is there a third one?",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sentence %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSplitSentencesKeepsDecimalNumbersTogether(t *testing.T) {
	got := SplitSentences("The bridge is 16.8 meters long and quite old.")

	if len(got) != 1 {
		t.Fatalf("expected decimal number to stay in one sentence, got %q", got)
	}
	if !strings.Contains(got[0], "16.8 meters") {
		t.Fatalf("expected sentence to contain the decimal, got %q", got[0])
	}
}

func TestSplitSentencesIsIdempotent(t *testing.T) {
	first := SplitSentences("Sentences should stay stable. Running the splitter twice changes nothing.")

	second := SplitSentences(strings.Join(first, " "))
	if len(second) != len(first) {
		t.Fatalf("expected idempotent split, got %q then %q", first, second)
	}
	for i := range first {
		if second[i] != first[i] {
			t.Fatalf("sentence %d changed on re-split: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestSplitSentencesMergesShortFragments(t *testing.T) {
	got := SplitSentences("No. That is not the answer I was hoping for.")

	if len(got) != 1 {
		t.Fatalf("expected short fragment to merge forward, got %q", got)
	}
	if !strings.HasPrefix(got[0], "No. That") {
		t.Fatalf("expected merged sentence to start with the fragment, got %q", got[0])
	}
}

func TestSplitSentencesShortTrailingFragmentSurvives(t *testing.T) {
	got := SplitSentences("Yes.")

	if len(got) != 1 || got[0] != "Yes." {
		t.Fatalf("expected lone short fragment to survive, got %q", got)
	}
}

func TestSplitSentencesEmptyInput(t *testing.T) {
	if got := SplitSentences("   "); got != nil {
		t.Fatalf("expected nil for blank input, got %q", got)
	}
}
