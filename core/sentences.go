package orchestration

import "strings"

// minSentenceLength is the shortest fragment emitted standalone; anything
// shorter is merged into the following sentence so playback does not stutter
// on fragments like "Dr." or "No.".
const minSentenceLength = 20

// SplitSentences splits text into sentences on '.', '!' and '?'. A period
// immediately preceded by a digit is not a terminator, so decimal numbers
// like "16.8 meters" survive as one sentence. Fragments shorter than
// minSentenceLength are merged into the following sentence. Splitting is
// idempotent on already-split input.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var raw []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if !isTerminator(r) {
			continue
		}
		if r == '.' && i > 0 && isDigit(runes[i-1]) {
			continue
		}

		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			raw = append(raw, sentence)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		raw = append(raw, tail)
	}

	return mergeShortFragments(raw)
}

func mergeShortFragments(sentences []string) []string {
	var merged []string
	carry := ""
	for _, sentence := range sentences {
		if carry != "" {
			sentence = carry + " " + sentence
			carry = ""
		}
		if len(sentence) < minSentenceLength {
			carry = sentence
			continue
		}
		merged = append(merged, sentence)
	}
	if carry != "" {
		// Nothing left to merge into; a short trailing fragment is still a
		// sentence.
		merged = append(merged, carry)
	}
	return merged
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
