package tts

import "strings"

// SplitSentences breaks reply text into sentences on terminal punctuation,
// keeping the punctuation with its sentence. Abbreviation handling is not
// attempted; the TTS backend tolerates slightly over-split input.
func SplitSentences(text string) []string {
	var (
		sentences []string
		current   strings.Builder
	)
	runes := []rune(strings.TrimSpace(text))
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			// Consume trailing closers before splitting.
			if i+1 < len(runes) && !isSentenceGap(runes[i+1]) {
				continue
			}
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSentenceGap(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
