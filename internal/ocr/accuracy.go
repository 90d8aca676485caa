package ocr

import (
	"math"
	"strings"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"

	"go-text-extractor/pkg/models"
)

// ScoreAccuracy compares extracted text with the text the caller expected.
// Both sides are whitespace-normalized first, so engine line breaks do not
// count as errors.
func ScoreAccuracy(expected, extracted string) models.AccuracyReport {
	ref := normalize(expected)
	hyp := normalize(extracted)

	cer := characterErrorRate(ref, hyp)
	return models.AccuracyReport{
		ExpectedText: expected,
		CER:          round(cer),
		WER:          round(wordErrorRate(ref, hyp)),
		MatchScore:   round(math.Max(0, 1-cer)),
	}
}

func characterErrorRate(ref, hyp string) float64 {
	refLen := len([]rune(ref))
	if refLen == 0 {
		if hyp == "" {
			return 0
		}
		return 1
	}
	return float64(levenshtein.Distance(ref, hyp)) / float64(refLen)
}

func wordErrorRate(ref, hyp string) float64 {
	refWords := strings.Fields(ref)
	hypWords := strings.Fields(hyp)
	if len(refWords) == 0 {
		if len(hypWords) == 0 {
			return 0
		}
		return 1
	}
	rate, _ := wer.WER(refWords, hypWords)
	return rate
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
