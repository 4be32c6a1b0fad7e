package sentiment

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

var (
	analyzer    = govader.NewSentimentIntensityAnalyzer()
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]+>`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1") // Keep only the text
	input = urlPattern.ReplaceAllString(input, "")
	return input
}

// ConvertMarkdownToText renders markdown and keeps only its visible text.
func ConvertMarkdownToText(input string) string {
	output := blackfriday.Run([]byte(RemoveLinks(input)), blackfriday.WithNoExtensions())
	plain := tagPattern.ReplaceAllString(string(output), " ")
	return strings.Join(strings.Fields(plain), " ")
}

func AnalyzeWithVADER(text string) (float64, string) {
	plainText := ConvertMarkdownToText(text)

	sentiment := analyzer.PolarityScores(plainText)
	score := sentiment.Compound

	return score, Label(score)
}

// Label buckets a compound polarity score.
func Label(compound float64) string {
	if compound >= 0.20 {
		return "positive"
	} else if compound <= -0.20 {
		return "negative"
	}
	return "neutral"
}

// Stars maps a compound polarity in [-1, 1] onto the 1 to 5 star scale used by comment scores.
func Stars(compound float64) int64 {
	if math.IsNaN(compound) {
		return 3
	}
	c := math.Max(-1, math.Min(1, compound))
	return 1 + int64(math.Round((c+1)*2))
}

// VADER scores text locally with the VADER lexicon.
type VADER struct{}

func (VADER) Name() string { return "vader" }

func (VADER) Score(_ context.Context, texts []string) ([]Score, error) {
	out := make([]Score, len(texts))
	for i, t := range texts {
		compound, label := AnalyzeWithVADER(t)
		out[i] = Score{Label: label, Stars: Stars(compound)}
	}
	return out, nil
}
