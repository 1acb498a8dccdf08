// Package sentiment scores free text with a valence lexicon in the style of
// VADER: per-word valences adjusted for boosters, negation, contrast and
// emphasis, summed and normalised into a compound score in [-1, 1].
package sentiment

import (
	"math"
	"strings"
	"unicode"
)

// Label 情感标签。
type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

const (
	boostIncr = 0.293
	boostDecr = -0.293
	capsBoost = 0.733
	negScalar = -0.74
	// alpha normalises the summed valence into [-1, 1].
	alpha = 15.0
	// LabelThreshold is the compound magnitude needed for a polar label.
	LabelThreshold = 0.05
)

// Scores are proportions of positive, neutral and negative weight plus the
// normalised compound score.
type Scores struct {
	Positive float64
	Neutral  float64
	Negative float64
	Compound float64
}

// LabelFor maps a compound score to a label.
func LabelFor(compound float64) Label {
	switch {
	case compound >= LabelThreshold:
		return Positive
	case compound <= -LabelThreshold:
		return Negative
	default:
		return Neutral
	}
}

// Analyze 计算文本的情感分数。
func Analyze(text string) Scores {
	text = strings.TrimSpace(text)
	if text == "" {
		return Scores{Neutral: 1}
	}

	words := tokenize(text)
	mixedCase := hasMixedCase(words)

	valences := make([]float64, 0, len(words)+1)
	for i, w := range words {
		lower := strings.ToLower(w)
		if _, isBooster := boosters[lower]; isBooster {
			valences = append(valences, 0)
			continue
		}

		v, ok := lexicon[lower]
		if !ok {
			valences = append(valences, 0)
			continue
		}
		if mixedCase && isUpper(w) {
			v += sign(v) * capsBoost
		}

		// 向前最多看三个词：程度副词衰减累加，否定词翻转。
		for back := 1; back <= 3 && i-back >= 0; back++ {
			prev := strings.ToLower(words[i-back])
			if b, ok := boosters[prev]; ok {
				scale := b
				if v < 0 {
					scale = -b
				}
				if mixedCase && isUpper(words[i-back]) {
					scale += sign(scale) * capsBoost
				}
				switch back {
				case 2:
					scale *= 0.95
				case 3:
					scale *= 0.9
				}
				v += scale
			}
			if isNegation(prev) {
				v *= negScalar
				break
			}
		}
		valences = append(valences, v)
	}

	applyContrast(words, valences)
	valences = append(valences, cjkValences(text)...)

	return scoreValences(valences, strings.Count(text, "!"), strings.Count(text, "?"))
}

// applyContrast weights words before "but" down and words after it up.
func applyContrast(words []string, valences []float64) {
	for i, w := range words {
		if strings.ToLower(w) != "but" {
			continue
		}
		for j := range valences[:len(words)] {
			switch {
			case j < i:
				valences[j] *= 0.5
			case j > i:
				valences[j] *= 1.5
			}
		}
		return
	}
}

func cjkValences(text string) []float64 {
	var out []float64
	for phrase, v := range cjkLexicon {
		idx := strings.Index(text, phrase)
		if idx < 0 {
			continue
		}
		count := strings.Count(text, phrase)
		prefix := text[:idx]
		for _, neg := range cjkNegations {
			if strings.HasSuffix(prefix, neg) {
				v *= negScalar
				break
			}
		}
		for i := 0; i < count; i++ {
			out = append(out, v)
		}
	}
	return out
}

func scoreValences(valences []float64, exclamations, questions int) Scores {
	sum := 0.0
	for _, v := range valences {
		sum += v
	}

	emphasis := math.Min(float64(exclamations), 4) * 0.292
	if questions > 1 {
		emphasis += math.Min(float64(questions), 3) * 0.18
		if questions > 3 {
			emphasis = 0.96
		}
	}
	if sum > 0 {
		sum += emphasis
	} else if sum < 0 {
		sum -= emphasis
	}

	compound := sum / math.Sqrt(sum*sum+alpha)
	compound = math.Max(-1, math.Min(1, compound))

	var pos, neg, neu float64
	for _, v := range valences {
		switch {
		case v > 0:
			pos += v + 1
		case v < 0:
			neg += v - 1
		default:
			neu++
		}
	}
	if pos > math.Abs(neg) {
		pos += emphasis
	} else if pos < math.Abs(neg) {
		neg -= emphasis
	}

	total := pos + math.Abs(neg) + neu
	if total == 0 {
		return Scores{Neutral: 1}
	}
	return Scores{
		Positive: round3(math.Abs(pos / total)),
		Neutral:  round3(math.Abs(neu / total)),
		Negative: round3(math.Abs(neg / total)),
		Compound: round4(compound),
	}
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'' && r != '-') || unicode.Is(unicode.Han, r)
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'-")
		f = strings.ReplaceAll(f, "'", "")
		if len(f) > 1 || (len(f) == 1 && unicode.IsLetter(rune(f[0]))) {
			out = append(out, f)
		}
	}
	return out
}

func hasMixedCase(words []string) bool {
	upper := 0
	for _, w := range words {
		if isUpper(w) {
			upper++
		}
	}
	return upper > 0 && upper < len(words)
}

func isUpper(w string) bool {
	hasLetter := false
	for _, r := range w {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter && len(w) > 1
}

func isNegation(w string) bool {
	_, ok := negations[w]
	return ok
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
