package patterns

import (
	"math"

	"tonelearn/internal/models"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round rounds every numeric leaf of p to two decimal places
func Round(p models.WritingPatterns) models.WritingPatterns {
	s := &p.SentenceStats
	s.AvgLength = round2(s.AvgLength)
	s.MinLength = round2(s.MinLength)
	s.MaxLength = round2(s.MaxLength)
	s.StdDeviation = round2(s.StdDeviation)
	s.Distribution.Short = round2(s.Distribution.Short)
	s.Distribution.Medium = round2(s.Distribution.Medium)
	s.Distribution.Long = round2(s.Distribution.Long)

	for i := range p.ParagraphPatterns {
		p.ParagraphPatterns[i].Percentage = round2(p.ParagraphPatterns[i].Percentage)
	}
	for i := range p.OpeningPatterns {
		p.OpeningPatterns[i].Frequency = round2(p.OpeningPatterns[i].Frequency)
	}
	for i := range p.Valedictions {
		p.Valedictions[i].Percentage = round2(p.Valedictions[i].Percentage)
	}
	for i := range p.TypedNames {
		p.TypedNames[i].Percentage = round2(p.TypedNames[i].Percentage)
	}
	for i := range p.NegativePatterns {
		p.NegativePatterns[i].Confidence = round2(p.NegativePatterns[i].Confidence)
	}
	for i := range p.UniqueExpressions {
		p.UniqueExpressions[i].Frequency = round2(p.UniqueExpressions[i].Frequency)
	}

	p.ResponsePatterns.Immediate = round2(p.ResponsePatterns.Immediate)
	p.ResponsePatterns.Contemplative = round2(p.ResponsePatterns.Contemplative)
	return p
}
