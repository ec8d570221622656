package nlp

import (
	"strings"
	"unicode"
)

// Language codes
const (
	LangEnglish  = "en"
	LangHebrew   = "he"
	LangArabic   = "ar"
	LangRussian  = "ru"
	LangChinese  = "zh"
	LangJapanese = "ja"
	LangKorean   = "ko"
)

// Language represents a detected language
type Language struct {
	Code       string
	Name       string
	Confidence float64
}

type script struct {
	code  string
	name  string
	table *unicode.RangeTable
}

var scripts = []script{
	{LangHebrew, "Hebrew", unicode.Hebrew},
	{LangArabic, "Arabic", unicode.Arabic},
	{LangRussian, "Russian", unicode.Cyrillic},
	{LangKorean, "Korean", unicode.Hangul},
	{LangChinese, "Chinese", unicode.Han},
}

// DetectLanguage guesses the language of text from the share of runes in each
// non-Latin script. Latin-script text is reported as English.
func DetectLanguage(text string) Language {
	text = strings.TrimSpace(text)
	if text == "" {
		return Language{Code: LangEnglish, Name: "English", Confidence: 0.0}
	}

	counts := make([]int, len(scripts))
	kana, total := 0, 0
	for _, r := range text {
		total++
		if unicode.In(r, unicode.Hiragana, unicode.Katakana) {
			kana++
			continue
		}
		for i, s := range scripts {
			if unicode.Is(s.table, r) {
				counts[i]++
				break
			}
		}
	}

	best := Language{Code: LangEnglish, Name: "English"}
	bestRatio := 0.0
	for i, s := range scripts {
		ratio := float64(counts[i]) / float64(total)
		// mixed text still counts once more than 1% of runes are in the script
		if ratio > 0.01 && ratio > bestRatio {
			best = Language{Code: s.code, Name: s.name, Confidence: ratio}
			bestRatio = ratio
		}
	}

	// kanji share the Han block, kana decides between Chinese and Japanese
	kanaRatio := float64(kana) / float64(total)
	if kanaRatio > 0.05 {
		hanRatio := float64(counts[len(scripts)-1]) / float64(total)
		return Language{Code: LangJapanese, Name: "Japanese", Confidence: kanaRatio + hanRatio}
	}
	if best.Code == LangEnglish {
		best.Confidence = 1 - sumRatios(counts, total) - kanaRatio
	}
	return best
}

func sumRatios(counts []int, total int) float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	return float64(n) / float64(total)
}
