package filter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"go-hrskip-automation/internal/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	careersRegex = regexp.MustCompile(`(?i)(careers?|jobs?|vacanc(y|ies)|hiring|join[\s-]?(us|our[\s-]team)|work[\s-]with[\s-]us|openings|karriere|carrieres?|empleo|вакансии|вакансия|карьера|работа[\s-]у[\s-]нас)`)
	contactRegex = regexp.MustCompile(`(?i)(contacts?|kontakt|about|team|hr|resume|cv|контакты|о[\s-]компании|команда)`)
	noiseRegex   = regexp.MustCompile(`(?i)(privacy|cookie|terms|login|sign[\s-]?in|cart|basket|политика|войти)`)
)

// Normalize lower-cases s and strips diacritics ("Carrières" -> "carrieres").
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return strings.ToLower(result)
}

// CareersScore rates how likely a link leads to a careers or contacts page.
func CareersScore(link models.Link) int {
	text := Normalize(link.Text + " " + link.Href)
	score := 0

	if careersRegex.MatchString(text) {
		score += 5
	}
	if contactRegex.MatchString(text) {
		score += 2
	}
	if noiseRegex.MatchString(text) {
		score -= 3
	}

	if score < 0 {
		return 0
	}
	return score
}

// RankLinks orders links by CareersScore, keeping document order for ties.
// The input slice is not modified.
func RankLinks(links []models.Link) []models.Link {
	ranked := append([]models.Link(nil), links...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return CareersScore(ranked[i]) > CareersScore(ranked[j])
	})
	return ranked
}
