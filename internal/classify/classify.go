// Package classify tags articles with league, country, team and topic
// keywords and derives a relevance score and summary from final content.
package classify

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// KeywordLabel maps a lowercase keyword to its canonical label. Matching is
// first-hit in declaration order, so the order of these entries is part of
// the contract.
type KeywordLabel struct {
	Keyword string `yaml:"keyword"`
	Label   string `yaml:"label"`
}

// Vocabulary holds the keyword tables used for classification and scoring.
type Vocabulary struct {
	Leagues   []KeywordLabel `yaml:"leagues"`
	Countries []string       `yaml:"countries"`
	Teams     []string       `yaml:"teams"`
	Tags      []string       `yaml:"tags"`
	Scoring   []string       `yaml:"scoring"`
}

var titleCaser = cases.Title(language.Spanish)

// Default returns the built-in Spanish football vocabulary.
func Default() Vocabulary {
	return Vocabulary{
		Leagues: []KeywordLabel{
			{"premier", "Premier League"},
			{"laliga", "La Liga"},
			{"liga española", "La Liga"},
			{"bundesliga", "Bundesliga"},
			{"serie a", "Serie A"},
			{"champions", "Champions League"},
			{"libertadores", "Copa Libertadores"},
			{"sudamericana", "Copa Sudamericana"},
			{"mls", "MLS"},
			{"colombia", "Liga BetPlay"},
			{"argentina", "Liga Profesional Argentina"},
			{"brasil", "Brasileirão"},
			{"liga mx", "Liga MX"},
			{"ecuador", "LigaPro"},
			{"perú", "Liga 1"},
			{"uruguay", "Primera División Uruguay"},
			{"paraguay", "Primera División Paraguay"},
			{"chile", "Primera División Chile"},
		},
		Countries: []string{
			"colombia", "españa", "argentina", "brasil", "méxico", "alemania",
			"inglaterra", "italia", "francia", "ecuador", "perú", "uruguay",
			"chile", "paraguay", "venezuela", "estados unidos",
		},
		Teams: []string{
			"barcelona", "real madrid", "manchester", "liverpool", "juventus",
			"bayern", "inter", "milan", "river", "boca", "nacional", "junior",
			"américa", "santa fe", "medellín", "atlético nacional",
			"flamengo", "palmeiras", "pumas", "chivas", "cruz azul",
		},
		Tags:    []string{"fútbol", "liga", "partido", "equipo", "jugador", "goles", "campeón"},
		Scoring: []string{"fútbol", "liga", "partido", "equipo", "jugador", "goles"},
	}
}

// League returns the label of the first league keyword found in text,
// scanning keywords in declaration order. Defaults to "General".
func (v Vocabulary) League(text string) string {
	lower := strings.ToLower(text)
	for _, kl := range v.Leagues {
		if strings.Contains(lower, kl.Keyword) {
			return kl.Label
		}
	}
	return "General"
}

// Country returns the first matching country, title-cased, or "".
func (v Vocabulary) Country(text string) string {
	lower := strings.ToLower(text)
	for _, c := range v.Countries {
		if strings.Contains(lower, c) {
			return titleCaser.String(c)
		}
	}
	return ""
}

// Team returns the first matching team, title-cased, or "".
func (v Vocabulary) Team(text string) string {
	lower := strings.ToLower(text)
	for _, t := range v.Teams {
		if strings.Contains(lower, t) {
			return titleCaser.String(t)
		}
	}
	return ""
}

// ExtractTags returns the subset of the tag vocabulary present in content,
// in vocabulary order.
func (v Vocabulary) ExtractTags(content string) []string {
	lower := strings.ToLower(content)
	var tags []string
	for _, k := range v.Tags {
		if strings.Contains(lower, k) {
			tags = append(tags, k)
		}
	}
	return tags
}

// Score rates content: 50 base points when it is longer than 300
// characters, plus 10 per distinct scoring keyword present, capped at 100.
func (v Vocabulary) Score(content string) int {
	score := 0
	if utf8.RuneCountInString(content) > 300 {
		score += 50
	}
	lower := strings.ToLower(content)
	for _, k := range v.Scoring {
		if strings.Contains(lower, k) {
			score += 10
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}

// Summary returns the first 150 characters of content followed by an
// ellipsis. Content of 100 characters or fewer yields no summary.
func Summary(content string) string {
	if utf8.RuneCountInString(content) <= 100 {
		return ""
	}
	r := []rune(content)
	if len(r) > 150 {
		r = r[:150]
	}
	return string(r) + "..."
}
