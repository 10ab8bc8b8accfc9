// Package atc renders wind, runway, and condition data as standard radio
// phraseology, digit by digit ("wind two six zero at one three").
package atc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"flight_assistant/internal/metar"
)

// Phrase types.
const (
	PhraseLandingClearance = "landing_clearance"
	PhraseApproach         = "approach"
	PhraseWindAdvisory     = "wind_advisory"
	PhraseRunwayAdvisory   = "runway_advisory"
)

// ErrUnknownPhraseType is returned for an unrecognized phrase type.
var ErrUnknownPhraseType = errors.New("unknown phrase type")

var digitWords = [...]string{
	"zero", "one", "two", "three", "four",
	"five", "six", "seven", "eight", "nine",
}

var suffixWords = map[string]string{
	"L": "left",
	"R": "right",
	"C": "center",
}

var categoryPhrases = map[string]string{
	metar.CategoryVFR:  "visual flight rules",
	metar.CategoryMVFR: "marginal visual flight rules",
	metar.CategoryIFR:  "instrument flight rules",
	metar.CategoryLIFR: "low instrument flight rules",
}

// Phrase is a generated transmission with its parts.
type Phrase struct {
	Main             string            `json:"phrase"`
	FullTransmission string            `json:"full_transmission"`
	Components       map[string]string `json:"components"`
}

// NumberToWords speaks each digit of a number individually.
func NumberToWords(num int) string {
	if num < 0 {
		num = -num
	}
	s := strconv.Itoa(num)
	words := make([]string, 0, len(s))
	for _, ch := range s {
		words = append(words, digitWords[ch-'0'])
	}
	return strings.Join(words, " ")
}

// WindToPhrase renders wind as "wind two six zero at one three", appending
// "gusts two zero" when a gust is present.
func WindToPhrase(windDir, windSpeed int, gust *int) string {
	phrase := fmt.Sprintf("wind %s at %s", NumberToWords(windDir), NumberToWords(windSpeed))
	if gust != nil {
		phrase += " gusts " + NumberToWords(*gust)
	}
	return phrase
}

// RunwayToPhrase renders a designator as "runway two six" or
// "runway one seven left".
func RunwayToPhrase(designator string) string {
	var digits, letters strings.Builder
	for _, ch := range designator {
		switch {
		case ch >= '0' && ch <= '9':
			digits.WriteRune(ch)
		default:
			letters.WriteRune(ch)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	num, _ := strconv.Atoi(digits.String())
	phrase := "runway " + NumberToWords(num)
	if letters.Len() > 0 {
		suffix := strings.ToUpper(letters.String())
		if word, ok := suffixWords[suffix]; ok {
			phrase += " " + word
		} else {
			phrase += " " + strings.ToLower(suffix)
		}
	}
	return phrase
}

// ConditionPhrase expands a flight category to its spoken form.
func ConditionPhrase(category string) string {
	if p, ok := categoryPhrases[category]; ok {
		return p
	}
	return strings.ToLower(category)
}

// Generate builds the requested phrase from a METAR record and runway.
// callsign defaults to the station identifier.
func Generate(rec *metar.Record, runwayDesignator, phraseType, callsign string) (*Phrase, error) {
	if rec == nil || !rec.HasWind() {
		return nil, fmt.Errorf("wind data unavailable for phrase generation")
	}
	if callsign == "" {
		callsign = rec.Station
		if callsign == "" {
			callsign = "TOWER"
		}
	}

	windPhr := WindToPhrase(*rec.WindDirection, *rec.WindSpeed, rec.WindGust)
	runwayPhr := RunwayToPhrase(runwayDesignator)
	condPhr := ConditionPhrase(rec.FlightCategory)

	var main string
	switch phraseType {
	case PhraseLandingClearance, "":
		main = fmt.Sprintf("%s, %s, cleared to land", windPhr, runwayPhr)
	case PhraseApproach:
		main = fmt.Sprintf("expect %s, conditions %s", runwayPhr, condPhr)
	case PhraseWindAdvisory:
		main = windPhr
	case PhraseRunwayAdvisory:
		main = runwayPhr
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPhraseType, phraseType)
	}

	return &Phrase{
		Main:             main,
		FullTransmission: callsign + " " + main,
		Components: map[string]string{
			"wind":       windPhr,
			"runway":     runwayPhr,
			"conditions": condPhr,
			"callsign":   callsign,
		},
	}, nil
}
