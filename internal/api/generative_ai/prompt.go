package generativeAI

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

// SuggestionCount is the number of places requested per query.
const SuggestionCount = 3

const DefaultLanguage = "Turkish"

var exampleRecommendation = []map[string]any{{
	"title":       "Place name",
	"description": "Short description",
	"rating":      4.5,
	"category":    "Category",
	"location":    map[string]float64{"lat": 12.34, "lng": 56.78},
}}

var examplePlaceDetails = map[string]any{
	"name":        "Place name",
	"latitude":    12.34,
	"longitude":   56.78,
	"description": "Detailed description",
	"category":    "Category",
	"rating":      4.5,
}

// BuildRecommendationPrompt is the only place the recommendation prompt is
// written. Filter constraints are added only for filters that are set.
func BuildRecommendationPrompt(query string, filters types.Filters, language string) string {
	if language == "" {
		language = DefaultLanguage
	}
	var b strings.Builder
	fmt.Fprintf(&b, "A user is looking for a travel suggestion: '%s'.", query)

	if c := filters.Category(); c != "" {
		fmt.Fprintf(&b, " Suggestions must be in the '%s' category.", c)
	}
	if r := filters.Rating(); r > 0 {
		fmt.Fprintf(&b, " Suggestions must have a minimum rating of %s.", strconv.FormatFloat(r, 'f', -1, 64))
	}
	if f := filters.Features(); len(f) > 0 {
		fmt.Fprintf(&b, " Suggestions must offer these features: %s.", strings.Join(f, ", "))
	}

	fmt.Fprintf(&b, " Please suggest exactly %d travel places for this query.", SuggestionCount)
	b.WriteString(" For each suggestion provide a title, a short description, a rating between 1 and 5, a category" +
		" and a location with the estimated latitude (lat) and longitude (lng).")
	fmt.Fprintf(&b, " Write the title, description and category in %s.", language)
	b.WriteString(" Answer with a JSON list only.")
	fmt.Fprintf(&b, " Example JSON format: %s", mustJSON(exampleRecommendation))
	return b.String()
}

func BuildPlaceDetailsPrompt(name, language string) string {
	if language == "" {
		language = DefaultLanguage
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Give me detailed information about '%s'.", name)
	b.WriteString(" Answer in JSON with name, latitude, longitude, description, category and rating.")
	b.WriteString(" If the location is unknown, leave latitude and longitude as null.")
	fmt.Fprintf(&b, " Write the description and category in %s.", language)
	fmt.Fprintf(&b, " Example JSON format: %s", mustJSON(examplePlaceDetails))
	return b.String()
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
