package generativeAI

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

const jsonFence = "```json"

// ExtractJSONPayload returns the interior of a ```json fenced block when one is
// present, otherwise the whole trimmed text.
func ExtractJSONPayload(text string) string {
	cleaned := strings.TrimSpace(text)
	start := strings.Index(cleaned, jsonFence)
	end := strings.LastIndex(cleaned, "```")
	if start != -1 && end != -1 && start < end {
		return strings.TrimSpace(cleaned[start+len(jsonFence) : end])
	}
	return cleaned
}

var errNoPayload = errors.New("empty model response")

// ParseRecommendations maps model output to recommendation records. Absent
// fields take their zero defaults; a location counts only with both coordinates.
func ParseRecommendations(text string) ([]types.RecommendationResult, error) {
	payload := ExtractJSONPayload(text)
	if payload == "" {
		return nil, errNoPayload
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		// Some answers wrap the list in an object.
		var wrapped struct {
			Recommendations []map[string]any `json:"recommendations"`
		}
		if err2 := json.Unmarshal([]byte(payload), &wrapped); err2 != nil || wrapped.Recommendations == nil {
			return nil, fmt.Errorf("failed to parse recommendations: %w", err)
		}
		items = wrapped.Recommendations
	}

	results := make([]types.RecommendationResult, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rec := types.RecommendationResult{
			Title:       stringField(item, "title"),
			Description: stringField(item, "description"),
			Rating:      numberOr(item["rating"], 0),
			Category:    stringField(item, "category"),
		}
		if loc, ok := item["location"].(map[string]any); ok {
			rec.Location = coordinates(loc["lat"], loc["lng"])
		}
		results = append(results, rec)
	}
	return results, nil
}

// ParsePlaceDetails maps a single-place answer. The name falls back to the
// requested one.
func ParsePlaceDetails(text, requested string) (*types.PlaceDetails, error) {
	payload := ExtractJSONPayload(text)
	if payload == "" {
		return nil, errNoPayload
	}
	var item map[string]any
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		return nil, fmt.Errorf("failed to parse place details: %w", err)
	}
	if item == nil {
		return nil, errNoPayload
	}

	name := stringField(item, "name")
	if name == "" {
		name = requested
	}
	description := stringField(item, "description")
	category := stringField(item, "category")
	rating := numberOr(item["rating"], 0)
	p := &types.PlaceDetails{
		Name:        name,
		Description: &description,
		Category:    &category,
		Rating:      &rating,
		ImageURLs:   []string{},
	}
	if c := coordinates(item["latitude"], item["longitude"]); c != nil {
		p.Latitude, p.Longitude = &c.Lat, &c.Lng
	}
	return p, nil
}

func stringField(item map[string]any, key string) string {
	switch v := item[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// number accepts JSON numbers and numeric strings.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func numberOr(v any, def float64) float64 {
	if n, ok := number(v); ok {
		return n
	}
	return def
}

func coordinates(lat, lng any) *types.Coordinates {
	la, okLat := number(lat)
	ln, okLng := number(lng)
	if !okLat || !okLng {
		return nil
	}
	return &types.Coordinates{Lat: la, Lng: ln}
}
