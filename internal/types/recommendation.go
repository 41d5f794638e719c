package types

import (
	"sort"
	"strings"
)

// Category values that mean "no category filter".
const (
	CategoryAllTR = "Tümü"
	CategoryAll   = "All"
)

// Coordinates is the single coordinate type shared by every component.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RecommendationResult is one AI-proposed place, enriched with coordinates and
// photos by the recommendation pipeline. Title is the natural key across tables.
type RecommendationResult struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Rating      float64      `json:"rating"`
	Category    string       `json:"category"`
	Location    *Coordinates `json:"location,omitempty"`
	ImageURLs   []string     `json:"image_urls,omitempty"`
}

// HasLocation reports whether both coordinates are known.
func (r RecommendationResult) HasLocation() bool {
	return r.Location != nil
}

// Filters is the filter set sent with a recommendation query. It arrives as
// data (JSON body, CLI flags, MCP arguments) so it is kept as a map.
type Filters map[string]any

// Category returns the category filter, or "" when unset or a sentinel.
func (f Filters) Category() string {
	c, _ := f["category"].(string)
	c = strings.TrimSpace(c)
	if c == "" || c == CategoryAllTR || strings.EqualFold(c, CategoryAll) {
		return ""
	}
	return c
}

// Rating returns the minimum rating filter, 0 when unset.
func (f Filters) Rating() float64 {
	switch v := f["rating"].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Features returns the requested feature list in the caller's order.
func (f Filters) Features() []string {
	switch v := f["features"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Canonical returns a copy of the filters whose feature list is sorted and
// de-duplicated, so permutations of the same set compare equal.
func (f Filters) Canonical() Filters {
	if f == nil {
		return nil
	}
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	if features := f.Features(); features != nil {
		seen := make(map[string]struct{}, len(features))
		uniq := make([]string, 0, len(features))
		for _, feat := range features {
			if _, ok := seen[feat]; ok {
				continue
			}
			seen[feat] = struct{}{}
			uniq = append(uniq, feat)
		}
		sort.Strings(uniq)
		out["features"] = uniq
	}
	return out
}

// RecommendationRequest is the body of a recommendation query.
type RecommendationRequest struct {
	Query     string       `json:"query"`
	Filters   Filters      `json:"filters,omitempty"`
	Reference *Coordinates `json:"reference,omitempty"`
}

// RecommendationCard is a recommendation decorated with data derived at render
// time: suggested visit windows and, when a reference point is known, a
// distance badge.
type RecommendationCard struct {
	RecommendationResult
	BestTime        string   `json:"best_time"`
	AlternativeTime string   `json:"alternative_time"`
	DistanceKm      *float64 `json:"distance_km,omitempty"`
	DistanceBand    string   `json:"distance_band,omitempty"`
}
