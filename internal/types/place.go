package types

import (
	"time"

	"github.com/google/uuid"
)

// PlaceDetails is the canonical stored record of one named place. Nullable
// columns are pointers; ImageURLs is never nil once read from a store.
type PlaceDetails struct {
	Name        string    `json:"name"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Rating      *float64  `json:"rating"`
	ImageURLs   []string  `json:"image_urls"`
	CachedAt    time.Time `json:"cached_at,omitempty"`
}

// Coordinates returns the place location, or nil when either coordinate is unknown.
func (p PlaceDetails) Coordinates() *Coordinates {
	if p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	return &Coordinates{Lat: *p.Latitude, Lng: *p.Longitude}
}

// PlaceholderPlace is the record used when a favorite was never cached.
func PlaceholderPlace(name string) PlaceDetails {
	return PlaceDetails{Name: name, ImageURLs: []string{}}
}

// PlaceFromRecommendation converts an enriched recommendation into a store record.
func PlaceFromRecommendation(rec RecommendationResult, imageURLs []string) PlaceDetails {
	p := PlaceDetails{
		Name:        rec.Title,
		Description: &rec.Description,
		Category:    &rec.Category,
		Rating:      &rec.Rating,
		ImageURLs:   imageURLs,
	}
	if rec.Location != nil {
		lat, lng := rec.Location.Lat, rec.Location.Lng
		p.Latitude = &lat
		p.Longitude = &lng
	}
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}
	return p
}

// Place is a nearby-search result from the mapping provider.
type Place struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Rating      float64 `json:"rating"`
}

// RouteInfo is a driving route across an ordered list of places.
type RouteInfo struct {
	Distance string   `json:"distance"`
	Duration string   `json:"duration"`
	Steps    []string `json:"steps"`
}

// Itinerary is a named, ordered list of places owned by a session.
type Itinerary struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ItineraryPlace is one stop of an itinerary joined with the newest cached
// record of that place, if any.
type ItineraryPlace struct {
	ItineraryID uuid.UUID `json:"itinerary_id"`
	PlaceName   string    `json:"place_name"`
	OrderIndex  int       `json:"order_index"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Rating      *float64  `json:"rating"`
	ImageURLs   []string  `json:"image_urls"`
}

type CreateItineraryRequest struct {
	Name string `json:"name"`
}

type AddItineraryPlaceRequest struct {
	PlaceName string `json:"place_name"`
}

type FavoriteRequest struct {
	PlaceName string `json:"place_name"`
}

type EmailFavoritesRequest struct {
	To string `json:"to"`
}

type RouteRequest struct {
	Places []string `json:"places"`
}
