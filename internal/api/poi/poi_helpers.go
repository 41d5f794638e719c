package poi

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

const earthRadiusKm = 6371

// HaversineKm is the great-circle distance between two points in kilometers.
func HaversineKm(a, b types.Coordinates) float64 {
	lat1Rad := a.Lat * math.Pi / 180
	lon1Rad := a.Lng * math.Pi / 180
	lat2Rad := b.Lat * math.Pi / 180
	lon2Rad := b.Lng * math.Pi / 180

	dlat := lat2Rad - lat1Rad
	dlon := lon2Rad - lon1Rad

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// Distance bands used for the badge shown next to a recommendation.
const (
	BandNear = "green"
	BandMid  = "amber"
	BandFar  = "red"
)

// ClassifyDistance maps a distance to its band: up to 2 km, up to 8 km, beyond.
func ClassifyDistance(km float64) string {
	switch {
	case km <= 2:
		return BandNear
	case km <= 8:
		return BandMid
	default:
		return BandFar
	}
}

type visitWindow struct {
	category    string
	best        string
	alternative string
}

// visitHours is matched in order; the first category contained in the input wins.
var visitHours = []visitWindow{
	{"Müze", "10:00-12:00", "15:00-17:00"},
	{"Tarihi Yer", "09:00-11:00", "16:00-18:00"},
	{"Park", "08:00-10:00", "17:00-19:00"},
	{"Plaj", "09:00-11:00", "16:00-19:00"},
	{"Alışveriş", "11:00-13:00", "18:00-20:00"},
	{"Kafe", "10:00-12:00", "16:00-18:00"},
	{"Restoran", "12:00-14:00", "19:00-21:00"},
	{"Doğa", "08:00-10:00", "16:00-18:00"},
}

var defaultVisitWindow = visitWindow{best: "10:00-12:00", alternative: "16:00-18:00"}

// SuggestVisitHours returns the best and alternative visit windows for a
// category. Matching is a Turkish-aware, case-insensitive substring test.
func SuggestVisitHours(category string) (best, alternative string) {
	lower := cases.Lower(language.Turkish)
	c := lower.String(category)
	for _, w := range visitHours {
		if strings.Contains(c, lower.String(w.category)) {
			return w.best, w.alternative
		}
	}
	return defaultVisitWindow.best, defaultVisitWindow.alternative
}

// DecorateRecommendations attaches visit windows and, when ref is known, a
// distance badge to each recommendation.
func DecorateRecommendations(recs []types.RecommendationResult, ref *types.Coordinates) []types.RecommendationCard {
	cards := make([]types.RecommendationCard, 0, len(recs))
	for _, rec := range recs {
		card := types.RecommendationCard{RecommendationResult: rec}
		card.BestTime, card.AlternativeTime = SuggestVisitHours(rec.Category)
		if ref != nil && rec.Location != nil {
			km := HaversineKm(*ref, *rec.Location)
			card.DistanceKm = &km
			card.DistanceBand = ClassifyDistance(km)
		}
		cards = append(cards, card)
	}
	return cards
}
