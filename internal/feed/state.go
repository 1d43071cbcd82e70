package feed

import (
	"food4student-feed/internal/geo"
	"food4student-feed/internal/restaurant"
)

// Restaurant is a listing record annotated with distance and travel time
// relative to the viewer at fetch time.
type Restaurant struct {
	ID               string  `json:"id"`
	IsApproved       bool    `json:"is_approved"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Address          string  `json:"address"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	LogoURL          string  `json:"logo_url"`
	BannerURL        string  `json:"banner_url"`
	TotalRatings     int     `json:"total_ratings"`
	AverageRating    float64 `json:"average_rating"`
	IsLiked          bool    `json:"is_liked"`
	DistanceKm       float64 `json:"distance_km"`
	EstimatedMinutes int     `json:"estimated_minutes"`
}

// State is an immutable snapshot of a feed.
type State struct {
	Restaurants []Restaurant `json:"restaurants"`
	Page        int          `json:"page"`
	PageSize    int          `json:"page_size"`
	NoMoreData  bool         `json:"no_more_data"`
	Refreshing  bool         `json:"refreshing"`
	LoadingMore bool         `json:"loading_more"`
	Error       string       `json:"error"`
	Tab         Tab          `json:"tab"`
}

func annotate(records []restaurant.Record, viewer geo.Point) []Restaurant {
	out := make([]Restaurant, 0, len(records))
	for _, rec := range records {
		distance := viewer.DistanceTo(geo.Point{Lat: rec.Latitude, Lng: rec.Longitude})
		out = append(out, Restaurant{
			ID:               rec.ID,
			IsApproved:       rec.IsApproved,
			Name:             rec.Name,
			Description:      rec.Description,
			Address:          rec.Address,
			Lat:              rec.Latitude,
			Lng:              rec.Longitude,
			LogoURL:          rec.LogoURL,
			BannerURL:        rec.BannerURL,
			TotalRatings:     rec.TotalRatings,
			AverageRating:    rec.AverageRating,
			IsLiked:          rec.IsLiked,
			DistanceKm:       distance,
			EstimatedMinutes: geo.EstimatedMinutes(distance),
		})
	}
	return out
}
