package restaurant

// Record is a restaurant as returned by the upstream listing endpoint.
type Record struct {
	ID            string  `json:"id"`
	IsApproved    bool    `json:"isApproved"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Address       string  `json:"address"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	LogoURL       string  `json:"logoUrl"`
	BannerURL     string  `json:"bannerUrl"`
	TotalRatings  int     `json:"totalRatings"`
	AverageRating float64 `json:"averageRating"`
	IsLiked       bool    `json:"isLiked"`
}
