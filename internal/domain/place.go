package domain

// PlaceResult is a single point of interest returned by a nearby
// search. EnglishName and Description start absent and may be filled
// in later by a places_update enrichment event; everything downstream
// must render correctly while they are empty.
type PlaceResult struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	Location     string `json:"location"` // "lng,lat"
	Distance     int    `json:"distance"` // meters from the search origin
	Type         string `json:"type"`
	Rating       string `json:"rating,omitempty"`
	OpeningHours string `json:"openingHours,omitempty"`
	Cost         string `json:"cost,omitempty"`
	EnglishName  string `json:"englishName,omitempty"`
	Description  string `json:"description,omitempty"`
}

// PlaceEnrichment is one entry of a places_update event, keyed by the
// localized place name.
type PlaceEnrichment struct {
	Name        string `json:"name"`
	EnglishName string `json:"englishName"`
	Description string `json:"description"`
}
