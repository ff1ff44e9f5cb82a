package chatclient

// Event kinds on the chat stream.
const (
	KindText         = "text"
	KindTextClear    = "text_clear"
	KindToolStart    = "tool_start"
	KindToolData     = "tool_data"
	KindPlacesUpdate = "places_update"
	KindError        = "error"
	KindDone         = "done"
)

// Event is one parsed record of the stream. Data is plain text for
// text events and a JSON document for every other kind.
type Event struct {
	Kind string
	Data string
}

// Navigation mirrors the server's navigation payload.
type Navigation struct {
	Destination struct {
		Name      string `json:"name"`
		InputName string `json:"inputName"`
		Address   string `json:"address"`
		Location  string `json:"location"`
	} `json:"destination"`
	Transit *Transit `json:"transit,omitempty"`
	Walking *Walking `json:"walking,omitempty"`
}

// Transit is a public-transport itinerary.
type Transit struct {
	Duration        int              `json:"duration"`
	Cost            string           `json:"cost"`
	WalkingDistance int              `json:"walkingDistance"`
	TransferCount   int              `json:"transferCount"`
	Segments        []TransitSegment `json:"segments"`
}

// TransitSegment is one leg of a transit itinerary.
type TransitSegment struct {
	Mode     string `json:"mode"`
	Name     string `json:"name,omitempty"`
	Stops    int    `json:"stops,omitempty"`
	Distance int    `json:"distance,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
}

// Walking is a direct walking route.
type Walking struct {
	Duration int `json:"duration"`
	Distance int `json:"distance"`
}

// Place is one nearby-search result card.
type Place struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	Location     string `json:"location"`
	Distance     int    `json:"distance"`
	Type         string `json:"type"`
	Rating       string `json:"rating,omitempty"`
	OpeningHours string `json:"openingHours,omitempty"`
	Cost         string `json:"cost,omitempty"`
	EnglishName  string `json:"englishName,omitempty"`
	Description  string `json:"description,omitempty"`
}

// toolDataPayload is the wire shape of a tool_data event.
type toolDataPayload struct {
	NavigationData *Navigation `json:"navigationData,omitempty"`
	PlacesData     []Place     `json:"placesData,omitempty"`
}

// toolStartPayload is the wire shape of a tool_start event.
type toolStartPayload struct {
	Tool  string `json:"tool"`
	Label string `json:"label"`
}

// placeEnrichment is one entry of a places_update event, keyed by the
// localized place name.
type placeEnrichment struct {
	Name        string `json:"name"`
	EnglishName string `json:"englishName"`
	Description string `json:"description"`
}

// errorPayload is the wire shape of an error event.
type errorPayload struct {
	Message string `json:"message"`
}
