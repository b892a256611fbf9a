package model

// PlaceRecord is one place's population figure parsed from a feed
type PlaceRecord struct {
	LocalID         string `json:"local_id"`     // Feed-local code (LT) or normalized name (LV)
	DisplayName     string `json:"display_name"` // Name used for matching in the knowledge base
	PopulationCount int    `json:"population_count"`
	PeriodYear      int    `json:"period_year"`
}

// ReferenceEntry is a row of the Latvian ATVK classification table
type ReferenceEntry struct {
	ClassificationID string `json:"classification_id"`
	CanonicalName    string `json:"canonical_name"`
}
