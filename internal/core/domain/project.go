package domain

// Project describes the job a campaign sources bids for. The orchestrator
// receives it fully formed; requirement extraction happens upstream.
type Project struct {
	ID          string   `json:"id"`
	Trade       string   `json:"trade"`
	Specialties []string `json:"specialties,omitempty"`
	Category    string   `json:"category"` // coarse grouping, part of the discovery cache key
	Geo         GeoPoint `json:"geo"`
	RadiusKm    float64  `json:"radius_km"`
	Urgency     Urgency  `json:"urgency"`
}
