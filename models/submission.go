package models

import "time"

// Geolocation holds best-effort IP enrichment for a submission. Any field may
// be empty when the lookup provider has no data.
type Geolocation struct {
	IP         string  `json:"ip,omitempty"`
	City       string  `json:"city,omitempty"`
	Region     string  `json:"region,omitempty"`
	Country    string  `json:"country_name,omitempty"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
	Org        string  `json:"org,omitempty"`
	PostalCode string  `json:"postal,omitempty"`
	Timezone   string  `json:"timezone,omitempty"`
}

// Submission is one contact-form entry.
type Submission struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Phone       *string      `json:"phone,omitempty"`
	Subject     *string      `json:"subject,omitempty"`
	Message     string       `json:"message"`
	IPAddress   *string      `json:"ip_address,omitempty"`
	Geolocation *Geolocation `json:"geolocation,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
