package entity

import "time"

// Vehicle is an institution-owned vehicle drawn from the availability pool.
// Availability is flipped by compare-and-set in the repository so a vehicle
// never serves two concurrently active missions.
type Vehicle struct {
	ID            int64     `json:"id"`
	InstitutionID int64     `json:"institution_id"`
	Plate         string    `json:"plate"`
	Model         string    `json:"model"`
	Brand         string    `json:"brand"`
	Available     bool      `json:"available"`
	MissionID     *int64    `json:"mission_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Driver is an institution driver, subject to the same one-active-mission
// rule as vehicles.
type Driver struct {
	ID            int64     `json:"id"`
	InstitutionID int64     `json:"institution_id"`
	FullName      string    `json:"full_name"`
	Phone         string    `json:"phone"`
	License       string    `json:"license"`
	Available     bool      `json:"available"`
	MissionID     *int64    `json:"mission_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
