package entity

import "time"

// Mission represents a mission order (ordre de mission) through its whole
// lifecycle, from creation to archival. Workflow mutations go exclusively
// through the workflow engine and the document lifecycle service.
type Mission struct {
	ID            int64  `json:"id"`
	Reference     string `json:"reference"`
	InstitutionID int64  `json:"institution_id"`
	CreatedBy     int64  `json:"created_by"`
	Objet         string `json:"objet"`

	DepartureDate time.Time `json:"departure_date"`
	ReturnDate    time.Time `json:"return_date"`

	TransportMode string `json:"transport_mode"`
	TransportType string `json:"transport_type,omitempty"`

	Status      string `json:"status"`
	CurrentStep int    `json:"current_step"`

	// Per-stage validation audit. A validator id with a timestamp records an
	// approval; a non-empty reason records a rejection of that stage.
	TechnicalValidatorID *int64     `json:"technical_validator_id,omitempty"`
	TechnicalValidatedAt *time.Time `json:"technical_validated_at,omitempty"`
	TechnicalReason      string     `json:"technical_rejection_reason,omitempty"`

	LogisticsValidatorID *int64     `json:"logistics_validator_id,omitempty"`
	LogisticsValidatedAt *time.Time `json:"logistics_validated_at,omitempty"`

	FinanceValidatorID *int64     `json:"finance_validator_id,omitempty"`
	FinanceValidatedAt *time.Time `json:"finance_validated_at,omitempty"`
	FinanceReason      string     `json:"finance_rejection_reason,omitempty"`

	FinalValidatorID *int64     `json:"final_validator_id,omitempty"`
	FinalValidatedAt *time.Time `json:"final_validated_at,omitempty"`
	FinalReason      string     `json:"final_rejection_reason,omitempty"`

	// Logistics snapshot, copied from the vehicle/driver records at assignment
	// time so later fleet changes never alter historical mission orders.
	VehicleID    *int64 `json:"vehicle_id,omitempty"`
	VehiclePlate string `json:"vehicle_plate,omitempty"`
	VehicleModel string `json:"vehicle_model,omitempty"`
	VehicleBrand string `json:"vehicle_brand,omitempty"`

	DriverID      *int64 `json:"driver_id,omitempty"`
	DriverName    string `json:"driver_name,omitempty"`
	DriverPhone   string `json:"driver_phone,omitempty"`
	DriverLicense string `json:"driver_license,omitempty"`

	TicketRef string `json:"ticket_ref,omitempty"`

	// Post-travel documents
	ReportURL        string     `json:"report_url,omitempty"`
	StampedOrdersURL string     `json:"stamped_orders_url,omitempty"`
	DocsUploadedBy   *int64     `json:"docs_uploaded_by,omitempty"`
	DocsUploadedAt   *time.Time `json:"docs_uploaded_at,omitempty"`
	DocsVerifiedBy   *int64     `json:"docs_verified_by,omitempty"`
	DocsVerifiedAt   *time.Time `json:"docs_verified_at,omitempty"`

	// Costing is computed by an external collaborator and only stored here
	TotalCost *float64 `json:"total_cost,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasLogistics reports whether a logistics payload has been recorded
func (m *Mission) HasLogistics() bool {
	return m.VehicleID != nil || m.TicketRef != ""
}

// RequiresVehicle reports whether the transport choice needs an
// institution vehicle and driver pair
func (m *Mission) RequiresVehicle() bool {
	return m.TransportMode == TransportModeCar && m.TransportType == TransportTypeANESP
}

// RequiresTicket reports whether the transport choice needs a ticket reference
func (m *Mission) RequiresTicket() bool {
	return m.TransportMode == TransportModePlane
}

// DocumentsComplete reports whether both closure documents are present
func (m *Mission) DocumentsComplete() bool {
	return m.ReportURL != "" && m.StampedOrdersURL != ""
}
