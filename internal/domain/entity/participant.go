package entity

import "time"

// Participant is a member of a mission. The membership list is fixed at
// mission creation. A participant either references an internal employee or
// carries an external person's identity.
type Participant struct {
	ID        int64 `json:"id"`
	MissionID int64 `json:"mission_id"`

	EmployeeID *int64 `json:"employee_id,omitempty"`

	// External participant identity (used when EmployeeID is nil)
	FullName   string `json:"full_name,omitempty"`
	NNI        string `json:"nni,omitempty"`
	Profession string `json:"profession,omitempty"`
	Ministry   string `json:"ministry,omitempty"`
	Phone      string `json:"phone,omitempty"`

	RoleInMission string `json:"role_in_mission"`

	CreatedAt time.Time `json:"created_at"`
}

// IsChief reports whether the participant is the mission chief
func (p *Participant) IsChief() bool {
	return p.RoleInMission == RoleChefDeMission
}

// IsExternal reports whether the participant is not an internal employee
func (p *Participant) IsExternal() bool {
	return p.EmployeeID == nil
}
