package domain

import "time"

// SupervisorTechnicianLink grants a supervisor assignment authority over a technician.
// Links are never hard-deleted; revoking flips Active to false.
type SupervisorTechnicianLink struct {
	ID           int64
	SupervisorID int64
	TechnicianID int64
	Active       bool
	AssignedAt   time.Time
}
