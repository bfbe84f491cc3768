package models

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleResearcher Role = "researcher"
	RolePublic     Role = "public"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleResearcher, RolePublic:
		return true
	}
	return false
}

type Capability string

const (
	CapManageRegions     Capability = "manage_regions"
	CapWriteObservations Capability = "write_observations"
	CapUploadData        Capability = "upload_data"
	CapRunPredictions    Capability = "run_predictions"
	CapGenerateReports   Capability = "generate_reports"
	CapViewAllUploads    Capability = "view_all_uploads"
	CapViewAllReports    Capability = "view_all_reports"
	CapManageUsers       Capability = "manage_users"
)

// Can reports whether the role grants the capability. Admins hold every capability.
func (r Role) Can(c Capability) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleResearcher:
		switch c {
		case CapWriteObservations, CapUploadData, CapRunPredictions, CapGenerateReports:
			return true
		}
	}
	return false
}

// Caller is the authenticated identity passed explicitly into operations that act on behalf of a user.
type Caller struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

func (c Caller) Can(capability Capability) bool {
	return c.Role.Can(capability)
}

func (c Caller) IsAnonymous() bool {
	return c.UserID == uuid.Nil
}
