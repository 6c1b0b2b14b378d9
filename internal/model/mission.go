package model

import (
	"fmt"

	"github.com/deppfellow/station-api/internal/validation"
)

// Mission is a mission joined with the name of its crew member.
//
// This is the shape returned by GET /missions and embedded in the create
// response. CrewName comes from the crew table at read time, so it always
// reflects the current crew row.
type Mission struct {
	MissionID int64  `json:"mission_id"`
	Name      string `json:"name"`
	Purpose   string `json:"purpose"`
	CrewID    int64  `json:"crew_id"`
	CrewName  string `json:"crew_name"`
}

// MissionInput holds every field of a new mission.
type MissionInput struct {
	Name    string
	Purpose string
	CrewID  int64
}

// MissionPatch holds the fields of a partial update; nil means unchanged.
type MissionPatch struct {
	Name    *string
	Purpose *string
	CrewID  *int64
}

// ------------------------------------------------------------

// ListMissionsRequest is the (empty) payload of GET /missions. It exists so
// the list endpoint goes through the same typed handler pipeline as the
// others.
type ListMissionsRequest struct{}

func (r *ListMissionsRequest) Validate() error { return nil }

// CreateMissionRequest is the body of POST /missions.
//
// Rules:
//   - name: 1..255 characters
//   - purpose: 1..500 characters
//   - crew_id: must be present. Its value is not range-checked here: any id
//     without a crew row, including 0 and negatives, is answered with
//     CREW_NOT_FOUND by the repository.
type CreateMissionRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=255"`
	Purpose string `json:"purpose" validate:"required,min=1,max=500"`
	CrewID  *int64 `json:"crew_id" validate:"required"`
}

func (r *CreateMissionRequest) Validate() error {
	return validation.Struct(r)
}

// Input converts the validated request into a repository input. It must only
// be called after Validate succeeded, since CrewID is dereferenced.
func (r *CreateMissionRequest) Input() MissionInput {
	return MissionInput{Name: r.Name, Purpose: r.Purpose, CrewID: *r.CrewID}
}

// UpdateMissionRequest is PUT /missions/:id.
//
// ID is bound from the path only (json:"-" keeps a body field from
// overriding it). An id with no mission row, whatever its sign, is answered
// with MISSION_NOT_FOUND. Every body field is optional; a body with none of
// them is rejected by the repository with NO_FIELDS_TO_UPDATE.
type UpdateMissionRequest struct {
	ID      int64   `param:"id" json:"-"`
	Name    *string `json:"name" validate:"omitnil,min=1,max=255"`
	Purpose *string `json:"purpose" validate:"omitnil,min=1,max=500"`
	CrewID  *int64  `json:"crew_id"`
}

func (r *UpdateMissionRequest) Validate() error {
	return validation.Struct(r)
}

// Patch converts the request into a partial update.
func (r *UpdateMissionRequest) Patch() MissionPatch {
	return MissionPatch{Name: r.Name, Purpose: r.Purpose, CrewID: r.CrewID}
}

// DeleteMissionRequest is DELETE /missions/:id. As for updates, an unknown id
// is a 404 from the repository, not a validation error.
type DeleteMissionRequest struct {
	ID int64 `param:"id"`
}

func (r *DeleteMissionRequest) Validate() error {
	return validation.Struct(r)
}

// MissionCreateResponse is the created mission plus a confirmation message.
// The embedded view is flattened into the JSON object.
type MissionCreateResponse struct {
	Mission
	Message string `json:"message"`
}

// NewMissionCreateResponse wraps m for the 201 response.
func NewMissionCreateResponse(m Mission) MissionCreateResponse {
	return MissionCreateResponse{Mission: m, Message: "Mission created successfully"}
}

// MissionUpdated is the body of a successful update.
func MissionUpdated(id int64) MessageResponse {
	return MessageResponse{Message: fmt.Sprintf("Mission %d updated successfully", id)}
}

// MissionDeleted is the body of a successful delete.
func MissionDeleted(id int64) MessageResponse {
	return MessageResponse{Message: fmt.Sprintf("Mission %d deleted successfully", id)}
}
