package model

import (
	"fmt"

	"github.com/deppfellow/station-api/internal/validation"
)

// Experiment is an experiment joined with the name of its crew member.
type Experiment struct {
	ExperimentID int64  `json:"experiment_id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	CrewID       int64  `json:"crew_id"`
	CrewName     string `json:"crew_name"`
}

// ExperimentInput holds every field of a new experiment.
type ExperimentInput struct {
	Title  string
	Status string
	CrewID int64
}

// ExperimentPatch holds the fields of a partial update; nil means unchanged.
type ExperimentPatch struct {
	Title  *string
	Status *string
	CrewID *int64
}

// ------------------------------------------------------------

// ListExperimentsRequest is the (empty) payload of GET /experiments.
type ListExperimentsRequest struct{}

func (r *ListExperimentsRequest) Validate() error { return nil }

// CreateExperimentRequest is the body of POST /experiments.
//
// Rules:
//   - title: 1..255 characters
//   - status: 1..100 characters, free text ("Planned", "Running", ...)
//   - crew_id: must be present; an id without a crew row is CREW_NOT_FOUND
type CreateExperimentRequest struct {
	Title  string `json:"title" validate:"required,min=1,max=255"`
	Status string `json:"status" validate:"required,min=1,max=100"`
	CrewID *int64 `json:"crew_id" validate:"required"`
}

func (r *CreateExperimentRequest) Validate() error {
	return validation.Struct(r)
}

// Input converts the validated request into a repository input. It must only
// be called after Validate succeeded.
func (r *CreateExperimentRequest) Input() ExperimentInput {
	return ExperimentInput{Title: r.Title, Status: r.Status, CrewID: *r.CrewID}
}

// UpdateExperimentRequest is PUT /experiments/:id. The id comes from the path
// only; an unknown id is EXPERIMENT_NOT_FOUND.
type UpdateExperimentRequest struct {
	ID     int64   `param:"id" json:"-"`
	Title  *string `json:"title" validate:"omitnil,min=1,max=255"`
	Status *string `json:"status" validate:"omitnil,min=1,max=100"`
	CrewID *int64  `json:"crew_id"`
}

func (r *UpdateExperimentRequest) Validate() error {
	return validation.Struct(r)
}

// Patch converts the request into a partial update.
func (r *UpdateExperimentRequest) Patch() ExperimentPatch {
	return ExperimentPatch{Title: r.Title, Status: r.Status, CrewID: r.CrewID}
}

// DeleteExperimentRequest is DELETE /experiments/:id.
type DeleteExperimentRequest struct {
	ID int64 `param:"id"`
}

func (r *DeleteExperimentRequest) Validate() error {
	return validation.Struct(r)
}

// ExperimentCreateResponse is the created experiment plus a confirmation
// message.
type ExperimentCreateResponse struct {
	Experiment
	Message string `json:"message"`
}

// NewExperimentCreateResponse wraps e for the 201 response.
func NewExperimentCreateResponse(e Experiment) ExperimentCreateResponse {
	return ExperimentCreateResponse{Experiment: e, Message: "Experiment created successfully"}
}

// ExperimentUpdated is the body of a successful update.
func ExperimentUpdated(id int64) MessageResponse {
	return MessageResponse{Message: fmt.Sprintf("Experiment %d updated successfully", id)}
}

// ExperimentDeleted is the body of a successful delete.
func ExperimentDeleted(id int64) MessageResponse {
	return MessageResponse{Message: fmt.Sprintf("Experiment %d deleted successfully", id)}
}
