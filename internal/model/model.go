// Package model defines the data exchanged between the layers: the views
// returned by the repositories, their inputs, and the HTTP request and
// response payloads built on top of them.
package model

// MessageResponse is the body of update and delete responses.
type MessageResponse struct {
	Message string `json:"message"`
}
