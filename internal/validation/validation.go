// Package validation binds request payloads and checks them against their
// `validate` struct tags, turning failures into field-level errs.FieldError
// values the client can display.
package validation
