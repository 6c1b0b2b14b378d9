// Package handler is the HTTP layer that sits right after the router.
//
// It binds and validates requests through the validation package, calls the
// service layer and writes JSON responses. Errors are returned to the global
// error handler, never written here.
package handler
