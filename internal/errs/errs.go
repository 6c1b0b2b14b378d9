// Package errs defines the error types shared across the station API.
//
// Two families live here:
//   - data-access kinds (ConnectionError, QueryError, NotFoundError, NoFieldsError)
//     returned by the database and repository layers, and
//   - HTTPError, the JSON shape every failed request is rendered with.
//
// The mapping from the first family to the second is done once, in the sqlerr
// package, so repositories never decide transport status codes.
package errs
