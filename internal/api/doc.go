// Package api holds the HTTP handlers for the job pipeline: upload intake
// and status polling. Handlers decode and validate requests, delegate to the
// service layer, and map service errors to HTTP status codes; they hold no
// business logic of their own.
package api
