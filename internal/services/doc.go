// Package services defines the shared error taxonomy for the pipeline.
// Components tag failures with sentinel markers via Wrap so callers classify
// them with errors.Is instead of parsing messages.
package services
