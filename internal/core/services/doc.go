// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services never talk to a provider or database directly; everything
// external arrives through the driven ports, so every service can be
// exercised against the in-memory adapters.
package services
