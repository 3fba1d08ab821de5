// Package triage provides the business boundary for Navigator's clinical
// triage system. It defines the Service (case lifecycle, turn orchestration),
// Engine (pure classification, phase-machine and routing logic), Store
// interface (persistence), and domain models.
package triage
