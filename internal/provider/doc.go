// Package provider defines the narrow adapter interfaces through which the
// provisioning orchestrator talks to external vendors: domain registrars,
// DNS hosts, mailbox hosts, and sending platforms. Each adapter call is a
// single atomic remote operation from the orchestrator's point of view:
// it either returns the vendor-issued identifiers or an error; there is no
// partial-success return shape.
//
// Adapters are required to be re-invocation safe: a run may be retried from
// scratch against an entity that already carries identifiers from an earlier
// attempt, so a vendor "already exists" response for the same input must be
// mapped to success carrying the existing identifier, not to an error.
// Record application is upsert by contract.
package provider
