// Package service contains the provisioning orchestrator: the state
// machine that drives a run from queued through running to a terminal
// status by executing the ordered provider steps for an entity, merging
// each step's identifiers into the entity as soon as the step completes,
// and keeping the entity's status consistent with its most recent run.
package service
