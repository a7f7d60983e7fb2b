// Package events provides the usage-event side channel of the provisioning
// subsystem.
//
// A usage event records that a billable thing happened (a domain or mailbox
// record was created), independently of whether the subsequent provisioning
// run succeeded. Billing computation itself lives with external
// collaborators; this package only defines the event shape and the Recorder
// boundary, so services can record events without knowing how or where they
// are persisted.
//
// Recording is best-effort by convention: callers log and swallow Recorder
// failures rather than failing the enclosing creation request.
package events
