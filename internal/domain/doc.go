// Package domain contains the core business entities, value objects, and
// domain logic of the provisioning subsystem: registered domains, mailboxes,
// and the runs that record each provisioning attempt. It represents the heart
// of the system, independent of any specific infrastructure or delivery
// mechanism.
package domain
