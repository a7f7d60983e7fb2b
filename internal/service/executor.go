package service

import (
	"context"
	"database/sql"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mailfoundry/mailfoundry/internal/domain"
	"github.com/mailfoundry/mailfoundry/internal/redact"
	"github.com/mailfoundry/mailfoundry/internal/store"
)

// Step names recorded on spans and in failure messages.
const (
	StepRegisterDomain = "register_domain"
	StepCreateZone     = "create_zone"
	StepApplyRecords   = "apply_records"
	StepCreateAccount  = "create_account"
	StepAddToPlatform  = "add_to_sending_platform"
)

// step is one provider call in a run's sequence. fn receives the refs
// accumulated so far (the entity's refs at run start plus everything earlier
// steps returned) so later steps can read identifiers produced by earlier
// ones, and returns the refs this step contributes.
type step struct {
	name string
	fn   func(ctx context.Context, acc domain.ExternalRefs) (domain.ExternalRefs, error)
}

// runTarget abstracts the entity a run provisions so the executor can drive
// domains and mailboxes with the same loop. Implementations persist through
// the entity stores; mergeRefs keeps the entity's provisioning status while
// markReady and markError move it to its terminal status.
type runTarget interface {
	entityKey() string
	startRefs() domain.ExternalRefs
	mergeRefs(ctx context.Context, refs domain.ExternalRefs) error
	markReady(ctx context.Context) error
	markError(ctx context.Context, refs domain.ExternalRefs) error

	// withTx rebinds the target's store to the transaction so a terminal
	// entity transition can commit together with its run transition.
	withTx(tx *sql.Tx) runTarget
}

// finalizeRun writes a terminal entity transition and its run transition
// atomically when a database is available. An entity's displayed status must
// stay derivable from its most recent terminal run, so the two writes either
// both land or neither does.
func (s *provisioningService) finalizeRun(ctx context.Context, target runTarget, fn func(ctx context.Context, target runTarget, runs store.RunStore) error) error {
	if s.db == nil {
		return fn(ctx, target, s.runs)
	}
	return store.RunInTransaction(ctx, s.db, func(txCtx context.Context, tx *sql.Tx) error {
		return fn(txCtx, target.withTx(tx), s.runs.WithTx(tx))
	})
}

// executeRun drives a run through its step sequence. Each successful step's
// refs are persisted immediately, before the next step starts, so a later
// failure never discards identifiers already collected. On the first step
// failure the entity moves to its error status, the run is marked failed,
// the organization is notified, and the provider error is returned wrapped.
// Context cancellation between steps marks the run canceled and leaves the
// entity untouched.
func (s *provisioningService) executeRun(ctx context.Context, operation string, run *domain.Run, target runTarget, steps []step) error {
	ctx, span := s.tracer.Start(ctx, "provision."+string(run.EntityType),
		trace.WithAttributes(
			attribute.String("run.id", run.ID.String()),
			attribute.String("entity.id", run.EntityID.String()),
			attribute.String("entity.key", target.entityKey()),
		))
	defer span.End()

	if err := s.runs.MarkRunning(ctx, run.ID); err != nil {
		span.SetStatus(codes.Error, "mark running failed")
		return NewProvisioningError(operation, "failed to mark run as running", err)
	}

	log := s.logger.With("run_id", run.ID, "entity", target.entityKey())
	log.InfoContext(ctx, "provisioning run started", "steps", len(steps))

	acc := target.startRefs().Clone()

	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			s.cancelRun(ctx, run, log)
			span.SetStatus(codes.Error, "canceled")
			return NewProvisioningError(operation, "run canceled", err)
		}

		stepCtx, stepSpan := s.tracer.Start(ctx, "provision.step",
			trace.WithAttributes(attribute.String("step", st.name)))
		refs, err := st.fn(stepCtx, acc)
		if err != nil {
			stepSpan.RecordError(err)
			stepSpan.SetStatus(codes.Error, err.Error())
			stepSpan.End()
			span.SetStatus(codes.Error, "step failed")
			s.failRun(ctx, run, target, st.name, err, log)
			return NewStepError(operation, st.name, err)
		}
		stepSpan.End()

		if len(refs) > 0 {
			// Merge keeps keys already in acc, matching the append-only
			// persistence semantics.
			acc = acc.Merge(refs)
			if err := target.mergeRefs(ctx, refs); err != nil {
				span.SetStatus(codes.Error, "ref merge failed")
				s.failRun(ctx, run, target, st.name, err, log)
				return NewProvisioningError(operation, "failed to persist step refs", err)
			}
		}

		log.DebugContext(ctx, "provisioning step completed", "step", st.name)
	}

	err := s.finalizeRun(ctx, target, func(fctx context.Context, ft runTarget, runs store.RunStore) error {
		if err := ft.markReady(fctx); err != nil {
			return err
		}
		return runs.MarkSucceeded(fctx, run.ID)
	})
	if err != nil {
		span.SetStatus(codes.Error, "final transition failed")
		s.failRun(ctx, run, target, "", err, log)
		return NewProvisioningError(operation, "failed to complete run", err)
	}

	log.InfoContext(ctx, "provisioning run succeeded")
	return nil
}

// failRun records a run failure: the entity moves to its error status with
// the failure message written under the error ref key (replacing any
// message a previous run left), the run is marked failed, and the
// organization is notified. Bookkeeping writes use a
// context detached from cancellation so a canceled request still leaves a
// consistent ledger. Errors here are logged, never returned; the caller
// propagates the original failure.
func (s *provisioningService) failRun(ctx context.Context, run *domain.Run, target runTarget, stepName string, cause error, log *slog.Logger) {
	bctx := context.WithoutCancel(ctx)

	// Provider messages can echo request credentials; scrub before the
	// message lands in the ledger and the refs map.
	msg := redact.Error(cause)
	if stepName != "" {
		msg = stepName + ": " + msg
	}

	err := s.finalizeRun(bctx, target, func(fctx context.Context, ft runTarget, runs store.RunStore) error {
		if err := ft.markError(fctx, domain.ExternalRefs{domain.RefError: msg}); err != nil {
			return err
		}
		return runs.MarkFailed(fctx, run.ID, msg)
	})
	if err != nil {
		log.ErrorContext(bctx, "failed to record run failure", "error", err)
	}

	log.WarnContext(bctx, "provisioning run failed", "step", stepName, "error", cause)

	s.notifyFailure(bctx, run.OrganizationID, target.entityKey(), msg)
}

// cancelRun marks the run canceled after the request context was canceled
// between steps. The entity keeps its current status and refs.
func (s *provisioningService) cancelRun(ctx context.Context, run *domain.Run, log *slog.Logger) {
	bctx := context.WithoutCancel(ctx)
	if err := s.runs.MarkCanceled(bctx, run.ID); err != nil {
		log.ErrorContext(bctx, "failed to mark run as canceled", "error", err)
	}
	log.InfoContext(bctx, "provisioning run canceled")
}

