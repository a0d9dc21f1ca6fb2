package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sohalab/petauth/internal/domain"
	"github.com/sohalab/petauth/internal/logger"
	"github.com/sohalab/petauth/internal/ports"
)

// Dispatcher routes incoming callback URIs to the component that owns
// them. It is the single entry point for deep links.
type Dispatcher struct {
	launcher   *Launcher
	reconciler *Reconciler
	recovery   *RecoveryService
	nav        ports.Navigator
	log        logger.Logger
}

func NewDispatcher(launcher *Launcher, reconciler *Reconciler, recovery *RecoveryService, nav ports.Navigator, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}

	return &Dispatcher{
		launcher:   launcher,
		reconciler: reconciler,
		recovery:   recovery,
		nav:        nav,
		log:        log,
	}
}

// HandleURI classifies a raw callback URI and dispatches it.
func (d *Dispatcher) HandleURI(ctx context.Context, uri string) error {
	return d.Handle(ctx, domain.ClassifyCallback(uri))
}

// Handle dispatches an already-classified callback event. Unrecognized
// URIs are dropped without side effects; everything the app does not
// understand today must stay harmless.
func (d *Dispatcher) Handle(ctx context.Context, ev domain.CallbackEvent) error {
	switch ev.Kind {
	case domain.CallbackUnrecognized:
		d.log.Debug("ignoring unrecognized callback", "uri", ev.RawURI)
		return nil

	case domain.CallbackOAuthError:
		if d.launcher != nil {
			d.launcher.Complete()
		}
		detail := ev.ErrorDescription
		if detail == "" {
			detail = ev.ErrorCode
		}
		return fmt.Errorf("%w: %s", domain.ErrProviderDenied, detail)

	case domain.CallbackPasswordRecovery:
		if ev.AccessToken == "" {
			d.log.Debug("recovery callback without token, ignoring", "uri", ev.RawURI)
			return nil
		}
		if err := d.recovery.AdoptRecoveryCallback(ev); err != nil {
			return err
		}
		if d.nav != nil {
			d.nav.ShowPasswordReset(ctx, ev.AccessToken, ev.Email)
		}
		return nil

	case domain.CallbackOAuthSuccess:
		outcome, err := d.reconcileSuccess(ctx, ev)
		if err != nil {
			if errors.Is(err, domain.ErrStaleGeneration) {
				d.log.Debug("callback from a superseded or logged-out flow, dropping", "uri", ev.RawURI)
				return nil
			}
			return err
		}

		if d.nav != nil {
			if outcome.Resumed != nil && outcome.Resumed.Kind == domain.ResumeReturnToResults {
				d.nav.ShowResults(ctx, outcome.Resumed.Payload)
			} else {
				d.nav.ShowHome(ctx)
			}
		}
		return nil

	default:
		return fmt.Errorf("unhandled callback kind %q", ev.Kind)
	}
}

// reconcileSuccess binds the callback to the attempt it answers when one is
// still pending, so an attempt superseded by a newer launch cannot install
// a session. Callbacks with no pending attempt, such as a manually replayed
// URI, reconcile under the store's current generation.
func (d *Dispatcher) reconcileSuccess(ctx context.Context, ev domain.CallbackEvent) (ReconcileOutcome, error) {
	if d.launcher != nil {
		if attempt, ok := d.launcher.Complete(); ok {
			return d.reconciler.ReconcileAttempt(ctx, ev, attempt)
		}
	}
	return d.reconciler.Reconcile(ctx, ev)
}
