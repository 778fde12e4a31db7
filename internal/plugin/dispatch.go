package plugin

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/necktilt/internal/store"
)

// HookSource lists the enabled hooks for an event.
type HookSource interface {
	ListByEvent(event string) ([]*store.Hook, error)
}

// Result is the outcome of running one hook.
type Result struct {
	HookID string
	Err    error
}

// Dispatcher runs the hooks bound to session events.
type Dispatcher struct {
	hooks    HookSource
	manager  *Manager
	executor *Executor
	log      logrus.FieldLogger
}

// NewDispatcher wires hooks to plugins.
func NewDispatcher(hooks HookSource, manager *Manager, executor *Executor, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{hooks: hooks, manager: manager, executor: executor, log: log}
}

// Fire runs every enabled hook for ev.Name in order and reports each
// outcome. A failing hook does not stop the rest.
func (d *Dispatcher) Fire(ctx context.Context, ev EventInfo) ([]Result, error) {
	hooks, err := d.hooks.ListByEvent(ev.Name)
	if err != nil {
		return nil, fmt.Errorf("list hooks for %s: %w", ev.Name, err)
	}

	results := make([]Result, 0, len(hooks))
	for _, h := range hooks {
		err := d.run(ctx, h, ev)
		log := d.log.WithFields(logrus.Fields{
			"hook":   h.ID,
			"event":  ev.Name,
			"plugin": h.PluginName,
			"action": h.ActionName,
		})
		if err != nil {
			log.WithError(err).Warn("Hook failed")
		} else {
			log.Debug("Hook ran")
		}
		results = append(results, Result{HookID: h.ID, Err: err})
	}
	return results, nil
}

func (d *Dispatcher) run(ctx context.Context, h *store.Hook, ev EventInfo) error {
	p, err := d.manager.Get(h.PluginName)
	if err != nil {
		return fmt.Errorf("%s: %w", h.PluginName, err)
	}
	if !p.Manifest.Supports(h.ActionName) {
		return fmt.Errorf("plugin %s has no action %q", h.PluginName, h.ActionName)
	}

	resp, err := d.executor.Execute(ctx, p, &Request{
		Action: h.ActionName,
		Event:  ev,
		Config: h.Config,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s: %s", h.PluginName, resp.Error)
	}
	return nil
}
