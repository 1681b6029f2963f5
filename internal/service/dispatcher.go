package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/choreboard/choreboard/internal/platform/metrics"
)

// EffectDispatcher executes the effects produced by the lifecycle engine.
// Dispatch is best effort: every effect is attempted, failures are captured
// per effect, and the caller decides what to do with the results. The
// dispatcher never retries.
type EffectDispatcher struct {
	broadcaster Broadcaster
	notifier    Notifier
	music       MusicController
	logger      *slog.Logger
	metrics     metrics.Recorder
}

// NewEffectDispatcher creates a new EffectDispatcher with the given ports.
// Returns an error if any dependency is nil.
func NewEffectDispatcher(
	broadcaster Broadcaster,
	notifier Notifier,
	music MusicController,
	logger *slog.Logger,
	rec metrics.Recorder,
) (*EffectDispatcher, error) {
	if broadcaster == nil {
		return nil, fmt.Errorf("broadcaster cannot be nil")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier cannot be nil")
	}
	if music == nil {
		return nil, fmt.Errorf("music controller cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if rec == nil {
		rec = metrics.Nop{}
	}

	return &EffectDispatcher{
		broadcaster: broadcaster,
		notifier:    notifier,
		music:       music,
		logger:      logger.With(slog.String("component", "effect_dispatcher")),
		metrics:     rec,
	}, nil
}

// Dispatch executes the given effects in order and returns one result per
// effect. A failed effect is logged and recorded but does not stop the
// remaining effects.
func (d *EffectDispatcher) Dispatch(ctx context.Context, effects []Effect) []EffectResult {
	results := make([]EffectResult, 0, len(effects))

	for _, effect := range effects {
		err := d.dispatchOne(ctx, effect)
		if err != nil {
			d.logger.Warn("effect dispatch failed",
				slog.String("kind", string(effect.Kind)),
				slog.String("error", err.Error()))
		}
		d.metrics.RecordEffect(string(effect.Kind), err == nil)
		results = append(results, EffectResult{Effect: effect, Err: err})
	}

	return results
}

func (d *EffectDispatcher) dispatchOne(ctx context.Context, effect Effect) error {
	switch effect.Kind {
	case EffectBroadcastToRoom:
		return d.broadcaster.BroadcastToRoom(effect.GroupID, effect.Event, effect.Payload)
	case EffectNotifyUser:
		return d.notifier.Notify(ctx, effect.UserID, effect.Template, effect.Payload)
	case EffectToggleMusic:
		return d.music.Toggle(ctx, effect.TaskID, effect.Action, effect.Settings)
	default:
		return fmt.Errorf("unknown effect kind %q", effect.Kind)
	}
}
