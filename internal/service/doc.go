// Package service implements the task lifecycle engine and the effect
// dispatcher. The engine validates and applies state transitions, enforces
// authorization through the permission port, computes SLA deadlines, and
// returns an ordered effect list describing the side effects to run after
// a successful persistence write. The dispatcher executes that list against
// the gateway and the notification/music ports, tolerating partial failure
// of non-critical effects.
//
// Authorization and transition failures are detected before any persistence
// write or effect dispatch: a rejected mutation produces no effects and no
// state change.
package service
