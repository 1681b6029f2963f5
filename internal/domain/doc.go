// Package domain defines the core business entities of the task
// coordination subsystem: tasks, their status state machine, activity log
// entries, comments, and the capability names checked against the
// permission service. The types here are plain data; authorization policy
// and transition orchestration live in the service layer.
package domain
