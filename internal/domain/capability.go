package domain

// Capability is a named permission checked against an actor's role within a
// group. The set of role-to-capability assignments is owned by the external
// permission service; this package only names the capabilities the task
// subsystem asks about.
type Capability string

// Capabilities consumed by the task lifecycle engine.
const (
	CapCreateTasks Capability = "canCreateTasks"
	CapAssignTasks Capability = "canAssignTasks"
	CapDeleteTasks Capability = "canDeleteTasks"
	CapManageGroup Capability = "canManageGroup"
)
