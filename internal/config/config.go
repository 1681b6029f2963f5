package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"        validate:"required"`
	Gateway     GatewayConfig     `mapstructure:"gateway"     validate:"required"`
	Sweep       SweepConfig       `mapstructure:"sweep"       validate:"required"`
	Permissions PermissionsConfig `mapstructure:"permissions" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
// An empty URL selects the in-memory task store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AuthConfig contains all authentication settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// GatewayConfig contains WebSocket gateway tuning settings.
type GatewayConfig struct {
	// SendBufferSize is the per-connection outbound frame buffer. Frames
	// are dropped, not queued, when a slow client fills it.
	SendBufferSize int `mapstructure:"send_buffer_size" validate:"required,gt=0"`

	// PingInterval is how often keepalive pings are sent. Must be shorter
	// than PongWait or healthy connections get reaped.
	PingInterval time.Duration `mapstructure:"ping_interval" validate:"required"`

	// PongWait is how long to wait for a pong before closing the connection.
	PongWait time.Duration `mapstructure:"pong_wait" validate:"required"`

	// MessageRate caps inbound client events per second per connection.
	MessageRate float64 `mapstructure:"message_rate" validate:"required,gt=0"`

	// MessageBurst is the burst allowance for MessageRate.
	MessageBurst int `mapstructure:"message_burst" validate:"required,gt=0"`
}

// PermissionsConfig selects the permission backend.
type PermissionsConfig struct {
	// Mode is "open" (every authenticated user is a member with the member
	// role) or "roles" (membership and capabilities come from Roles).
	Mode string `mapstructure:"mode" validate:"required,oneof=open roles"`

	// Roles seeds the role table in roles mode, keyed groupID -> userID -> role.
	Roles map[string]map[string]string `mapstructure:"roles"`
}

// SweepConfig contains overdue-sweep scheduling settings.
type SweepConfig struct {
	// Interval is how often the overdue sweeper runs.
	Interval time.Duration `mapstructure:"interval" validate:"required"`
}
