// Package notify provides local implementations of the notification and
// music ports. The real push transport and music provider live outside this
// subsystem; these adapters log the intent so single-node deployments keep
// a visible record.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/choreboard/choreboard/internal/domain"
	"github.com/choreboard/choreboard/internal/service"
)

// LogNotifier implements service.Notifier by writing each notification to
// the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// Ensure LogNotifier implements the service port.
var _ service.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(slog.String("component", "notifier"))}
}

// Notify implements service.Notifier.Notify.
func (n *LogNotifier) Notify(_ context.Context, userID string, template service.NotificationTemplate, payload any) error {
	n.logger.Info("notification",
		slog.String("user_id", userID),
		slog.String("template", string(template)),
		slog.Any("payload", payload))
	return nil
}

// LogMusicController implements service.MusicController by logging toggle
// requests.
type LogMusicController struct {
	logger *slog.Logger
}

// Ensure LogMusicController implements the service port.
var _ service.MusicController = (*LogMusicController)(nil)

// NewLogMusicController creates a LogMusicController.
func NewLogMusicController(logger *slog.Logger) *LogMusicController {
	return &LogMusicController{logger: logger.With(slog.String("component", "music"))}
}

// Toggle implements service.MusicController.Toggle.
func (c *LogMusicController) Toggle(_ context.Context, taskID uuid.UUID, action service.MusicAction, settings domain.MusicSettings) error {
	c.logger.Info("music toggle",
		slog.String("task_id", taskID.String()),
		slog.String("action", string(action)),
		slog.String("playlist_id", settings.PlaylistID))
	return nil
}
