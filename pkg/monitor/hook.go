package monitor

import (
	"github.com/sirupsen/logrus"
)

// Hook forwards every logrus entry into the hub. Install it with
// logrus.AddHook; formatting happens on the producer side so the flusher
// ships ready-made lines.
type Hook struct {
	hub       *Hub
	formatter logrus.Formatter
}

// NewHook creates Hook instances
func NewHook(hub *Hub) *Hook {
	return &Hook{
		hub: hub,
		formatter: &logrus.TextFormatter{
			DisableColors: true,
		},
	}
}

// Levels implements logrus.Hook
func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook
func (h *Hook) Fire(entry *logrus.Entry) error {
	line, formatErr := h.formatter.Format(entry)
	if formatErr != nil {
		return formatErr
	}
	h.hub.Publish(entry.Level, line)
	return nil
}
