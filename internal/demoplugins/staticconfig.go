package demoplugins

import (
	"context"
	"fmt"
)

// StaticConfig enables file events on /tmp via a fixed schedule; it has
// no packs, so GenPack always fails, mirroring original_source's
// config-static example.
type StaticConfig struct{}

func (StaticConfig) Name() string { return "static_config" }

func (StaticConfig) GenConfig(ctx context.Context) (map[string]string, error) {
	return map[string]string{"main": staticSchedule}, nil
}

func (StaticConfig) GenPack(ctx context.Context, name, value string) (string, error) {
	return "", fmt.Errorf("pack %q not found", name)
}

const staticSchedule = `{
  "options": {
    "host_identifier": "hostname",
    "schedule_splay_percent": 10,
    "enable_file_events": "true",
    "disable_events": "false",
    "events_expiry": "3600",
    "events_max": "50000"
  },
  "schedule": {
    "file_events": {
      "query": "SELECT * FROM file_events;",
      "interval": 10,
      "removed": false
    }
  },
  "file_paths": {
    "/tmp": ["%%"]
  }
}`
