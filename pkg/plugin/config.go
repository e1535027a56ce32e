package plugin

import (
	"context"
	"fmt"

	"github.com/jingkaihe/hostext/pkg/response"
)

// Config is the config-plugin surface (§4.5).
type Config interface {
	Name() string
	GenConfig(ctx context.Context) (map[string]string, error)
	GenPack(ctx context.Context, name, value string) (string, error)
}

// ShutdownConfig is implemented by config plugins that need shutdown
// notification.
type ShutdownConfig interface {
	Shutdown(ctx context.Context, reason ShutdownReason)
}

// ConfigAdapter lowers a Config onto the Plugin Contract (§4.5).
type ConfigAdapter struct {
	config Config
}

// NewConfigAdapter builds an adapter around config.
func NewConfigAdapter(config Config) *ConfigAdapter {
	return &ConfigAdapter{config: config}
}

func (a *ConfigAdapter) Name() string               { return a.config.Name() }
func (a *ConfigAdapter) Registry() RegistryKind     { return RegistryConfig }
func (a *ConfigAdapter) Routes() []map[string]string { return nil }

func (a *ConfigAdapter) Ping(ctx context.Context) *response.Reply {
	return response.Success()
}

func (a *ConfigAdapter) Shutdown(ctx context.Context, reason ShutdownReason) {
	if s, ok := a.config.(ShutdownConfig); ok {
		s.Shutdown(ctx, reason)
	}
}

func (a *ConfigAdapter) HandleCall(ctx context.Context, request map[string]string) (reply *response.Reply) {
	defer func() {
		if r := recover(); r != nil {
			reply = response.Failure(fmt.Sprintf("plugin panic: %v", r))
		}
	}()

	switch request["action"] {
	case "genConfig":
		cfg, err := a.config.GenConfig(ctx)
		if err != nil {
			return response.Failure(err.Error())
		}
		return response.Success().Rows([]map[string]string{cfg})
	case "genPack":
		pack, err := a.config.GenPack(ctx, request["name"], request["value"])
		if err != nil {
			return response.Failure(err.Error())
		}
		return response.Success().Rows([]map[string]string{{"pack": pack}})
	default:
		return response.Failure("Unknown config plugin action: " + request["action"])
	}
}
