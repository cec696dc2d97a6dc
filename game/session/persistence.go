package session

import (
	"fmt"
	"time"

	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the stored form of a session. The configuration is
// stored alongside the city so a session survives edits to its config file.
type PersistedSessionData struct {
	ID             string               `json:"id"`
	ConfigName     string               `json:"config_name"`
	Config         *engine.CityConfig   `json:"config,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	City           engine.ExportedState `json:"city"`
}

// capture copies a session under its lock
func capture(session *service.Session, configID string) PersistedSessionData {
	session.Lock()
	defer session.Unlock()
	return PersistedSessionData{
		ID:             session.ID,
		ConfigName:     configID,
		Config:         session.Config,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		City:           session.Engine.ExportState(),
	}
}

// restore rebuilds a session. Records without an embedded configuration are
// resolved through the config manager.
func restore(data PersistedSessionData, configs service.ConfigManager) (*service.Session, error) {
	config := data.Config
	if config == nil {
		if configs == nil {
			return nil, fmt.Errorf("session %s has no stored config", data.ID)
		}
		var err error
		if config, err = configs.LoadConfig(data.ConfigName); err != nil {
			return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigName, err)
		}
	}

	eng, err := engine.NewEngine(config, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create city engine: %w", err)
	}
	if err := eng.ImportState(data.City); err != nil {
		return nil, fmt.Errorf("failed to restore city: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		Engine:         eng,
		Config:         config,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// configIDFor maps a display name to its config file id when possible
func configIDFor(configs service.ConfigManager, displayName string) string {
	if configs == nil {
		return displayName
	}
	list, err := configs.ListConfigs()
	if err != nil {
		return displayName
	}
	for _, cfg := range list {
		if cfg.Name == displayName {
			return cfg.ConfigID
		}
	}
	return displayName
}
