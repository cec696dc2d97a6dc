package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/wricardo/ecocity/game/config"
	"github.com/wricardo/ecocity/game/grid"
)

type persistenceFactory func(t *testing.T, configs *config.Manager) SessionPersistence

func persistenceBackends() map[string]persistenceFactory {
	return map[string]persistenceFactory{
		"file": func(t *testing.T, configs *config.Manager) SessionPersistence {
			p, err := NewFilePersistence(t.TempDir(), configs)
			if err != nil {
				t.Fatalf("Failed to create file persistence: %v", err)
			}
			return p
		},
		"sqlite": func(t *testing.T, configs *config.Manager) SessionPersistence {
			p, err := NewSQLitePersistence(filepath.Join(t.TempDir(), "sessions.db"), configs)
			if err != nil {
				t.Fatalf("Failed to create sqlite persistence: %v", err)
			}
			t.Cleanup(func() { p.Close() })
			return p
		},
	}
}

func shippedConfigs(t *testing.T) *config.Manager {
	t.Helper()
	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	return configManager
}

func TestPersistenceBackends(t *testing.T) {
	for name, factory := range persistenceBackends() {
		t.Run(name, func(t *testing.T) {
			configs := shippedConfigs(t)
			persistence := factory(t, configs)
			manager := NewManager()

			session, err := manager.Create("city1", createTestConfig())
			if err != nil {
				t.Fatal(err)
			}
			session.Engine.Place("house", grid.Position{X: 2, Z: 2})
			session.Engine.Place("solar_panel", grid.Position{X: 3, Z: 3})
			session.Engine.Tick(5)

			t.Run("Save and Load Session", func(t *testing.T) {
				if err := persistence.Save(session); err != nil {
					t.Fatalf("Failed to save session: %v", err)
				}
				if !persistence.Exists("city1") {
					t.Fatal("Expected saved session to exist")
				}

				loaded, err := persistence.Load("city1")
				if err != nil {
					t.Fatalf("Failed to load session: %v", err)
				}
				if loaded.ID != "city1" || loaded.Config.Name != "Test Config" {
					t.Errorf("Unexpected loaded session %+v", loaded)
				}
				want, _ := json.Marshal(session.Engine.ExportState())
				got, _ := json.Marshal(loaded.Engine.ExportState())
				if string(want) != string(got) {
					t.Errorf("Loaded city differs from saved city")
				}
				if !loaded.CreatedAt.Equal(session.CreatedAt) {
					t.Errorf("Expected created_at %v, got %v", session.CreatedAt, loaded.CreatedAt)
				}
			})

			t.Run("Save State Changes", func(t *testing.T) {
				session.Engine.Tick(3)
				if err := persistence.Save(session); err != nil {
					t.Fatal(err)
				}
				loaded, err := persistence.Load("city1")
				if err != nil {
					t.Fatal(err)
				}
				if loaded.Engine.Day() != 8 {
					t.Errorf("Expected day 8 after resave, got %f", loaded.Engine.Day())
				}
			})

			t.Run("List All Sessions", func(t *testing.T) {
				other, _ := manager.Create("city2", createTestConfig())
				persistence.Save(other)

				ids, err := persistence.ListAll()
				if err != nil {
					t.Fatal(err)
				}
				sort.Strings(ids)
				if len(ids) != 2 || ids[0] != "city1" || ids[1] != "city2" {
					t.Errorf("Expected [city1 city2], got %v", ids)
				}
			})

			t.Run("Delete Session", func(t *testing.T) {
				if err := persistence.Delete("city2"); err != nil {
					t.Fatalf("Failed to delete: %v", err)
				}
				if persistence.Exists("city2") {
					t.Error("Expected session to be gone")
				}
				if err := persistence.Delete("city2"); !errors.Is(err, ErrSessionNotFound) {
					t.Errorf("Expected ErrSessionNotFound, got %v", err)
				}
			})

			t.Run("Error Cases", func(t *testing.T) {
				if _, err := persistence.Load("missing"); !errors.Is(err, ErrSessionNotFound) {
					t.Errorf("Expected ErrSessionNotFound, got %v", err)
				}
				if err := persistence.Save(nil); err == nil {
					t.Error("Expected error saving nil session")
				}
			})
		})
	}
}

func TestManagerWithPersistence(t *testing.T) {
	for name, factory := range persistenceBackends() {
		t.Run(name, func(t *testing.T) {
			configs := shippedConfigs(t)
			persistence := factory(t, configs)
			manager := NewManagerWithPersistence(persistence)

			session, err := manager.Create("auto1", configs.GetDefault())
			if err != nil {
				t.Fatalf("Failed to create session: %v", err)
			}
			if !persistence.Exists(session.ID) {
				t.Fatal("Session should be auto-saved on creation")
			}

			session.Lock()
			session.Engine.Place("tree_grove", grid.Position{X: 2, Z: 2})
			session.Unlock()
			if err := manager.Save("auto1"); err != nil {
				t.Fatalf("Failed to save: %v", err)
			}

			// A fresh manager finds the session on demand
			manager2 := NewManagerWithPersistence(persistence)
			loaded, err := manager2.Get("auto1")
			if err != nil {
				t.Fatalf("Failed to load from persistence: %v", err)
			}
			if len(loaded.Engine.Snapshot().Buildings) != 1 {
				t.Error("Expected the saved building after reload")
			}

			// and loads everything at startup
			manager.Create("auto2", configs.GetDefault())
			manager3 := NewManagerWithPersistence(persistence)
			if err := manager3.LoadPersistedSessions(); err != nil {
				t.Fatal(err)
			}
			if manager3.Count() != 2 {
				t.Errorf("Expected 2 sessions loaded, got %d", manager3.Count())
			}

			if err := manager.Delete("auto1"); err != nil {
				t.Fatalf("Failed to delete: %v", err)
			}
			if persistence.Exists("auto1") {
				t.Error("Expected delete to remove the stored session")
			}

			if err := manager3.SaveAllSessions(); err != nil {
				t.Errorf("SaveAllSessions failed: %v", err)
			}
		})
	}
}

func TestFilePersistenceFileStructure(t *testing.T) {
	dir := t.TempDir()
	persistence, err := NewFilePersistence(dir, shippedConfigs(t))
	if err != nil {
		t.Fatal(err)
	}
	session, _ := NewManager().Create("abcd", createTestConfig())
	if err := persistence.Save(session); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "abcd.json"))
	if err != nil {
		t.Fatalf("Expected session file: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Session file is not JSON: %v", err)
	}
	for _, key := range []string{"id", "config_name", "config", "created_at", "last_accessed_at", "city"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Expected key %q in session file", key)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "abcd.json.tmp")); !os.IsNotExist(err) {
		t.Error("Expected temporary file to be renamed away")
	}
}

func TestLoadWithoutEmbeddedConfig(t *testing.T) {
	dir := t.TempDir()
	configs := shippedConfigs(t)
	persistence, _ := NewFilePersistence(dir, configs)

	session, _ := NewManager().Create("legacy", configs.GetDefault())
	persistence.Save(session)

	// Strip the embedded config; the loader falls back to the config file
	path := filepath.Join(dir, "legacy.json")
	var data PersistedSessionData
	raw, _ := os.ReadFile(path)
	json.Unmarshal(raw, &data)
	if data.ConfigName != "classic" {
		t.Fatalf("Expected config id 'classic', got %q", data.ConfigName)
	}
	data.Config = nil
	raw, _ = json.Marshal(data)
	os.WriteFile(path, raw, 0644)

	loaded, err := persistence.Load("legacy")
	if err != nil {
		t.Fatalf("Failed to load legacy session: %v", err)
	}
	if loaded.Config.Width != 32 {
		t.Errorf("Expected classic 32-wide config, got %d", loaded.Config.Width)
	}
}

func TestSQLitePersistencePrune(t *testing.T) {
	p, err := NewSQLitePersistence(filepath.Join(t.TempDir(), "prune.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	manager := NewManager()
	old, _ := manager.Create("old", createTestConfig())
	old.LastAccessedAt = time.Now().Add(-48 * time.Hour)
	fresh, _ := manager.Create("fresh", createTestConfig())
	p.Save(old)
	p.Save(fresh)

	n, err := p.PruneBefore(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || p.Exists("old") || !p.Exists("fresh") {
		t.Errorf("Expected only the old session pruned, removed %d", n)
	}
}

func TestSQLitePersistencePragmas(t *testing.T) {
	p, err := NewSQLitePersistence(filepath.Join(t.TempDir(), "pragmas.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	var mode string
	if err := p.conn.Get(&mode, "PRAGMA journal_mode"); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("Expected journal_mode wal, got %q", mode)
	}

	var timeout int
	if err := p.conn.Get(&timeout, "PRAGMA busy_timeout"); err != nil {
		t.Fatal(err)
	}
	if timeout != 5000 {
		t.Errorf("Expected busy_timeout 5000, got %d", timeout)
	}
}
