package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaplehq/gaple-server/game/engine"
	"github.com/gaplehq/gaple-server/game/service"
)

// FilePersistence implements SessionPersistence using file system storage
type FilePersistence struct {
	sessionsDir string
	variants    service.VariantManager
}

// NewFilePersistence creates a new file-based table persistence layer
func NewFilePersistence(sessionsDir string, variants service.VariantManager) (*FilePersistence, error) {
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FilePersistence{
		sessionsDir: sessionsDir,
		variants:    variants,
	}, nil
}

// Save persists a table to a JSON file
func (fp *FilePersistence) Save(sess *service.Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil")
	}

	// Store the variant ID, not the display name
	variantID, err := fp.getVariantIDFromName(sess.Rules.Name)
	if err != nil {
		return fmt.Errorf("failed to get variant ID: %w", err)
	}

	sess.Lock()
	stateJSON, err := json.Marshal(sess.Engine.State())
	createdAt := sess.CreatedAt
	lastAccessedAt := sess.LastAccessedAt
	sess.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}

	var state engine.GameState
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return fmt.Errorf("failed to copy game state: %w", err)
	}

	data := PersistedSessionData{
		ID:             sess.ID,
		Variant:        variantID,
		CreatedAt:      createdAt,
		LastAccessedAt: lastAccessedAt,
		GameState:      &state,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	filePath := fp.getFilePath(sess.ID)
	if err := os.WriteFile(filePath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Load retrieves a table from a JSON file
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	filePath := fp.getFilePath(id)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, service.ErrSessionNotFound
	}

	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	rules, err := fp.variants.LoadRules(data.Variant)
	if err != nil {
		return nil, fmt.Errorf("failed to load variant '%s': %w", data.Variant, err)
	}

	eng, err := engine.RestoreEngine(data.GameState, rules)
	if err != nil {
		return nil, fmt.Errorf("failed to restore game engine: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		Engine:         eng,
		Rules:          rules,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// Delete removes a table file
func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return service.ErrSessionNotFound
	}

	if err := os.Remove(fp.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	return nil
}

// ListAll returns all persisted table IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessionIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			sessionIDs = append(sessionIDs, strings.TrimSuffix(name, ".json"))
		}
	}

	return sessionIDs, nil
}

// Exists checks if a table file exists
func (fp *FilePersistence) Exists(id string) bool {
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

// getFilePath returns the full file path for a table ID
func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.sessionsDir, fmt.Sprintf("%s.json", id))
}

// getVariantIDFromName returns the variant ID (filename without extension)
// for a display name
func (fp *FilePersistence) getVariantIDFromName(displayName string) (string, error) {
	variants, err := fp.variants.ListRules()
	if err != nil {
		return "", fmt.Errorf("failed to list variants: %w", err)
	}

	for _, v := range variants {
		if v.Name == displayName {
			return v.VariantID, nil
		}
	}

	// If not found, assume the displayName is already the variant ID
	return displayName, nil
}
