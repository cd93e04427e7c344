package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gaplehq/gaple-server/game/engine"
	"github.com/gaplehq/gaple-server/game/service"
)

// Manager handles rule-variant loading and caching
type Manager struct {
	variantsDir    string
	defaultVariant *engine.Rules
	variants       map[string]*engine.Rules
	mu             sync.RWMutex
}

// NewManager creates a new variant manager
func NewManager(variantsDir string) (*Manager, error) {
	if _, err := os.Stat(variantsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("variants directory does not exist: %s", variantsDir)
	}

	m := &Manager{
		variantsDir: variantsDir,
		variants:    make(map[string]*engine.Rules),
	}

	if err := m.loadDefaultVariant(); err != nil {
		return nil, fmt.Errorf("failed to load default variant: %w", err)
	}

	return m, nil
}

// LoadRules loads a rule variant by name
func (m *Manager) LoadRules(name string) (*engine.Rules, error) {
	m.mu.RLock()
	// Check cache first
	if rules, exists := m.variants[name]; exists {
		m.mu.RUnlock()
		return rules, nil
	}
	m.mu.RUnlock()

	// Load from file
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if rules, exists := m.variants[name]; exists {
		return rules, nil
	}

	// Add .json extension if not present
	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}

	variantPath := filepath.Join(m.variantsDir, filename)

	data, err := os.ReadFile(variantPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, service.ErrVariantNotFound
		}
		return nil, fmt.Errorf("failed to read variant file: %w", err)
	}

	var rules engine.Rules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse variant: %w", err)
	}

	if err := engine.ValidateRules(&rules); err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidVariant, err)
	}

	// Cache the variant
	m.variants[name] = &rules
	return &rules, nil
}

// ListRules returns information about all available variants
func (m *Manager) ListRules() ([]*service.VariantInfo, error) {
	entries, err := os.ReadDir(m.variantsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read variants directory: %w", err)
	}

	var variants []*service.VariantInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")

		rules, err := m.LoadRules(name)
		if err != nil {
			// Skip invalid variants
			continue
		}

		variants = append(variants, &service.VariantInfo{
			Filename:      entry.Name(),
			VariantID:     name, // This is the identifier to use for session creation
			Name:          rules.Name,
			Description:   rules.Description,
			HandSize:      rules.HandSize,
			MinPlayers:    rules.MinPlayers,
			MaxPlayers:    rules.MaxPlayers,
			DrawPolicy:    string(rules.DrawPolicy),
			StalemateRule: string(rules.StalemateRule),
			WinCoins:      rules.WinCoins,
		})
	}

	return variants, nil
}

// GetDefault returns the default variant
func (m *Manager) GetDefault() *engine.Rules {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultVariant
}

// SetDefault sets the default variant by name
func (m *Manager) SetDefault(name string) error {
	rules, err := m.LoadRules(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultVariant = rules
	return nil
}

// RefreshCache reloads all cached variants from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.variants = make(map[string]*engine.Rules)
	m.mu.Unlock()

	return m.loadDefaultVariant()
}

// loadDefaultVariant loads the default variant
func (m *Manager) loadDefaultVariant() error {
	// Try to load classic.json as default
	rules, err := m.LoadRules("classic")
	if err != nil {
		// Try to load the first available variant
		variants, listErr := m.ListRules()
		if listErr != nil || len(variants) == 0 {
			m.mu.Lock()
			m.defaultVariant = engine.DefaultRules()
			m.mu.Unlock()
			return nil
		}

		rules, err = m.LoadRules(variants[0].VariantID)
		if err != nil {
			m.mu.Lock()
			m.defaultVariant = engine.DefaultRules()
			m.mu.Unlock()
			return nil
		}
	}

	m.mu.Lock()
	m.defaultVariant = rules
	m.mu.Unlock()
	return nil
}

// SaveRules saves a rule variant to disk
func (m *Manager) SaveRules(name string, rules *engine.Rules) error {
	// Validate before saving
	if err := engine.ValidateRules(rules); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidVariant, err)
	}

	// Add .json extension if not present
	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}

	variantPath := filepath.Join(m.variantsDir, filename)

	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal variant: %w", err)
	}

	if err := os.WriteFile(variantPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write variant file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.variants[name] = rules
	m.mu.Unlock()

	return nil
}
