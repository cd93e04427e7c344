// Package config provides rule-variant management for the gaple server.
//
// The config package handles:
//   - Loading rule variants from JSON files
//   - Variant validation
//   - Default variant management
//   - Variant discovery and listing
//
// Variant Format:
//
// Rule variants are stored as JSON files in the variants directory.
// Each variant defines:
//   - Hand size and player count bounds
//   - Draw policy (none, single, until_playable)
//   - Stalemate resolution (lowest_pips, play_on)
//   - Coin award for a win
//
// Available Variants:
//
// The server ships with the common Indonesian table rules:
//   - classic: no stock, blocked players pass, stalemate goes to lowest pips
//   - cangkulan: blocked players draw one tile from the stock per action
//   - cangkulan_auto: blocked players draw until playable or the stock empties
//
// Usage:
//
//	manager := config.NewManager("variants")
//
//	// Load a specific variant
//	rules, err := manager.LoadRules("cangkulan")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Get the default variant
//	defaultRules := manager.GetDefault()
//
//	// List available variants
//	variants, err := manager.ListRules()
package config
