// Command validate provides a small CLI that validates rule variant JSON
// files in the ../variants directory (or a directory given as the first
// argument). It checks:
//   - JSON structure and required fields
//   - Hand size and player count bounds
//   - Deal feasibility against the 28-tile double-six set
//   - Known draw policies and stalemate rules
//   - Win coin amounts
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaplehq/gaple-server/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateVariant loads and validates a single variant JSON file. It
// performs structural checks, bound checks, and a deal feasibility check.
func validateVariant(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var rules engine.Rules
	if err := json.Unmarshal(data, &rules); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if rules.Name == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "Missing required field: name")
	}

	if rules.HandSize < 1 {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("hand_size must be positive, got %d", rules.HandSize))
	}

	if rules.MinPlayers < engine.MinPlayers {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("min_players must be at least %d, got %d", engine.MinPlayers, rules.MinPlayers))
	}

	if rules.MaxPlayers > engine.MaxPlayers {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("max_players must be at most %d, got %d", engine.MaxPlayers, rules.MaxPlayers))
	}

	if rules.MinPlayers > rules.MaxPlayers {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("min_players (%d) cannot exceed max_players (%d)", rules.MinPlayers, rules.MaxPlayers))
	}

	if rules.HandSize > 0 && rules.MaxPlayers > 0 && rules.MaxPlayers*rules.HandSize > engine.FullSetSize {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Deal infeasible: %d players x %d tiles = %d exceeds the %d-tile set",
			rules.MaxPlayers, rules.HandSize, rules.MaxPlayers*rules.HandSize, engine.FullSetSize))
	}

	switch rules.DrawPolicy {
	case engine.DrawNone, engine.DrawSingle, engine.DrawUntilPlayable:
	default:
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Unknown draw_policy: %q (want none, single, or until_playable)", rules.DrawPolicy))
	}

	switch rules.StalemateRule {
	case engine.StalemateLowestPips, engine.StalematePlayOn:
	default:
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Unknown stalemate_rule: %q (want lowest_pips or play_on)", rules.StalemateRule))
	}

	if rules.WinCoins < 0 {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("win_coins must not be negative, got %d", rules.WinCoins))
	}

	// The engine performs its own check at load time; a disagreement here
	// means the checks above drifted from ValidateRules.
	if result.Valid {
		if err := engine.ValidateRules(&rules); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Engine rejected variant: %v", err))
		}
	}

	// Add informational data
	if result.Valid {
		minStock := engine.FullSetSize - rules.MaxPlayers*rules.HandSize
		maxStock := engine.FullSetSize - rules.MinPlayers*rules.HandSize
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", rules.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Hand size: %d", rules.HandSize))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Players: %d-%d", rules.MinPlayers, rules.MaxPlayers))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Stock after deal: %d-%d tiles", minStock, maxStock))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Draw policy: %s", rules.DrawPolicy))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Stalemate rule: %s", rules.StalemateRule))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Win coins: %d", rules.WinCoins))
	}

	return result
}

// main scans the variants directory for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any are
// invalid.
func main() {
	variantsDir := "../variants"
	if len(os.Args) > 1 {
		variantsDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(variantsDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding variant files: %v\n", err)
		os.Exit(1)
	}

	if len(files) == 0 {
		fmt.Printf("No variant files found in %s\n", variantsDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateVariant(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All variants are valid!")
	} else {
		fmt.Println("❌ Some variants have errors")
		os.Exit(1)
	}
}
