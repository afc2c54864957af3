package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// PresetExtension is the file extension of saved presets.
const PresetExtension = ".wgpreset"

// legacyKeys maps setting names used by older presets to current names.
var legacyKeys = map[string]string{
	"format":     "primary_format",
	"create_zip": "create_archive",
}

// Preset is a named, saved set of settings.
type Preset struct {
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Version  string    `json:"version"`
	Settings Settings  `json:"-"`
}

// SavePreset writes s as a named preset to path.
func SavePreset(path, name string, s Settings) error {
	doc := map[string]any{
		"name":     name,
		"created":  time.Now().UTC().Format(time.RFC3339),
		"version":  Version,
		"settings": s.Map(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create preset directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to save preset %s: %w", name, err)
	}

	return nil
}

// LoadPreset reads a preset written by SavePreset. Legacy setting names are
// translated; unknown settings are rejected.
func LoadPreset(path string) (Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Preset{}, fmt.Errorf("%w: failed to open preset: %v", ErrInvalidConfig, err)
	}
	defer f.Close()

	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(f); err != nil {
		return Preset{}, fmt.Errorf("%w: failed to parse preset %s: %v", ErrInvalidConfig, path, err)
	}

	if !v.IsSet("settings") {
		return Preset{}, fmt.Errorf("%w: preset %s has no settings", ErrInvalidConfig, path)
	}

	raw := v.GetStringMap("settings")
	for old, current := range legacyKeys {
		if val, ok := raw[old]; ok {
			delete(raw, old)
			raw[current] = val
		}
	}

	s, err := SettingsFromMap(raw)
	if err != nil {
		return Preset{}, fmt.Errorf("preset %s: %w", path, err)
	}

	p := Preset{
		Name:     v.GetString("name"),
		Version:  v.GetString("version"),
		Settings: s,
	}
	if created, err := time.Parse(time.RFC3339, v.GetString("created")); err == nil {
		p.Created = created
	}

	return p, nil
}
