package fs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nibzard/isitclear"
	"github.com/tidwall/jsonc"
)

// Compile-time interface verification.
var _ isitclear.PreferenceStore = (*PreferenceStore)(nil)

// PreferencesFile is the preferences file name inside the config directory.
const PreferencesFile = "preferences.jsonc"

const preferencesHeader = "// isitclear preferences. Comments and trailing commas are allowed.\n"

// PreferenceStore keeps preferences in a JSONC file.
type PreferenceStore struct {
	path string
}

// NewPreferenceStore creates a store for dir/preferences.jsonc.
func NewPreferenceStore(dir string) *PreferenceStore {
	return &PreferenceStore{path: filepath.Join(dir, PreferencesFile)}
}

// Path returns the preferences file path.
func (s *PreferenceStore) Path() string {
	return s.path
}

// Load reads the preferences file. A missing file yields defaults.
func (s *PreferenceStore) Load() (*isitclear.Preferences, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return isitclear.DefaultPreferences(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	var p isitclear.Preferences
	if err := json.Unmarshal(jsonc.ToJSON(data), &p); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return &p, nil
}

// Save writes p atomically, replacing any comments in the file.
func (s *PreferenceStore) Save(p *isitclear.Preferences) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	out := append([]byte(preferencesHeader), data...)
	out = append(out, '\n')
	return writeFileAtomic(s.path, out, 0o644)
}
