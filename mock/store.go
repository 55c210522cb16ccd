package mock

import "github.com/nibzard/isitclear"

// Compile-time interface verification.
var _ isitclear.PreferenceStore = (*PreferenceStore)(nil)

// PreferenceStore is a mock implementation of isitclear.PreferenceStore.
type PreferenceStore struct {
	LoadFn func() (*isitclear.Preferences, error)
	SaveFn func(p *isitclear.Preferences) error
}

func (s *PreferenceStore) Load() (*isitclear.Preferences, error) {
	return s.LoadFn()
}

func (s *PreferenceStore) Save(p *isitclear.Preferences) error {
	return s.SaveFn(p)
}
