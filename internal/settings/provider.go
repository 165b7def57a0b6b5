package settings

import (
	"strings"

	"github.com/pkg/errors"
)

// Read implements koanf.Provider. Overrides are returned as strings in the
// nested {app: {field: value}} layout; the config decoder converts them to
// the field types.
func (s *Store) Read() (map[string]interface{}, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}

	out := make(map[string]interface{})
	for key, value := range all {
		app, field, _ := strings.Cut(key, ".")
		sub, ok := out[app].(map[string]interface{})
		if !ok {
			sub = make(map[string]interface{})
			out[app] = sub
		}
		sub[field] = value
	}
	return out, nil
}

// ReadBytes implements koanf.Provider
func (s *Store) ReadBytes() ([]byte, error) {
	return nil, errors.New("settings store does not support ReadBytes")
}
