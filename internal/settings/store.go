package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync"

	"github.com/mkch/paybot/pkg/atomicfile"
	pkgerrors "github.com/mkch/paybot/pkg/errors"
	"github.com/mkch/paybot/pkg/validate"
)

const filePerm = 0o600

// Settings is the persisted runtime configuration changed by admins.
type Settings struct {
	Admins       []int64 `json:"admins" validate:"unique"`
	MinPrice     int     `json:"min_price" validate:"gte=1"`
	AutoDelivery bool    `json:"auto_delivery"`
}

// Defaults is used when no settings file exists yet.
func Defaults() Settings {
	return Settings{
		Admins:       []int64{},
		MinPrice:     1,
		AutoDelivery: false,
	}
}

func (s Settings) clone() Settings {
	out := s
	out.Admins = slices.Clone(s.Admins)
	if out.Admins == nil {
		out.Admins = []int64{}
	}
	return out
}

// LoadSource tells how the store was initialized.
type LoadSource string

const (
	LoadSourceFile     LoadSource = "file"
	LoadSourceDefaults LoadSource = "defaults"
)

// Store owns the settings record. Every mutation is written to disk before
// it becomes visible; a failed write leaves the previous value in place.
type Store struct {
	mu      sync.RWMutex
	path    string
	current Settings
}

// Open loads settings from path. A missing file yields defaults seeded with
// bootstrapAdmins and is written out immediately. A file that exists but
// cannot be parsed or validated is an error: silently defaulting would drop
// the admin list.
func Open(path string, bootstrapAdmins []int64) (*Store, LoadSource, error) {
	if path == "" {
		return nil, "", errors.New("settings path is required")
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		defaults := Defaults()
		for _, id := range bootstrapAdmins {
			if !slices.Contains(defaults.Admins, id) {
				defaults.Admins = append(defaults.Admins, id)
			}
		}
		store := &Store{path: path, current: defaults}
		if err := store.persist(defaults); err != nil {
			return nil, "", err
		}
		return store, LoadSourceDefaults, nil
	case err != nil:
		return nil, "", fmt.Errorf("reading settings %s: %w", path, err)
	}

	loaded, err := decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("settings %s is corrupt: %w", path, err)
	}
	if err := validate.Struct(loaded); err != nil {
		return nil, "", fmt.Errorf("settings %s is invalid: %w", path, err)
	}
	return &Store{path: path, current: loaded.clone()}, LoadSourceFile, nil
}

// decode reads the current layout and the legacy one written by earlier
// deployments, where the price key was PASSCODE_MIN_PRICE.
func decode(data []byte) (Settings, error) {
	var raw struct {
		Settings
		MinPrice       *int `json:"min_price"`
		LegacyMinPrice *int `json:"PASSCODE_MIN_PRICE"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Settings{}, err
	}
	out := raw.Settings
	switch {
	case raw.MinPrice != nil:
		out.MinPrice = *raw.MinPrice
	case raw.LegacyMinPrice != nil:
		out.MinPrice = *raw.LegacyMinPrice
	}
	return out, nil
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// MinPrice returns the live minimum price of the variable item.
func (s *Store) MinPrice() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.MinPrice
}

// AutoDelivery reports whether variable-item purchases draw from the code pool.
func (s *Store) AutoDelivery() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AutoDelivery
}

// IsAdmin reports whether id may run admin commands.
func (s *Store) IsAdmin(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.current.Admins, id)
}

// ListAdmins returns the admin ids in insertion order.
func (s *Store) ListAdmins() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.current.Admins)
}

func (s *Store) SetMinPrice(price int) error {
	if price < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "min price must be at least 1").
			WithDetails(map[string]any{"min_price": price})
	}
	return s.update(func(next *Settings) error {
		next.MinPrice = price
		return nil
	})
}

func (s *Store) SetAutoDelivery(on bool) error {
	return s.update(func(next *Settings) error {
		next.AutoDelivery = on
		return nil
	})
}

func (s *Store) AddAdmin(id int64) error {
	return s.update(func(next *Settings) error {
		if slices.Contains(next.Admins, id) {
			return pkgerrors.New(pkgerrors.CodeAlreadyExists, fmt.Sprintf("admin %d already exists", id))
		}
		next.Admins = append(next.Admins, id)
		return nil
	})
}

// RemoveAdmin removes id. The check and the removal share one critical
// section, so the admin set never becomes empty through this call.
func (s *Store) RemoveAdmin(id int64) error {
	return s.update(func(next *Settings) error {
		idx := slices.Index(next.Admins, id)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("admin %d not found", id))
		}
		if len(next.Admins) == 1 {
			return pkgerrors.New(pkgerrors.CodeConflict, "cannot remove the last admin")
		}
		next.Admins = slices.Delete(next.Admins, idx, idx+1)
		return nil
	})
}

func (s *Store) update(mutate func(next *Settings) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.clone()
	if err := mutate(&next); err != nil {
		return err
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.current = next
	return nil
}

func (s *Store) persist(next Settings) error {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode settings")
	}
	if err := atomicfile.WriteFile(s.path, data, filePerm); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist settings")
	}
	return nil
}
