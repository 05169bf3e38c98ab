// Package settings holds the operator-tunable tariffs and the EUR/RON
// exchange rate, persisted as a small local JSON file.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Settings are the tunable values used by the billing views. Unknown keys in
// the file are ignored; missing keys keep their defaults.
type Settings struct {
	GasTariff          float64 `json:"gas_tariff"`
	ElectricityTariff  float64 `json:"electricity_tariff"`
	InternetFeeMonthly float64 `json:"internet_fee_monthly"`
	EURToRONRate       float64 `json:"eur_to_ron_rate"`
}

// Defaults returns the fallback values used when no settings file exists.
func Defaults() Settings {
	return Settings{
		GasTariff:          3.37,
		ElectricityTariff:  1.68,
		InternetFeeMonthly: 35.0,
		EURToRONRate:       5.1,
	}
}

// Store reads and writes the settings file. Safe for concurrent use.
type Store struct {
	path string
	log  *zap.Logger

	mu      sync.Mutex
	current Settings
}

// NewStore loads the settings file at path, falling back to defaults when the
// file is missing or unreadable.
func NewStore(path string, log *zap.Logger) *Store {
	s := &Store{path: path, log: log, current: Defaults()}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("settings_file_unreadable_using_defaults", zap.Error(err))
		}
		return s
	}
	loaded := Defaults()
	if err := json.Unmarshal(data, &loaded); err != nil {
		log.Warn("settings_file_malformed_using_defaults", zap.Error(err))
		return s
	}
	s.current = loaded
	return s
}

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update replaces the settings and persists them.
func (s *Store) Update(next Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current
	s.current = next
	if err := s.writeLocked(); err != nil {
		s.current = prev
		return err
	}
	return nil
}

// SetExchangeRate stores a new EUR/RON rate if it differs from the current
// one. Returns whether the value changed.
func (s *Store) SetExchangeRate(rate float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.EURToRONRate == rate {
		return false, nil
	}
	prev := s.current
	s.current.EURToRONRate = rate
	if err := s.writeLocked(); err != nil {
		s.current = prev
		return false, err
	}
	s.log.Info("exchange_rate_updated",
		zap.Float64("previous", prev.EURToRONRate),
		zap.Float64("current", rate),
	)
	return true, nil
}

func (s *Store) writeLocked() error {
	data, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write settings file %s: %w", s.path, err)
	}
	return nil
}
