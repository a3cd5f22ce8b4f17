package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/models"
)

// Known setting keys. Values outside this set are rejected on write.
const (
	SettingBookingDefaultDuration = "default_duration_minutes"
	SettingBookingMaxAdvanceDays  = "max_advance_days"
	SettingWorkingHoursStart      = "start"
	SettingWorkingHoursEnd        = "end"
	SettingSystemTimezone         = "timezone"
	SettingSystemBusinessName     = "business_name"
	SettingUserSessionWindow      = "session_active_minutes"
)

// settingSpec describes one known key: where it lives and how to check it
type settingSpec struct {
	category string
	key      string
	validate func(value string) error
}

var knownSettings = []settingSpec{
	{models.SettingCategoryBooking, SettingBookingDefaultDuration, validatePositiveInt},
	{models.SettingCategoryBooking, SettingBookingMaxAdvanceDays, validatePositiveInt},
	{models.SettingCategoryWorkingHours, SettingWorkingHoursStart, validateClock},
	{models.SettingCategoryWorkingHours, SettingWorkingHoursEnd, validateClock},
	{models.SettingCategorySystem, SettingSystemTimezone, validateTimezone},
	{models.SettingCategorySystem, SettingSystemBusinessName, validateNonEmpty},
	{models.SettingCategoryUser, SettingUserSessionWindow, validatePositiveInt},
}

var (
	// ErrUnknownSetting indicates a write to a key outside the known set
	ErrUnknownSetting = fmt.Errorf("unknown setting key")
)

// SettingsService exposes the settings table through typed accessors.
// Every value is validated against its key's rules on write and falls back
// to a default on read when missing or malformed.
type SettingsService struct {
	settings *database.SettingRepository
}

// NewSettingsService creates a new settings service
func NewSettingsService(settings *database.SettingRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

// ValidateAll checks every stored setting against the known-key rules.
// Called at startup so bad values fail loudly instead of at first use.
func (s *SettingsService) ValidateAll() error {
	stored, err := s.settings.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	for _, setting := range stored {
		spec := findSpec(setting.Category, setting.Key)
		if spec == nil {
			continue // unknown rows are tolerated on read, rejected on write
		}
		if err := spec.validate(setting.Value); err != nil {
			return fmt.Errorf("setting %s.%s: %w", setting.Category, setting.Key, err)
		}
	}

	return nil
}

// List returns all settings, optionally filtered by category
func (s *SettingsService) List(category string) ([]models.Setting, error) {
	if category == "" {
		return s.settings.GetAll()
	}
	return s.settings.GetByCategory(category)
}

// Update validates and writes a setting value
func (s *SettingsService) Update(category, key, value, updatedBy string) error {
	spec := findSpec(category, key)
	if spec == nil {
		return fmt.Errorf("%w: %s.%s", ErrUnknownSetting, category, key)
	}

	if err := spec.validate(value); err != nil {
		return fmt.Errorf("setting %s.%s: %w", category, key, err)
	}

	return s.settings.Update(category, key, value, updatedBy)
}

// DefaultDurationMinutes returns the default booking length
func (s *SettingsService) DefaultDurationMinutes(fallback int) int {
	return s.settings.GetIntValue(models.SettingCategoryBooking, SettingBookingDefaultDuration, fallback)
}

// MaxAdvanceDays returns how far ahead bookings may be placed
func (s *SettingsService) MaxAdvanceDays(fallback int) int {
	return s.settings.GetIntValue(models.SettingCategoryBooking, SettingBookingMaxAdvanceDays, fallback)
}

// WorkingHours returns the configured day window as "HH:MM" strings
func (s *SettingsService) WorkingHours(fallbackStart, fallbackEnd string) (string, string) {
	start := s.settings.GetStringValue(models.SettingCategoryWorkingHours, SettingWorkingHoursStart, fallbackStart)
	if validateClock(start) != nil {
		start = fallbackStart
	}

	end := s.settings.GetStringValue(models.SettingCategoryWorkingHours, SettingWorkingHoursEnd, fallbackEnd)
	if validateClock(end) != nil {
		end = fallbackEnd
	}

	return start, end
}

// Timezone returns the configured business timezone
func (s *SettingsService) Timezone(fallback string) *time.Location {
	name := s.settings.GetStringValue(models.SettingCategorySystem, SettingSystemTimezone, fallback)
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc, err = time.LoadLocation(fallback)
		if err != nil {
			return time.UTC
		}
	}
	return loc
}

// SessionActiveMinutes returns the connected-users report window
func (s *SettingsService) SessionActiveMinutes(fallback int) int {
	return s.settings.GetIntValue(models.SettingCategoryUser, SettingUserSessionWindow, fallback)
}

func findSpec(category, key string) *settingSpec {
	for i := range knownSettings {
		if knownSettings[i].category == category && knownSettings[i].key == key {
			return &knownSettings[i]
		}
	}
	return nil
}

func validatePositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("not an integer: %q", value)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateClock(value string) error {
	if _, err := time.Parse("15:04", value); err != nil {
		return fmt.Errorf("not a HH:MM clock value: %q", value)
	}
	return nil
}

func validateTimezone(value string) error {
	if _, err := time.LoadLocation(value); err != nil {
		return fmt.Errorf("unknown timezone: %q", value)
	}
	return nil
}

func validateNonEmpty(value string) error {
	if value == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}
