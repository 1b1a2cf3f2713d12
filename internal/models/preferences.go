package models

import (
	"encoding/json"
	"time"

	"docforge/internal/common"

	"gorm.io/gorm"
)

// EnginePreferences represents engine preferences in the database
type EnginePreferences struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PreferencesJSON string    `gorm:"type:text" json:"preferences_json"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EnginePreferencesData represents the structured preferences data
type EnginePreferencesData struct {
	DefaultPreset      string `json:"default_preset"`
	ImageDPI           int    `json:"image_dpi"`
	ImageQuality       int    `json:"image_quality"`
	PDFVersion         string `json:"pdf_version"`
	EmbedFonts         bool   `json:"embed_fonts"`
	RemoveMetadata     bool   `json:"remove_metadata"`
	ConvertToGrayscale bool   `json:"convert_to_grayscale"`
}

// DefaultPreferences returns default preference values
func DefaultPreferences() EnginePreferencesData {
	return EnginePreferencesData{
		DefaultPreset: common.DefaultPreset,
		ImageDPI:      150,
		ImageQuality:  85,
		PDFVersion:    "1.4",
		EmbedFonts:    true,
	}
}

// GetPreferences parses and returns the preferences data
func (ep *EnginePreferences) GetPreferences() EnginePreferencesData {
	if ep.PreferencesJSON == "" {
		return DefaultPreferences()
	}

	var prefs EnginePreferencesData
	if err := json.Unmarshal([]byte(ep.PreferencesJSON), &prefs); err != nil {
		return DefaultPreferences()
	}

	return prefs
}

// SetPreferences sets the preferences data
func (ep *EnginePreferences) SetPreferences(prefs EnginePreferencesData) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}

	ep.PreferencesJSON = string(data)
	return nil
}

// GetOrCreatePreferences gets or creates the global preferences row
func GetOrCreatePreferences(db *gorm.DB) (*EnginePreferences, error) {
	var prefs EnginePreferences

	result := db.First(&prefs, 1)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			prefs = EnginePreferences{ID: 1}

			if err := prefs.SetPreferences(DefaultPreferences()); err != nil {
				return nil, err
			}
			if err := db.Create(&prefs).Error; err != nil {
				return nil, err
			}
		} else {
			return nil, result.Error
		}
	}

	return &prefs, nil
}
