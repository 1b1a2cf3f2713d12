// Package database persists engine preferences and lifetime operation
// statistics in a local sqlite file. Artifacts are deliberately not tracked
// here; they live on ephemeral storage only.
package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"docforge/internal/models"
)

// Database handles database operations
type Database struct {
	db *gorm.DB
}

// NewDatabase creates a new database instance
func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.EnginePreferences{}, &models.OperationStats{}); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// GetPreferences gets the current engine preferences
func (d *Database) GetPreferences() (*models.EnginePreferencesData, error) {
	prefs, err := models.GetOrCreatePreferences(d.db)
	if err != nil {
		return nil, err
	}

	prefsData := prefs.GetPreferences()
	return &prefsData, nil
}

// UpdatePreferences updates engine preferences from request data
func (d *Database) UpdatePreferences(data map[string]interface{}) error {
	prefs, err := models.GetOrCreatePreferences(d.db)
	if err != nil {
		return err
	}

	currentPrefs := prefs.GetPreferences()

	if val, ok := data["default_preset"]; ok {
		if preset, ok := val.(string); ok {
			currentPrefs.DefaultPreset = preset
		}
	}

	if val, ok := data["image_dpi"]; ok {
		if dpi, ok := val.(float64); ok {
			currentPrefs.ImageDPI = int(dpi)
		}
	}

	if val, ok := data["image_quality"]; ok {
		if quality, ok := val.(float64); ok {
			currentPrefs.ImageQuality = int(quality)
		}
	}

	if val, ok := data["pdf_version"]; ok {
		if version, ok := val.(string); ok {
			currentPrefs.PDFVersion = version
		}
	}

	if val, ok := data["embed_fonts"]; ok {
		if embed, ok := val.(bool); ok {
			currentPrefs.EmbedFonts = embed
		}
	}

	if val, ok := data["remove_metadata"]; ok {
		if remove, ok := val.(bool); ok {
			currentPrefs.RemoveMetadata = remove
		}
	}

	if val, ok := data["convert_to_grayscale"]; ok {
		if convert, ok := val.(bool); ok {
			currentPrefs.ConvertToGrayscale = convert
		}
	}

	if err := prefs.SetPreferences(currentPrefs); err != nil {
		return err
	}

	return d.db.Save(prefs).Error
}

// RecordOperation folds one completed operation into the lifetime stats row.
func (d *Database) RecordOperation(bytesIn, bytesOut int64) error {
	stats, err := d.getOrCreateStats()
	if err != nil {
		return err
	}

	stats.OperationsRun++
	stats.BytesIn += bytesIn
	stats.BytesOut += bytesOut
	if saved := bytesIn - bytesOut; saved > 0 {
		stats.BytesSaved += saved
	}

	return d.db.Save(stats).Error
}

// GetStats returns the lifetime operation statistics
func (d *Database) GetStats() (*models.OperationStats, error) {
	return d.getOrCreateStats()
}

func (d *Database) getOrCreateStats() (*models.OperationStats, error) {
	var stats models.OperationStats

	result := d.db.First(&stats, 1)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			stats = models.OperationStats{ID: 1}
			if err := d.db.Create(&stats).Error; err != nil {
				return nil, err
			}
		} else {
			return nil, result.Error
		}
	}

	return &stats, nil
}
