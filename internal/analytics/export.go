// File: internal/analytics/export.go
package analytics

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/voxforge9/clickpilot/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ExportDocument mirrors the persisted snapshot plus an export timestamp.
type ExportDocument struct {
	Analytics   schemas.AnalyticsState      `json:"analytics"`
	ROITracking schemas.ROIState            `json:"roiTracking"`
	Config      map[schemas.ActionType]bool `json:"config"`
	TotalClicks int                         `json:"totalClicks"`
	SavedAt     time.Time                   `json:"savedAt"`
	ExportedAt  time.Time                   `json:"exportedAt"`
}

// Export produces the downloadable JSON analytics document.
func Export(snap *schemas.EngineSnapshot, now time.Time) ([]byte, error) {
	doc := ExportDocument{
		Analytics:   snap.Analytics,
		ROITracking: snap.ROITracking,
		Config:      snap.Config,
		TotalClicks: snap.TotalClicks,
		SavedAt:     snap.SavedAt,
		ExportedAt:  now,
	}
	return json.MarshalIndent(doc, "", "  ")
}
