// File: internal/analytics/validate.go
package analytics

import (
	"fmt"

	"github.com/voxforge9/clickpilot/api/schemas"
)

// ValidationReport is the result of the consistency self-check across the
// snapshot's derived counters.
type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Checks []Check  `json:"checks"`
	Errors []string `json:"errors,omitempty"`
}

// Check is one verified invariant.
type Check struct {
	Name string `json:"name"`
	Pass bool   `json:"pass"`
	Note string `json:"note,omitempty"`
}

// Validate verifies the snapshot's cross-counter invariants:
// totalTimeSaved equals the workflow session sum, totalAccepts equals the
// audit log length, and each file's acceptCount equals the number of
// sessions referencing it.
func Validate(snap *schemas.EngineSnapshot) ValidationReport {
	report := ValidationReport{Valid: true}
	fail := func(name, note string) {
		report.Valid = false
		report.Checks = append(report.Checks, Check{Name: name, Pass: false, Note: note})
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", name, note))
	}
	pass := func(name string) {
		report.Checks = append(report.Checks, Check{Name: name, Pass: true})
	}

	var sum int64
	for _, ws := range snap.ROITracking.WorkflowSessions {
		sum += ws.TimeSavedMs
	}
	if sum != snap.ROITracking.TotalTimeSavedMs {
		fail("roi-sum", fmt.Sprintf("totalTimeSaved=%d, session sum=%d",
			snap.ROITracking.TotalTimeSavedMs, sum))
	} else {
		pass("roi-sum")
	}

	if len(snap.Analytics.Sessions) != snap.Analytics.TotalAccepts {
		fail("accept-count", fmt.Sprintf("totalAccepts=%d, log length=%d",
			snap.Analytics.TotalAccepts, len(snap.Analytics.Sessions)))
	} else {
		pass("accept-count")
	}

	perFile := map[string]int{}
	for _, ev := range snap.Analytics.Sessions {
		if ev.Filename != "" {
			perFile[ev.Filename]++
		}
	}
	filesOK := true
	for name, rec := range snap.Analytics.Files {
		if rec.AcceptCount != perFile[name] {
			filesOK = false
			fail("file-accepts", fmt.Sprintf("%s: acceptCount=%d, referencing events=%d",
				name, rec.AcceptCount, perFile[name]))
		}
	}
	// Files referenced by events must exist in the index.
	for name := range perFile {
		if _, ok := snap.Analytics.Files[name]; !ok {
			filesOK = false
			fail("file-accepts", fmt.Sprintf("%s: referenced by events but missing from file map", name))
		}
	}
	if filesOK {
		pass("file-accepts")
	}

	if len(snap.ROITracking.WorkflowSessions) != len(snap.Analytics.Sessions) {
		fail("session-alignment", fmt.Sprintf("workflowSessions=%d, audit log=%d",
			len(snap.ROITracking.WorkflowSessions), len(snap.Analytics.Sessions)))
	} else {
		pass("session-alignment")
	}

	return report
}
