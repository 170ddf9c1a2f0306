// File: internal/analytics/recorder.go
// Description: Converts each successful invocation into file-level and
// session-level counters plus a time-saved estimate under the configurable
// workflow model. All state lives in the EngineSnapshot the engine owns; the
// recorder is the only writer besides explicit resets.
package analytics

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
)

// Per-type surcharges, in milliseconds, added on top of the calibratable
// manual baseline. Bulk actions carry review time; run/apply/resume
// categories carry extra caution or reconnection overhead.
var manualSurchargeMs = map[schemas.ActionType]int64{
	schemas.ActionAcceptAll:        5000,
	schemas.ActionKeepAll:          5000,
	schemas.ActionRunCommand:       2000,
	schemas.ActionRun:              2000,
	schemas.ActionApply:            2500,
	schemas.ActionExecute:          2500,
	schemas.ActionTryAgain:         3000,
	schemas.ActionResume:           4000,
	schemas.ActionConnectionResume: 4000,
}

// Recorder applies invocation results to the snapshot.
type Recorder struct {
	snap   *schemas.EngineSnapshot
	logger *zap.Logger
}

// New creates a recorder over the given snapshot.
func New(snap *schemas.EngineSnapshot, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{snap: snap, logger: logger.Named("analytics")}
}

// NormalizeAction maps a classified action to its analytics type. A bare
// "resume" that did not come from an explicit resume link is contextualized
// as a connection recovery.
func NormalizeAction(t schemas.ActionType, resumeLink bool) schemas.ActionType {
	if t == schemas.ActionResume && !resumeLink {
		return schemas.ActionConnectionResume
	}
	return t
}

// NormalizePhrase maps raw button text straight to its analytics type,
// applying the same case/phrase normalization the classifier uses.
func NormalizePhrase(text string, resumeLink bool) schemas.ActionType {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, t := range schemas.RankedActionTypes {
		phrase := strings.ReplaceAll(string(t), "-", " ")
		if strings.Contains(lowered, phrase) {
			return NormalizeAction(t, resumeLink)
		}
	}
	return schemas.ActionUnknown
}

// ManualWorkflowEstimateMs returns the estimated manual handling time for an
// action type: the calibratable base plus the type's fixed surcharge.
func ManualWorkflowEstimateMs(t schemas.ActionType, baseMs int64) int64 {
	return baseMs + manualSurchargeMs[t]
}

// RecordInvocation applies one successful invocation: updates the matching
// FileRecord (created on first observation), appends a SessionEvent, bumps
// the action-type histogram and the running totals.
func (r *Recorder) RecordInvocation(stats schemas.ChangeStats, actionType schemas.ActionType, now time.Time) schemas.SessionEvent {
	roi := &r.snap.ROITracking
	timeSaved := ManualWorkflowEstimateMs(actionType, roi.AverageManualWorkflowMs) - roi.AverageAutomatedWorkflowMs

	event := schemas.SessionEvent{
		ID:           uuid.NewString(),
		Filename:     stats.Filename,
		AddedLines:   stats.AddedLines,
		DeletedLines: stats.DeletedLines,
		ActionType:   actionType,
		Timestamp:    now,
		TimeSavedMs:  timeSaved,
	}

	an := &r.snap.Analytics
	if an.Files == nil {
		an.Files = schemas.FileMap{}
	}
	if stats.Filename != "" {
		rec, ok := an.Files[stats.Filename]
		if !ok {
			rec = &schemas.FileRecord{
				FirstSeen:    now,
				ActionCounts: map[schemas.ActionType]int{},
			}
			an.Files[stats.Filename] = rec
		}
		if rec.ActionCounts == nil {
			rec.ActionCounts = map[schemas.ActionType]int{}
		}
		rec.AcceptCount++
		rec.LastSeen = now
		rec.TotalAdded += stats.AddedLines
		rec.TotalDeleted += stats.DeletedLines
		rec.ActionCounts[actionType]++
	}

	an.Sessions = append(an.Sessions, event)
	an.TotalAccepts++

	roi.WorkflowSessions = append(roi.WorkflowSessions, schemas.WorkflowSession{
		ActionType:  actionType,
		TimeSavedMs: timeSaved,
		Timestamp:   now,
	})
	roi.TotalTimeSavedMs += timeSaved

	r.logger.Debug("Invocation recorded",
		zap.String("file", stats.Filename),
		zap.String("action", string(actionType)),
		zap.Int64("time_saved_ms", timeSaved))
	return event
}

// Calibrate replaces the two workflow baselines and recomputes every stored
// workflow session's time saved plus the running total from scratch. The
// append-only event log keeps its other fields untouched.
func (r *Recorder) Calibrate(manualMs, automatedMs int64) {
	roi := &r.snap.ROITracking
	roi.AverageManualWorkflowMs = manualMs
	roi.AverageAutomatedWorkflowMs = automatedMs

	var total int64
	for i := range roi.WorkflowSessions {
		ws := &roi.WorkflowSessions[i]
		ws.TimeSavedMs = ManualWorkflowEstimateMs(ws.ActionType, manualMs) - automatedMs
		total += ws.TimeSavedMs
	}
	roi.TotalTimeSavedMs = total

	// The audit log mirrors the recomputed values by position. Both lists
	// grow one entry per invocation, so indexes line up.
	for i := range r.snap.Analytics.Sessions {
		if i < len(roi.WorkflowSessions) {
			r.snap.Analytics.Sessions[i].TimeSavedMs = roi.WorkflowSessions[i].TimeSavedMs
		}
	}

	r.logger.Info("Workflow baselines recalibrated",
		zap.Int64("manual_ms", manualMs),
		zap.Int64("automated_ms", automatedMs),
		zap.Int64("total_time_saved_ms", total))
}

// Reset clears all analytics and ROI state while keeping the calibrated
// baselines and configuration.
func (r *Recorder) Reset(now time.Time) {
	an := &r.snap.Analytics
	an.Files = schemas.FileMap{}
	an.Sessions = []schemas.SessionEvent{}
	an.TotalAccepts = 0
	an.SessionStart = now

	roi := &r.snap.ROITracking
	roi.WorkflowSessions = []schemas.WorkflowSession{}
	roi.TotalTimeSavedMs = 0
}
