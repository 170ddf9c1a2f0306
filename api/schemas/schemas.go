// File: api/schemas/schemas.go
// Description: Canonical types shared across the engine. Interface contracts
// (the UI tree, persistence and clock ports) live in ports.go; keeping both at
// the API level avoids import cycles between the engine packages.
package schemas

import (
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// json is the module-wide codec. jsoniter honors encoding/json marshaler
// interfaces, so the custom FileMap encoding below works under both.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ActionType is the normalized semantic type of a recognized prompt.
type ActionType string

const (
	ActionAcceptAll        ActionType = "accept-all"
	ActionAccept           ActionType = "accept"
	ActionReviewNextFile   ActionType = "review-next-file"
	ActionKeepAll          ActionType = "keep-all"
	ActionKeep             ActionType = "keep"
	ActionRunCommand       ActionType = "run-command"
	ActionRun              ActionType = "run"
	ActionApply            ActionType = "apply"
	ActionExecute          ActionType = "execute"
	ActionResume           ActionType = "resume"
	ActionConnectionResume ActionType = "connection-resume"
	ActionTryAgain         ActionType = "try-again"
	ActionUnknown          ActionType = "unknown"
)

// HostVariant identifies one of the target applications the engine is designed
// to operate inside, distinguished by structural/styling fingerprints.
type HostVariant string

const (
	// VariantCursor is the baseline variant. Ties and zero fingerprint scores
	// fall back to it.
	VariantCursor HostVariant = "cursor"
	// VariantWindsurf is the alternate variant with its own selector patterns
	// and a dedicated panel sub-document.
	VariantWindsurf HostVariant = "windsurf"
)

// ActionCandidate is an element tentatively recognized as representing a
// user-invocable action. Candidates are ephemeral: recomputed every scan
// cycle and never persisted.
type ActionCandidate struct {
	Element     UIElement
	Text        string
	Type        ActionType
	Visible     bool
	Interactive bool
	// ResumeLink marks candidates discovered through the explicit
	// resume-command attribute rather than text classification.
	ResumeLink bool
}

// ChangeStats carries the contextual metadata extracted from a code-change
// summary block: the file the action applies to and its diff counters.
type ChangeStats struct {
	Filename     string `json:"filename"`
	AddedLines   int    `json:"addedLines"`
	DeletedLines int    `json:"deletedLines"`
}

// FileRecord accumulates per-file counters. Created on first observation of a
// filename, updated monotonically, removed only by an explicit reset.
type FileRecord struct {
	AcceptCount  int                `json:"acceptCount"`
	FirstSeen    time.Time          `json:"firstSeen"`
	LastSeen     time.Time          `json:"lastSeen"`
	TotalAdded   int                `json:"totalAdded"`
	TotalDeleted int                `json:"totalDeleted"`
	ActionCounts map[ActionType]int `json:"actionCounts"`
}

// SessionEvent is one immutable entry of the append-only audit log. All
// analytics are derived from this log.
type SessionEvent struct {
	ID           string     `json:"id"`
	Filename     string     `json:"filename"`
	AddedLines   int        `json:"addedLines"`
	DeletedLines int        `json:"deletedLines"`
	ActionType   ActionType `json:"actionType"`
	Timestamp    time.Time  `json:"timestamp"`
	TimeSavedMs  int64      `json:"timeSaved"`
}

// WorkflowSession records one manual-vs-automated time comparison attributed
// to a single invoked action. The list is recomputed in bulk when the two
// average parameters are recalibrated.
type WorkflowSession struct {
	ActionType  ActionType `json:"actionType"`
	TimeSavedMs int64      `json:"timeSaved"`
	Timestamp   time.Time  `json:"timestamp"`
}

// ROIState holds the calibratable workflow baselines and the derived totals.
//
// Invariant: TotalTimeSavedMs always equals the sum of TimeSavedMs across all
// WorkflowSessions; recalibration must recompute both consistently.
type ROIState struct {
	TotalTimeSavedMs           int64             `json:"totalTimeSaved"`
	AverageManualWorkflowMs    int64             `json:"averageManualWorkflowMs"`
	AverageAutomatedWorkflowMs int64             `json:"averageAutomatedWorkflowMs"`
	WorkflowSessions           []WorkflowSession `json:"workflowSessions"`
}

// FileMap is the filename -> FileRecord index. It serializes as an ordered
// list of [filename, record] pairs to match the persisted snapshot layout.
type FileMap map[string]*FileRecord

type filePair struct {
	Name   string
	Record *FileRecord
}

// MarshalJSON encodes the map as [[filename, FileRecord]...] with
// deterministic (sorted) ordering.
func (m FileMap) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([][2]jsoniter.RawMessage, 0, len(names))
	for _, name := range names {
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m[name])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]jsoniter.RawMessage{key, val})
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON accepts the [[filename, FileRecord]...] pair encoding.
func (m *FileMap) UnmarshalJSON(data []byte) error {
	var pairs [][2]jsoniter.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	out := make(FileMap, len(pairs))
	for _, p := range pairs {
		var name string
		if err := json.Unmarshal(p[0], &name); err != nil {
			return err
		}
		rec := &FileRecord{}
		if err := json.Unmarshal(p[1], rec); err != nil {
			return err
		}
		out[name] = rec
	}
	*m = out
	return nil
}

// AnalyticsState aggregates the audit log and its per-file index.
//
// Invariants: TotalAccepts always equals len(Sessions); a file's AcceptCount
// equals the count of Sessions referencing that filename.
type AnalyticsState struct {
	Files        FileMap        `json:"files"`
	Sessions     []SessionEvent `json:"sessions"`
	TotalAccepts int            `json:"totalAccepts"`
	SessionStart time.Time      `json:"sessionStart"`
}

// EngineSnapshot is the unit of persistence: the complete durable state of
// the engine under a single key.
type EngineSnapshot struct {
	Analytics   AnalyticsState      `json:"analytics"`
	ROITracking ROIState            `json:"roiTracking"`
	Config      map[ActionType]bool `json:"config"`
	TotalClicks int                 `json:"totalClicks"`
	SavedAt     time.Time           `json:"savedAt"`
}

// NewDefaultSnapshot returns an empty snapshot with all maps initialized and
// the default workflow baselines applied. Loads of a missing or partial
// persisted snapshot merge into this shape.
func NewDefaultSnapshot(now time.Time) *EngineSnapshot {
	return &EngineSnapshot{
		Analytics: AnalyticsState{
			Files:        FileMap{},
			Sessions:     []SessionEvent{},
			SessionStart: now,
		},
		ROITracking: ROIState{
			AverageManualWorkflowMs:    DefaultManualWorkflowMs,
			AverageAutomatedWorkflowMs: DefaultAutomatedWorkflowMs,
			WorkflowSessions:           []WorkflowSession{},
		},
		Config: DefaultActionConfig(),
	}
}

// Default workflow baselines, in milliseconds. Both are operator-calibratable
// at runtime via CalibrateWorkflowTimes.
const (
	DefaultManualWorkflowMs    int64 = 30000
	DefaultAutomatedWorkflowMs int64 = 100
)

// DefaultActionConfig enables every recognized action type.
func DefaultActionConfig() map[ActionType]bool {
	cfg := make(map[ActionType]bool, len(RankedActionTypes))
	for _, t := range RankedActionTypes {
		cfg[t] = true
	}
	return cfg
}

// RankedActionTypes is the fixed semantic priority table, highest first. The
// prioritizer orders candidates by position in this list; types not present
// keep their relative scan order after all ranked entries.
var RankedActionTypes = []ActionType{
	ActionAcceptAll,
	ActionAccept,
	ActionReviewNextFile,
	ActionKeepAll,
	ActionKeep,
	ActionRunCommand,
	ActionRun,
	ActionApply,
	ActionExecute,
	ActionResume,
	ActionTryAgain,
}
