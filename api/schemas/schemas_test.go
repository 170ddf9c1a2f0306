package schemas

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileMapSerializesAsSortedPairs(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m := FileMap{
		"zebra.go": {AcceptCount: 2, FirstSeen: now, LastSeen: now},
		"alpha.go": {AcceptCount: 1, FirstSeen: now, LastSeen: now},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	s := string(data)
	assert.True(t, s[0] == '[', "FileMap encodes as a pair list, not an object")
	assert.Less(t, strings.Index(s, "alpha.go"), strings.Index(s, "zebra.go"),
		"pairs are ordered by filename")
}

func TestFileMapRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	want := FileMap{
		"server.go": {
			AcceptCount:  3,
			FirstSeen:    now,
			LastSeen:     now.Add(time.Hour),
			TotalAdded:   10,
			TotalDeleted: 2,
			ActionCounts: map[ActionType]int{ActionAccept: 2, ActionKeep: 1},
		},
	}

	data, err := json.Marshal(want)
	require.NoError(t, err)

	var got FileMap
	require.NoError(t, json.Unmarshal(data, &got))
	require.Contains(t, got, "server.go")
	assert.Equal(t, want["server.go"].AcceptCount, got["server.go"].AcceptCount)
	assert.Equal(t, want["server.go"].ActionCounts, got["server.go"].ActionCounts)
	assert.True(t, want["server.go"].LastSeen.Equal(got["server.go"].LastSeen))
}

func TestFileMapUnmarshalRejectsMalformedPairs(t *testing.T) {
	var m FileMap
	assert.Error(t, json.Unmarshal([]byte(`{"not": "pairs"}`), &m))
}

func TestNewDefaultSnapshot(t *testing.T) {
	now := time.Now()
	snap := NewDefaultSnapshot(now)

	assert.NotNil(t, snap.Analytics.Files)
	assert.NotNil(t, snap.Analytics.Sessions)
	assert.NotNil(t, snap.ROITracking.WorkflowSessions)
	assert.Equal(t, now, snap.Analytics.SessionStart)
	assert.Equal(t, DefaultManualWorkflowMs, snap.ROITracking.AverageManualWorkflowMs)
	assert.Equal(t, DefaultAutomatedWorkflowMs, snap.ROITracking.AverageAutomatedWorkflowMs)
	assert.Zero(t, snap.TotalClicks)
}

func TestDefaultActionConfigEnablesEveryRankedType(t *testing.T) {
	cfg := DefaultActionConfig()
	for _, typ := range RankedActionTypes {
		assert.True(t, cfg[typ], "type %s", typ)
	}
}

func TestRankedActionTypesOrdering(t *testing.T) {
	// The bulk variants must outrank their singular forms, and accept
	// categories outrank run categories.
	rank := map[ActionType]int{}
	for i, typ := range RankedActionTypes {
		rank[typ] = i
	}

	assert.Less(t, rank[ActionAcceptAll], rank[ActionAccept])
	assert.Less(t, rank[ActionKeepAll], rank[ActionKeep])
	assert.Less(t, rank[ActionRunCommand], rank[ActionRun])
	assert.Less(t, rank[ActionAccept], rank[ActionRunCommand])
	assert.Less(t, rank[ActionRun], rank[ActionResume])
}
