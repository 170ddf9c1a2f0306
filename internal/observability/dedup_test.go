package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedDedupLogger(window time.Duration) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(NewDedupCore(core, window)), logs
}

func TestDedupSuppressesRepeatsWithinWindow(t *testing.T) {
	logger, logs := newObservedDedupLogger(time.Minute)

	logger.Info("no candidates")
	logger.Info("no candidates")
	logger.Info("no candidates")

	assert.Equal(t, 1, logs.Len(), "repeats inside the window are dropped")
}

func TestDedupDistinguishesMessagesAndLevels(t *testing.T) {
	logger, logs := newObservedDedupLogger(time.Minute)

	logger.Info("no candidates")
	logger.Warn("no candidates")
	logger.Info("host unreachable")

	assert.Equal(t, 3, logs.Len())
}

func TestDedupAllowsAfterWindowExpires(t *testing.T) {
	logger, logs := newObservedDedupLogger(10 * time.Millisecond)

	logger.Info("no candidates")
	time.Sleep(20 * time.Millisecond)
	logger.Info("no candidates")

	assert.Equal(t, 2, logs.Len())
}

func TestDedupSharedAcrossWithChildren(t *testing.T) {
	logger, logs := newObservedDedupLogger(time.Minute)

	logger.Info("scan complete")
	logger.With(zap.String("component", "scanner")).Info("scan complete")
	logger.Named("engine").Info("scan complete")

	assert.Equal(t, 1, logs.Len(), "With/Named children share the window")
}
