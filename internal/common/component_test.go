package common

import (
	"bytes"
	"strings"
	"testing"

	logcommon "satarecon/common"
	"satarecon/internal/sata"
)

// mockErrorLog is a mock implementation of ErrorLog
type mockErrorLog struct {
	lastErrSev sata.ErrSeverity
	lastErrMsg string
	lastMsgSev sata.ErrSeverity
	lastMsg    string
}

func (m *mockErrorLog) LogError(filterLevel sata.ErrSeverity, msg string) {
	m.lastErrSev = filterLevel
	m.lastErrMsg = msg
}

func (m *mockErrorLog) LogMessage(filterLevel sata.ErrSeverity, msg string) {
	m.lastMsgSev = filterLevel
	m.lastMsg = msg
}

func TestAttachPt(t *testing.T) {
	var pt AttachPt[ErrorLog]
	if pt.HasAttached() || pt.First() != nil {
		t.Errorf("expected no attachment initially")
	}

	logger := &mockErrorLog{}
	if err := pt.Attach(logger); err != sata.OK {
		t.Errorf("expected OK, got %v", err)
	}
	if !pt.HasAttached() {
		t.Errorf("expected attachment")
	}

	// attaching again fails
	logger2 := &mockErrorLog{}
	if err := pt.Attach(logger2); err != sata.ErrInvalidParamVal {
		t.Errorf("expected ErrInvalidParamVal, got %v", err)
	}

	if err := pt.Detach(); err != sata.OK {
		t.Errorf("expected OK, got %v", err)
	}
	if err := pt.Detach(); err != sata.ErrNotInit {
		t.Errorf("expected ErrNotInit, got %v", err)
	}

	if err := pt.ReplaceFirst(logger); err != sata.OK {
		t.Errorf("expected OK, got %v", err)
	}
	if err := pt.ReplaceFirst(logger2); err != sata.OK {
		t.Errorf("expected OK, got %v", err)
	}
	if pt.First() != logger2 {
		t.Errorf("expected logger2 to be attached")
	}
}

func TestComponentLogging(t *testing.T) {
	c := &Component{}
	c.InitComponent("RCON_TEST")

	if c.ComponentName() != "RCON_TEST" {
		t.Errorf("expected name RCON_TEST, got %s", c.ComponentName())
	}
	if c.ErrorLogLevel() != sata.ErrSevWarn {
		t.Errorf("default verbosity should be warn")
	}

	logger := &mockErrorLog{}
	c.ErrorLogAttachPt().Attach(logger)

	c.LogMessage(sata.ErrSevInfo, "filtered")
	if logger.lastMsg != "" {
		t.Errorf("info should be filtered at warn verbosity")
	}

	c.SetErrorLogLevel(sata.ErrSevDebug)
	c.LogMessagef(sata.ErrSevDebug, "tag %d", 4)
	if logger.lastMsg != "RCON_TEST: tag 4" || logger.lastMsgSev != sata.ErrSevDebug {
		t.Errorf("formatted message not passed, got %q", logger.lastMsg)
	}

	c.LogError(NewErrorMsg(sata.ErrSevError, sata.ErrNCQAbort, "abort"))
	if logger.lastErrSev != sata.ErrSevError {
		t.Errorf("log error failed to pass severity")
	}
	if !strings.Contains(logger.lastErrMsg, "SATA_ERR_NCQ_ABORT") {
		t.Errorf("log error message = %q", logger.lastErrMsg)
	}

	c.SetErrorLogLevel(sata.ErrSevNone)
	c.LogMessage(sata.ErrSevError, "Should not log")
	if logger.lastMsg == "RCON_TEST: Should not log" {
		t.Errorf("expected message to be filtered")
	}
}

func TestLoggerErrorLog(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := logcommon.NewStdLoggerWithWriter(&stdout, &stderr, logcommon.SeverityDebug)

	el := NewLoggerErrorLog(logger)
	el.LogMessage(sata.ErrSevWarn, "stale dma setup")
	el.LogError(sata.ErrSevError, "abort")

	if !strings.Contains(stdout.String(), "WARNING: ") || !strings.Contains(stdout.String(), "stale dma setup") {
		t.Errorf("warning not routed to stdout: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "abort") {
		t.Errorf("error not routed to stderr: %q", stderr.String())
	}

	// nil logger is tolerated
	NewLoggerErrorLog(nil).LogMessage(sata.ErrSevInfo, "dropped")
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		in   logcommon.Severity
		want sata.ErrSeverity
	}{
		{logcommon.SeverityDebug, sata.ErrSevDebug},
		{logcommon.SeverityInfo, sata.ErrSevInfo},
		{logcommon.SeverityWarning, sata.ErrSevWarn},
		{logcommon.SeverityError, sata.ErrSevError},
	}
	for _, tt := range tests {
		if got := SeverityFor(tt.in); got != tt.want {
			t.Errorf("SeverityFor(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
