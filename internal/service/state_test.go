package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStateString(t *testing.T) {
	tests := []struct {
		state RunState
		want  string
	}{
		{StartPending, "START_PENDING"},
		{Running, "RUNNING"},
		{StopPending, "STOP_PENDING"},
		{Stopped, "STOPPED"},
		{RunState(0), "UNKNOWN(0)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestStateRecordReportsTransitions(t *testing.T) {
	var got []Status
	r := &stateRecord{reporter: ReporterFunc(func(s Status) { got = append(got, s) })}

	assert.True(t, r.set(StartPending, 0))
	assert.True(t, r.set(Running, 0))
	assert.True(t, r.set(StopPending, 0))
	assert.True(t, r.set(Stopped, 0))

	assert.Equal(t, []Status{{StartPending, 0}, {Running, 0}, {StopPending, 0}, {Stopped, 0}}, got)
}

func TestStateRecordRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		path []RunState
		to   RunState
	}{
		{"running before start pending", nil, Running},
		{"back to running from stop pending", []RunState{StartPending, StopPending}, Running},
		{"leave stopped", []RunState{StartPending, Stopped}, StartPending},
		{"stop pending twice", []RunState{StartPending, StopPending}, StopPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			r := &stateRecord{reporter: ReporterFunc(func(Status) { calls++ })}
			for _, s := range tt.path {
				r.set(s, 0)
			}
			before := calls
			assert.False(t, r.set(tt.to, 0))
			assert.Equal(t, before, calls, "rejected transition must not be reported")
		})
	}
}

func TestStateRecordExitCode(t *testing.T) {
	r := &stateRecord{}
	r.set(StartPending, 0)
	r.set(Stopped, 3)
	assert.Equal(t, Status{State: Stopped, ExitCode: 3}, r.get())
}

func TestReportCurrent(t *testing.T) {
	var got []Status
	r := &stateRecord{reporter: ReporterFunc(func(s Status) { got = append(got, s) })}

	r.reportCurrent()
	assert.Empty(t, got, "nothing to report before the first transition")

	r.set(StartPending, 0)
	r.reportCurrent()
	assert.Equal(t, []Status{{StartPending, 0}, {StartPending, 0}}, got)
}
