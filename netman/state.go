package netman

import (
	"sync/atomic"
)

// Medium is the physical transport of the active connection. Wired support
// is reserved but not implemented.
type Medium int32

const (
	MediumUnspecified Medium = iota
	MediumEthernet
	MediumWireless
)

func (m Medium) String() string {
	switch m {
	case MediumUnspecified:
		return "UNSPECIFIED"
	case MediumEthernet:
		return "ETHERNET"
	case MediumWireless:
		return "WIRELESS"
	default:
		return "INVALID MEDIUM"
	}
}

// Mode is the wireless operating role. ModeNotApplicable is both the initial
// and the fully torn down state.
type Mode int32

const (
	ModeNotApplicable Mode = iota
	ModeAccessPoint
	ModeStation
)

func (m Mode) String() string {
	switch m {
	case ModeNotApplicable:
		return "NOT APPLICABLE"
	case ModeAccessPoint:
		return "ACCESS POINT"
	case ModeStation:
		return "STATION"
	default:
		return "INVALID MODE"
	}
}

// Status is the fine-grained connectivity state. It has to be interpreted in
// the context of the current mode.
type Status int32

const (
	StatusDown Status = iota
	StatusConnecting
	StatusReady
	StatusIdle
	StatusBusy
)

func (s Status) String() string {
	switch s {
	case StatusDown:
		return "DOWN"
	case StatusConnecting:
		return "CONNECTING"
	case StatusReady:
		return "READY"
	case StatusIdle:
		return "IDLE"
	case StatusBusy:
		return "BUSY"
	default:
		return "INVALID STATUS"
	}
}

// Snapshot is a point-in-time copy of the externally visible connectivity
// state.
type Snapshot struct {
	Medium Medium `json:"medium"`
	Mode   Mode   `json:"mode"`
	Status Status `json:"status"`
}

// mediumState is the mode-specific auxiliary state. The active arm always
// matches the current mode; switching modes destroys the old arm and
// constructs the new one.
type mediumState interface {
	destroy()
}

// apState is the auxiliary state of access point mode.
type apState struct {
	shutdownTimer *apTimer
}

func (s *apState) destroy() {
	if s.shutdownTimer != nil {
		s.shutdownTimer.stop()
		s.shutdownTimer = nil
	}
}

var _ mediumState = (*apState)(nil)

// staState is the auxiliary state of station mode.
type staState struct {
	connectionAttempts int
}

func (s *staState) destroy() {}

var _ mediumState = (*staState)(nil)

// state is the single source of truth of the connectivity subsystem. It is
// created by Start, exclusively mutated by the worker and destroyed as a
// unit during teardown.
//
// The three enum fields are read and written atomically so that other
// goroutines may take best-effort peeks (status snapshots, the idle timer's
// race guard) without a lock. The pointer fields are only ever touched by
// the worker.
type state struct {
	medium atomic.Int32
	mode   atomic.Int32
	status atomic.Int32

	iface   Interface
	medSt   mediumState
	ipSub   Subscription
	linkSub Subscription
}

func newState() *state {
	return &state{}
}

func (s *state) Medium() Medium {
	return Medium(s.medium.Load())
}

func (s *state) Mode() Mode {
	return Mode(s.mode.Load())
}

func (s *state) Status() Status {
	return Status(s.status.Load())
}

func (s *state) setMediumWireless() {
	s.medium.Store(int32(MediumWireless))
}

func (s *state) clearMedium() {
	s.medium.Store(int32(MediumUnspecified))
}

func (s *state) isMediumWireless() bool {
	return s.Medium() == MediumWireless
}

func (s *state) setModeAccessPoint() {
	s.mode.Store(int32(ModeAccessPoint))
}

func (s *state) setModeStation() {
	s.mode.Store(int32(ModeStation))
}

func (s *state) clearMode() {
	s.mode.Store(int32(ModeNotApplicable))
}

func (s *state) isModeSet() bool {
	return s.Mode() != ModeNotApplicable
}

func (s *state) isModeAccessPoint() bool {
	return s.Mode() == ModeAccessPoint
}

func (s *state) isModeStation() bool {
	return s.Mode() == ModeStation
}

func (s *state) setStatus(status Status) {
	s.status.Store(int32(status))
}

func (s *state) isStatusIdle() bool {
	return s.Status() == StatusIdle
}

// ap returns the access point arm of the medium state, or nil if the current
// mode is not access point.
func (s *state) ap() *apState {
	ap, ok := s.medSt.(*apState)
	if !ok {
		return nil
	}

	return ap
}

// sta returns the station arm of the medium state, or nil if the current
// mode is not station.
func (s *state) sta() *staState {
	sta, ok := s.medSt.(*staState)
	if !ok {
		return nil
	}

	return sta
}
