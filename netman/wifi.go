package netman

import (
	"sync"
	"time"

	"github.com/go-errors/errors"
)

// minimumAPPskLen is the shortest pre-shared key accepted for the access
// point. A shorter key falls back to an open network.
const minimumAPPskLen = 8

// apTimer is the restartable one-shot countdown that eventually shuts down
// an unused access point. Arming and disarming happen on the worker, the
// callback fires on a timer goroutine.
type apTimer struct {
	mu       sync.Mutex
	lifetime time.Duration
	fn       func()
	timer    *time.Timer
	armed    bool
}

func newAPTimer(lifetime time.Duration, fn func()) *apTimer {
	return &apTimer{
		lifetime: lifetime,
		fn:       fn,
	}
}

// start arms the countdown. It reports false if the timer is already
// running.
func (t *apTimer) start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.armed {
		return false
	}

	t.armed = true
	t.timer = time.AfterFunc(t.lifetime, func() {
		t.mu.Lock()
		t.armed = false
		t.mu.Unlock()

		t.fn()
	})

	return true
}

// stop disarms the countdown. It reports false if the timer is not running.
func (t *apTimer) stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed {
		return false
	}

	t.armed = false
	t.timer.Stop()

	return true
}

func (t *apTimer) isArmed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.armed
}

// wifiStart brings the wireless medium up, preferring station mode with the
// stored credentials and falling back to access point mode. On failure the
// wireless medium is fully torn down again before the error is returned.
func (m *Manager) wifiStart(st *state) error {
	if err := m.wifiSetup(st); err != nil {
		m.wifiTeardown(st)
		return err
	}

	return nil
}

// wifiSetup performs the medium-wide initialization: registering the
// link-layer event handler and dispatching into the mode-specific setup. A
// missing or unreadable station configuration is not an error, it selects
// access point mode.
func (m *Manager) wifiSetup(st *state) error {
	if st.isModeSet() {
		m.log.Warnf("Wifi seems to be already initialized")
		return nil
	}

	st.setMediumWireless()

	linkSub, err := m.driver.Subscribe(ScopeLink, m.handleDriverEvent)
	if err != nil {
		return errors.Errorf("could not attach link event handler: %v", err)
	}
	st.linkSub = linkSub

	connection, err := m.credentials.GetWifiConnection()
	if err != nil {
		m.log.Warnf("Could not read stored credentials: %v", err)
	}

	if connection == nil {
		m.log.Infof("No station credentials available, starting access point")
		return m.apSetup(st)
	}

	m.log.Debugf("Retrieved credentials for %v", connection.Ssid)

	if err := m.staSetup(st, connection); err != nil {
		m.log.Errorf("Could not start wifi station mode: %v", err)
		m.log.Infof("Starting access point")

		m.staTeardown(st)
		return m.apSetup(st)
	}

	// The wifi is started in station mode at this point. All further actions
	// are triggered by driver events.
	return nil
}

// wifiTeardown reverses wifiSetup: it unregisters the link-layer event
// handler, checks the result, and runs the mode-specific teardown. Failures
// are logged and teardown continues.
func (m *Manager) wifiTeardown(st *state) {
	if st.linkSub != nil {
		if err := st.linkSub.Cancel(); err != nil {
			m.log.Errorf("Could not unregister link event handler: %v", err)
			m.log.Warnf("Continuing with teardown...")
		}
		st.linkSub = nil
	}

	if st.isModeAccessPoint() {
		m.apTeardown(st)
	}

	if st.isModeStation() {
		m.staTeardown(st)
	}

	st.clearMedium()
}

// apSetup initializes access point mode: interface, shutdown timer and the
// driver configuration. Success of the actual startup is reported later
// with an APStarted driver event.
func (m *Manager) apSetup(st *state) error {
	iface, err := m.driver.CreateAccessPointInterface()
	if err != nil {
		return errors.Errorf("could not create network interface for access point mode: %v", err)
	}
	st.iface = iface

	st.medSt = &apState{
		shutdownTimer: newAPTimer(m.apLifetime, m.apTimedShutdown),
	}
	st.setModeAccessPoint()

	config := &AccessPointConfig{
		Ssid:       m.apSsid,
		Psk:        m.apPsk,
		Channel:    m.apChannel,
		MaxClients: m.apMaxClients,
	}

	if len(config.Psk) < minimumAPPskLen {
		m.log.Warnf("The provided access point PSK has less than %d characters, "+
			"switching to an open network. No password will be required to connect.",
			minimumAPPskLen)
		config.Psk = ""
	}

	if err := m.driver.StartAccessPoint(config); err != nil {
		return errors.Errorf("could not start wifi in access point mode: %v", err)
	}

	return nil
}

// apTeardown reverses apSetup. All steps are best-effort.
func (m *Manager) apTeardown(st *state) {
	if !st.isModeSet() {
		m.log.Warnf("Wifi is not initialized, continuing with teardown...")
	}

	if err := m.driver.Stop(); err != nil {
		m.log.Errorf("Could not stop wifi (access point mode): %v", err)
		m.log.Warnf("Continuing with teardown...")
	}

	if st.iface != nil {
		if err := st.iface.Close(); err != nil {
			m.log.Errorf("Could not destroy the access point interface: %v", err)
		}
		st.iface = nil
	}

	if st.medSt != nil {
		st.medSt.destroy()
		st.medSt = nil
	}

	st.clearMode()
}

// apTimedShutdown runs on the timer goroutine once the access point has
// been idle for the configured lifetime. The status check is a best-effort
// guard against a client having connected between the timer firing and this
// callback running; the worker stays the only mutator of the state.
func (m *Manager) apTimedShutdown() {
	if m.Status().Status != StatusIdle {
		m.log.Warnf("Access point is not idle, skipping shutdown")
		return
	}

	// Request the uniform full teardown path instead of just disabling the
	// access point interface.
	m.notify(NotificationCmdNetworkingStop)
}

func (m *Manager) apTimerStart(st *state) {
	ap := st.ap()
	if ap == nil || ap.shutdownTimer == nil {
		m.log.Warnf("The access point shutdown timer is not available")
		return
	}

	if !ap.shutdownTimer.start() {
		m.log.Warnf("The access point shutdown timer is already running")
		return
	}

	m.log.Debugf("Access point shutdown timer started")
}

func (m *Manager) apTimerStop(st *state) {
	ap := st.ap()
	if ap == nil || ap.shutdownTimer == nil {
		m.log.Warnf("The access point shutdown timer is not available")
		return
	}

	if !ap.shutdownTimer.stop() {
		m.log.Warnf("The access point shutdown timer is not running")
		return
	}

	m.log.Debugf("Access point shutdown timer stopped")
}

// staSetup initializes station mode with the given credentials. Success of
// the actual startup is reported later with a StationStarted driver event.
func (m *Manager) staSetup(st *state, connection *WifiConnection) error {
	iface, err := m.driver.CreateStationInterface()
	if err != nil {
		return errors.Errorf("could not create network interface for station mode: %v", err)
	}
	st.iface = iface

	st.medSt = &staState{}
	st.setModeStation()

	config := &StationConfig{
		Ssid:        connection.Ssid,
		Psk:         connection.Psk,
		MinimumRssi: m.stationMinimumRssi,
		MinimumAuth: m.stationMinimumAuth,
	}

	if err := m.driver.StartStation(config); err != nil {
		return errors.Errorf("could not start wifi in station mode: %v", err)
	}

	return nil
}

// staTeardown reverses staSetup. All steps are best-effort.
func (m *Manager) staTeardown(st *state) {
	if !st.isModeSet() {
		m.log.Warnf("Wifi is not initialized, continuing with teardown...")
	}

	if err := m.driver.Stop(); err != nil {
		m.log.Errorf("Could not stop wifi (station mode): %v", err)
		m.log.Warnf("Continuing with teardown...")
	}

	if st.iface != nil {
		if err := st.iface.Close(); err != nil {
			m.log.Errorf("Could not destroy the station interface: %v", err)
		}
		st.iface = nil
	}

	if st.medSt != nil {
		st.medSt.destroy()
		st.medSt = nil
	}

	st.clearMode()
}

// staConnect issues a connect command and counts the attempt. The outcome
// arrives as a StationConnected or StationDisconnected driver event.
func (m *Manager) staConnect(st *state) {
	sta := st.sta()
	if sta == nil {
		m.log.Warnf("No station state available, not connecting")
		return
	}

	sta.connectionAttempts++

	if err := m.driver.Connect(); err != nil {
		m.log.Errorf("Connect command failed: %v", err)
	}
}

func (m *Manager) staConnectionAttempts(st *state) int {
	sta := st.sta()
	if sta == nil {
		m.log.Warnf("No station state available")
		return 0
	}

	return sta.connectionAttempts
}

func (m *Manager) staResetConnectionAttempts(st *state) {
	sta := st.sta()
	if sta == nil {
		m.log.Warnf("No station state available")
		return
	}

	sta.connectionAttempts = 0
}
