package netman

// run is the worker: a dedicated goroutine that blocks on the mailbox with a
// bounded timeout and processes one notification at a time. It is the only
// goroutine that mutates the connectivity state. It returns once a full
// teardown completed.
func (m *Manager) run(st *state, box *mailbox) {
	for {
		n, ok := box.wait(m.monitorFrequency)
		if !ok {
			// Reserved for periodic status publication. For now the timeout
			// only keeps the blocking wait bounded.
			m.log.Debugf("Monitor frequency reached")
			continue
		}

		if m.handle(st, n) {
			return
		}
	}
}

// handle executes the transition table for a single notification. It
// returns true once the subsystem completed a full teardown and the worker
// has to exit.
func (m *Manager) handle(st *state, n Notification) bool {
	switch n {
	case NotificationCmdNetworkingStop:
		m.log.Debugf("CMD: networking stop")

		// Emit the update before actually shutting down, giving other
		// components some time to handle the unavailability.
		m.emit(Unavailable)
		m.teardown(st)

		return true

	case NotificationCmdWifiStart:
		m.log.Debugf("CMD: wifi start")

		if err := m.wifiStart(st); err != nil {
			m.log.Errorf("Could not start wifi: %v", err)
			m.notify(NotificationCmdNetworkingStop)
		}

	case NotificationCmdWifiRestart:
		m.log.Debugf("CMD: wifi restart")

		m.emit(Unavailable)

		m.wifiTeardown(st)
		if err := m.wifiStart(st); err != nil {
			m.log.Errorf("Could not restart wifi: %v", err)
			m.notify(NotificationCmdNetworkingStop)
		}

	case NotificationWifiAPStart:
		// The access point is up. No clients have connected yet, so the
		// subsystem is idle and the shutdown countdown begins.
		m.log.Debugf("EVENT: wifi access point started")

		st.setStatus(StatusIdle)
		m.apTimerStart(st)

		m.emit(Ready)

	case NotificationWifiAPStationConnected:
		// A client connected to the access point. It might be consuming the
		// web interface, so the access point has to be kept running.
		m.log.Debugf("EVENT: client connected to the access point")

		st.setStatus(StatusBusy)
		m.apTimerStop(st)

	case NotificationWifiAPStationDisconnected:
		m.log.Debugf("EVENT: client disconnected from the access point")

		connected, err := m.driver.ConnectedStations()
		if err != nil {
			m.log.Warnf("Could not determine number of connected stations: %v", err)
			break
		}

		if connected == 0 {
			st.setStatus(StatusIdle)

			m.log.Debugf("No more stations connected, restarting shutdown timer")
			m.apTimerStart(st)
		}

	case NotificationWifiStationStart:
		m.log.Debugf("EVENT: wifi station interface started")

		st.setStatus(StatusConnecting)
		m.staConnect(st)

	case NotificationWifiStationConnected:
		m.log.Debugf("EVENT: wifi station connected")

		st.setStatus(StatusReady)
		m.staResetConnectionAttempts(st)

		m.emit(Ready)

	case NotificationWifiStationDisconnected:
		m.log.Debugf("EVENT: wifi station disconnected")

		// The counter counts issued connect commands, so the bound permits
		// maxConnectionAttempts retries after the initial attempt.
		if m.staConnectionAttempts(st) > m.maxConnectionAttempts {
			m.staTeardown(st)
			if err := m.apSetup(st); err != nil {
				m.log.Errorf("Could not fall back to access point mode: %v", err)
				m.notify(NotificationCmdNetworkingStop)
			}
		} else {
			m.log.Infof("Got disconnected, trying to reconnect (%d/%d)",
				m.staConnectionAttempts(st), m.maxConnectionAttempts)
			m.staConnect(st)
		}

	default:
		m.log.Warnf("Got unhandled notification: %v (%d)", n, n)
	}

	return false
}

// teardown destroys the whole activation cycle: wireless teardown,
// unregistering the IP event handler and releasing the connectivity state.
// All steps are best-effort; failures are logged and teardown continues.
func (m *Manager) teardown(st *state) {
	if st.isMediumWireless() {
		m.wifiTeardown(st)
	}

	if st.ipSub != nil {
		if err := st.ipSub.Cancel(); err != nil {
			m.log.Errorf("Could not unregister IP event handler: %v", err)
			m.log.Warnf("Continuing with teardown...")
		}
		st.ipSub = nil
	}

	st.setStatus(StatusDown)

	m.mu.Lock()
	m.st = nil
	m.box = nil
	close(m.done)
	m.done = nil
	m.mu.Unlock()

	m.log.Infof("Networking torn down")
}
