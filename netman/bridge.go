package netman

// handleDriverEvent translates asynchronous driver events into worker
// notifications. It runs on a goroutine owned by the driver: it never
// blocks and never touches the connectivity state, it only posts to the
// mailbox. Events outside the worker's vocabulary are logged and dropped.
func (m *Manager) handleDriverEvent(event Event) {
	switch event.Scope {
	case ScopeLink:
		switch event.Kind {
		case APStarted:
			m.notify(NotificationWifiAPStart)
		case APStationConnected:
			m.notify(NotificationWifiAPStationConnected)
		case APStationDisconnected:
			m.notify(NotificationWifiAPStationDisconnected)
		case StationStarted:
			m.notify(NotificationWifiStationStart)
		case StationConnected:
			m.notify(NotificationWifiStationConnected)
		case StationDisconnected:
			// The driver reports the same event whether the credentials were
			// rejected, the network is unreachable or an established
			// connection got disrupted.
			m.notify(NotificationWifiStationDisconnected)
		default:
			m.log.Debugf("Got unhandled link event: %v", event.Kind)
		}

	case ScopeIP:
		switch event.Kind {
		case APStationIPAssigned:
			// Logged here because the driver's own address logging is
			// silenced.
			m.log.Infof("Station %v connected, %v assigned", event.Mac, event.IP)
		default:
			m.log.Debugf("Got unhandled IP event: %v", event.Kind)
		}
	}
}
