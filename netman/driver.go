package netman

import (
	"net"
)

// EventScope separates the two event channels of a driver: link-layer events
// of the wireless medium and IP-layer events of the network stack.
type EventScope int

const (
	ScopeLink EventScope = iota
	ScopeIP
)

func (s EventScope) String() string {
	switch s {
	case ScopeLink:
		return "LINK"
	case ScopeIP:
		return "IP"
	default:
		return "INVALID SCOPE"
	}
}

// EventKind identifies a single asynchronous driver occurrence.
type EventKind int

const (
	APStarted EventKind = iota
	APStopped
	APStationConnected
	APStationDisconnected
	APStationIPAssigned
	StationStarted
	StationStopped
	StationConnected
	StationDisconnected
	StationIPAssigned
)

func (k EventKind) String() string {
	switch k {
	case APStarted:
		return "AP_STARTED"
	case APStopped:
		return "AP_STOPPED"
	case APStationConnected:
		return "AP_STATION_CONNECTED"
	case APStationDisconnected:
		return "AP_STATION_DISCONNECTED"
	case APStationIPAssigned:
		return "AP_STATION_IP_ASSIGNED"
	case StationStarted:
		return "STATION_STARTED"
	case StationStopped:
		return "STATION_STOPPED"
	case StationConnected:
		return "STATION_CONNECTED"
	case StationDisconnected:
		return "STATION_DISCONNECTED"
	case StationIPAssigned:
		return "STATION_IP_ASSIGNED"
	default:
		return "INVALID EVENT"
	}
}

// Event is a single asynchronous driver occurrence. Handlers run on a
// goroutine owned by the driver and must return quickly without blocking.
type Event struct {
	Scope EventScope
	Kind  EventKind
	Mac   string
	IP    net.IP
}

// EventFunc handles a driver event.
type EventFunc func(event Event)

// Subscription is the ownership token of a registered event handler.
// Cancelling it unregisters the handler; teardown has to cancel every
// subscription it holds.
type Subscription interface {
	Cancel() error
}

// Interface is the handle to an active network interface of the driver.
type Interface interface {
	Name() string
	Close() error
}

// AuthMode is the authentication mode of a wireless network.
type AuthMode int

const (
	AuthOpen AuthMode = iota
	AuthWep
	AuthWpaPsk
	AuthWpa2Psk
)

func (a AuthMode) String() string {
	switch a {
	case AuthOpen:
		return "OPEN"
	case AuthWep:
		return "WEP"
	case AuthWpaPsk:
		return "WPA_PSK"
	case AuthWpa2Psk:
		return "WPA2_PSK"
	default:
		return "INVALID AUTH MODE"
	}
}

// AccessPointConfig is the configuration applied when starting access point
// mode. An empty Psk starts an open, unauthenticated network.
type AccessPointConfig struct {
	Ssid       string
	Psk        string
	Channel    int
	MaxClients int
}

// StationConfig is the configuration applied when starting station mode.
type StationConfig struct {
	Ssid        string
	Psk         string
	MinimumRssi int
	MinimumAuth AuthMode
}

// Driver is the boundary to the actual wireless hardware or supplicant.
//
// All mode commands are fire-and-command: a nil return only means the
// command could be issued, the actual outcome is reported later through the
// subscribed event handlers.
type Driver interface {
	// CreateAccessPointInterface creates the network interface for access
	// point mode.
	CreateAccessPointInterface() (Interface, error)

	// CreateStationInterface creates the network interface for station mode.
	CreateStationInterface() (Interface, error)

	// StartAccessPoint applies the configuration and brings the interface up
	// in access point mode. Success is reported with an APStarted event.
	StartAccessPoint(config *AccessPointConfig) error

	// StartStation applies the configuration and brings the interface up in
	// station mode. Success is reported with a StationStarted event.
	StartStation(config *StationConfig) error

	// Connect attempts to join the configured network in station mode. The
	// outcome is reported with a StationConnected or StationDisconnected
	// event.
	Connect() error

	// Stop brings the currently active interface down.
	Stop() error

	// ConnectedStations reports the number of clients currently connected to
	// the access point, queried live from the driver.
	ConnectedStations() (int, error)

	// Subscribe registers a handler for all events of the given scope.
	Subscribe(scope EventScope, fn EventFunc) (Subscription, error)
}
