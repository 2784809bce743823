package wpa

import (
	"sync"

	"github.com/go-errors/errors"
	"github.com/the-noise-box/noised/netman"
)

// check Driver compliance to the driver boundary during compile time
var _ netman.Driver = (*Driver)(nil)

type Config struct {
	Interface string
	Logger    Logger
}

type driverMode int

const (
	modeNone driverMode = iota
	modeAccessPoint
	modeStation
)

// Driver controls a single wireless interface through wpa_supplicant's
// D-Bus API. Station mode uses a regular network profile; access point mode
// uses a mode=2 profile on the same interface, so no separate hostapd is
// required.
//
// Address assignment is handled by whatever DHCP service runs next to the
// daemon, so this driver emits no IP scope events itself; handlers
// subscribed to the IP scope simply stay quiet.
type Driver struct {
	log    Logger
	wpa    *Wpa
	ifname string

	mu            sync.Mutex
	iface         *Interface
	network       *Network
	mode          driverMode
	announced     bool
	stations      map[string]bool
	stateClient   *StateClient
	stationClient *StationClient
	subs          map[uint32]*subscription
	nextSubId     uint32
}

// New connects to wpa_supplicant and prepares a driver for the given
// network interface.
func New(config *Config) (*Driver, error) {
	d := &Driver{
		wpa:      newWpa(),
		ifname:   config.Interface,
		stations: make(map[string]bool),
		subs:     make(map[uint32]*subscription),
	}

	if config.Logger != nil {
		d.log = config.Logger
	} else {
		d.log = noopLogger{}
	}

	if err := d.wpa.Start(); err != nil {
		return nil, errors.Errorf("could not start wpa: %v", err)
	}

	return d, nil
}

// Close releases the control connection.
func (d *Driver) Close() error {
	return d.wpa.Stop()
}

type subscription struct {
	driver *Driver
	id     uint32
	scope  netman.EventScope
	fn     netman.EventFunc
}

func (s *subscription) Cancel() error {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()

	if _, ok := s.driver.subs[s.id]; !ok {
		return errors.New("subscription is not registered")
	}

	delete(s.driver.subs, s.id)

	return nil
}

func (d *Driver) Subscribe(scope netman.EventScope, fn netman.EventFunc) (netman.Subscription, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sub := &subscription{
		driver: d,
		id:     d.nextSubId,
		scope:  scope,
		fn:     fn,
	}
	d.nextSubId++
	d.subs[sub.id] = sub

	return sub, nil
}

func (d *Driver) emit(event netman.Event) {
	d.mu.Lock()
	var fns []netman.EventFunc
	for _, sub := range d.subs {
		if sub.scope == event.Scope {
			fns = append(fns, sub.fn)
		}
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

// ifaceHandle is the interface ownership token handed to the state machine.
type ifaceHandle struct {
	driver *Driver
	name   string
}

func (h *ifaceHandle) Name() string {
	return h.name
}

func (h *ifaceHandle) Close() error {
	return h.driver.releaseInterface()
}

// acquireInterface resolves the wpa_supplicant interface object and starts
// the signal watchers feeding the event dispatch.
func (d *Driver) acquireInterface() (netman.Interface, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.iface != nil {
		return nil, errors.Errorf("interface %v is already in use", d.ifname)
	}

	iface, err := d.wpa.GetInterface(d.ifname)
	if err != nil {
		return nil, err
	}

	stateClient, err := iface.StateChanges()
	if err != nil {
		return nil, errors.Errorf("could not watch interface state: %v", err)
	}

	stationClient, err := iface.StationChanges()
	if err != nil {
		stateClient.Cancel()
		return nil, errors.Errorf("could not watch stations: %v", err)
	}

	d.iface = iface
	d.stateClient = stateClient
	d.stationClient = stationClient
	d.stations = make(map[string]bool)

	go d.dispatch(stateClient, stationClient)

	return &ifaceHandle{driver: d, name: d.ifname}, nil
}

func (d *Driver) releaseInterface() error {
	d.mu.Lock()
	stateClient := d.stateClient
	stationClient := d.stationClient
	d.iface = nil
	d.network = nil
	d.mode = modeNone
	d.stateClient = nil
	d.stationClient = nil
	d.mu.Unlock()

	if stateClient != nil {
		stateClient.Cancel()
	}
	if stationClient != nil {
		stationClient.Cancel()
	}

	return nil
}

// dispatch translates wpa_supplicant signals into driver events. It ends
// once both watcher channels are closed by releaseInterface.
func (d *Driver) dispatch(stateClient *StateClient, stationClient *StationClient) {
	states := stateClient.States
	authorized := stationClient.Authorized
	deauthorized := stationClient.Deauthorized

	for states != nil || authorized != nil || deauthorized != nil {
		select {
		case state, ok := <-states:
			if !ok {
				states = nil
				continue
			}

			d.handleState(state)

		case mac, ok := <-authorized:
			if !ok {
				authorized = nil
				continue
			}

			d.mu.Lock()
			d.stations[mac] = true
			d.mu.Unlock()

			d.emit(netman.Event{Scope: netman.ScopeLink, Kind: netman.APStationConnected, Mac: mac})

		case mac, ok := <-deauthorized:
			if !ok {
				deauthorized = nil
				continue
			}

			d.mu.Lock()
			delete(d.stations, mac)
			d.mu.Unlock()

			d.emit(netman.Event{Scope: netman.ScopeLink, Kind: netman.APStationDisconnected, Mac: mac})
		}
	}
}

func (d *Driver) handleState(state string) {
	d.mu.Lock()
	mode := d.mode
	announced := d.announced
	d.mu.Unlock()

	d.log.Debugf("Interface state changed to %v", state)

	switch state {
	case "completed":
		switch mode {
		case modeAccessPoint:
			if announced {
				return
			}

			d.mu.Lock()
			d.announced = true
			d.mu.Unlock()

			d.emit(netman.Event{Scope: netman.ScopeLink, Kind: netman.APStarted})
		case modeStation:
			d.emit(netman.Event{Scope: netman.ScopeLink, Kind: netman.StationConnected})
		}

	case "disconnected":
		if mode == modeStation {
			d.emit(netman.Event{Scope: netman.ScopeLink, Kind: netman.StationDisconnected})
		}
	}
}

func (d *Driver) CreateAccessPointInterface() (netman.Interface, error) {
	return d.acquireInterface()
}

func (d *Driver) CreateStationInterface() (netman.Interface, error) {
	return d.acquireInterface()
}

// channelFrequency converts a 2.4 GHz channel number to its center
// frequency in MHz, which is what wpa_supplicant expects for AP profiles.
func channelFrequency(channel int) int {
	if channel == 14 {
		return 2484
	}

	return 2407 + 5*channel
}

func (d *Driver) StartAccessPoint(config *netman.AccessPointConfig) error {
	d.mu.Lock()
	iface := d.iface
	d.mu.Unlock()

	if iface == nil {
		return errors.New("no interface acquired")
	}

	if err := iface.RemoveAllNetworks(); err != nil {
		d.log.Warnf("Could not remove stale networks: %v", err)
	}

	args := map[string]interface{}{
		"ssid":      config.Ssid,
		"mode":      int32(2),
		"frequency": int32(channelFrequency(config.Channel)),
	}

	if config.Psk != "" {
		args["key_mgmt"] = "WPA-PSK"
		args["psk"] = config.Psk
	} else {
		args["key_mgmt"] = "NONE"
	}

	network, err := iface.AddNetwork(args)
	if err != nil {
		return errors.Errorf("could not add access point network: %v", err)
	}

	d.mu.Lock()
	d.network = network
	d.mode = modeAccessPoint
	d.announced = false
	d.mu.Unlock()

	if err := iface.SelectNetwork(network); err != nil {
		return errors.Errorf("could not select access point network: %v", err)
	}

	return nil
}

// stationNetworkArgs translates a station configuration into a
// wpa_supplicant network profile. The minimum auth mode narrows the
// accepted protocols; wpa_supplicant offers no per-network signal
// threshold, so the minimum RSSI cannot be expressed here.
func stationNetworkArgs(config *netman.StationConfig) map[string]interface{} {
	args := map[string]interface{}{
		"ssid": config.Ssid,
	}

	if config.Psk != "" {
		args["psk"] = config.Psk
	} else {
		args["key_mgmt"] = "NONE"
	}

	switch config.MinimumAuth {
	case netman.AuthWpaPsk:
		args["key_mgmt"] = "WPA-PSK"
		args["proto"] = "WPA RSN"
	case netman.AuthWpa2Psk:
		args["key_mgmt"] = "WPA-PSK"
		args["proto"] = "RSN"
	}

	return args
}

func (d *Driver) StartStation(config *netman.StationConfig) error {
	d.mu.Lock()
	iface := d.iface
	d.mu.Unlock()

	if iface == nil {
		return errors.New("no interface acquired")
	}

	if err := iface.RemoveAllNetworks(); err != nil {
		d.log.Warnf("Could not remove stale networks: %v", err)
	}

	if config.MinimumRssi > netman.DefaultStationMinimumRssi {
		d.log.Warnf("A minimum RSSI of %d was requested, but wpa_supplicant "+
			"exposes no signal threshold, ignoring it", config.MinimumRssi)
	}

	network, err := iface.AddNetwork(stationNetworkArgs(config))
	if err != nil {
		return errors.Errorf("could not add station network: %v", err)
	}

	d.mu.Lock()
	d.network = network
	d.mode = modeStation
	d.announced = false
	d.mu.Unlock()

	// wpa_supplicant has no distinct "interface started" signal; the
	// profile being in place is the moment the interface is ready for
	// connect commands.
	go d.emit(netman.Event{Scope: netman.ScopeLink, Kind: netman.StationStarted})

	return nil
}

func (d *Driver) Connect() error {
	d.mu.Lock()
	iface := d.iface
	network := d.network
	d.mu.Unlock()

	if iface == nil || network == nil {
		return errors.New("no network configured")
	}

	if err := iface.SelectNetwork(network); err != nil {
		return errors.Errorf("could not connect: %v", err)
	}

	return nil
}

func (d *Driver) Stop() error {
	d.mu.Lock()
	iface := d.iface
	d.mu.Unlock()

	if iface == nil {
		return nil
	}

	if err := iface.Disconnect(); err != nil {
		d.log.Debugf("Disconnect failed: %v", err)
	}

	if err := iface.RemoveAllNetworks(); err != nil {
		return errors.Errorf("could not remove networks: %v", err)
	}

	return nil
}

// ConnectedStations reports the clients currently authorized with the
// access point, tracked from wpa_supplicant's StaAuthorized and
// StaDeauthorized signals.
func (d *Driver) ConnectedStations() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.stations), nil
}
