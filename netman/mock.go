package netman

import (
	"fmt"
	"net"
	"sync"

	"github.com/go-errors/errors"
)

// MockDriver fakes the wireless medium for development and testing. Mode
// commands succeed unless the corresponding Fail flag is set, and the
// matching driver events are emitted asynchronously the way real hardware
// would report them. Clients joining and leaving the access point are
// simulated with ConnectStation and DisconnectStation.
type MockDriver struct {
	// FailAccessPointInterface makes CreateAccessPointInterface fail.
	FailAccessPointInterface bool

	// FailStationInterface makes CreateStationInterface fail.
	FailStationInterface bool

	// FailStartAccessPoint makes StartAccessPoint fail synchronously.
	FailStartAccessPoint bool

	// FailStartStation makes StartStation fail synchronously.
	FailStartStation bool

	// ConnectSucceeds selects the event a Connect command resolves to:
	// StationConnected when true, StationDisconnected when false.
	ConnectSucceeds bool

	mu           sync.Mutex
	subs         map[uint32]*mockSubscription
	nextSubId    uint32
	stations     int
	apConfig     *AccessPointConfig
	staConfig    *StationConfig
	connectCount int
}

// NewMockDriver creates a mock driver whose connect commands succeed.
func NewMockDriver() *MockDriver {
	return &MockDriver{
		ConnectSucceeds: true,
		subs:            make(map[uint32]*mockSubscription),
	}
}

type mockSubscription struct {
	driver *MockDriver
	id     uint32
	scope  EventScope
	fn     EventFunc
}

func (s *mockSubscription) Cancel() error {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()

	if _, ok := s.driver.subs[s.id]; !ok {
		return errors.New("subscription is not registered")
	}

	delete(s.driver.subs, s.id)

	return nil
}

type mockInterface struct {
	name string
}

func (i *mockInterface) Name() string {
	return i.name
}

func (i *mockInterface) Close() error {
	return nil
}

var _ Driver = (*MockDriver)(nil)

func (d *MockDriver) CreateAccessPointInterface() (Interface, error) {
	if d.FailAccessPointInterface {
		return nil, errors.New("no access point interface available")
	}

	return &mockInterface{name: "mock-ap0"}, nil
}

func (d *MockDriver) CreateStationInterface() (Interface, error) {
	if d.FailStationInterface {
		return nil, errors.New("no station interface available")
	}

	return &mockInterface{name: "mock-wlan0"}, nil
}

func (d *MockDriver) StartAccessPoint(config *AccessPointConfig) error {
	if d.FailStartAccessPoint {
		return errors.New("could not start access point")
	}

	d.mu.Lock()
	d.apConfig = config
	d.stations = 0
	d.mu.Unlock()

	go d.Emit(Event{Scope: ScopeLink, Kind: APStarted})

	return nil
}

func (d *MockDriver) StartStation(config *StationConfig) error {
	if d.FailStartStation {
		return errors.New("could not start station")
	}

	d.mu.Lock()
	d.staConfig = config
	d.mu.Unlock()

	go d.Emit(Event{Scope: ScopeLink, Kind: StationStarted})

	return nil
}

func (d *MockDriver) Connect() error {
	d.mu.Lock()
	d.connectCount++
	succeeds := d.ConnectSucceeds
	d.mu.Unlock()

	if succeeds {
		go d.Emit(Event{Scope: ScopeLink, Kind: StationConnected})
	} else {
		go d.Emit(Event{Scope: ScopeLink, Kind: StationDisconnected})
	}

	return nil
}

func (d *MockDriver) Stop() error {
	return nil
}

func (d *MockDriver) ConnectedStations() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.stations, nil
}

func (d *MockDriver) Subscribe(scope EventScope, fn EventFunc) (Subscription, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.subs == nil {
		d.subs = make(map[uint32]*mockSubscription)
	}

	sub := &mockSubscription{
		driver: d,
		id:     d.nextSubId,
		scope:  scope,
		fn:     fn,
	}
	d.nextSubId++
	d.subs[sub.id] = sub

	return sub, nil
}

// Emit delivers an event to all handlers subscribed to its scope.
func (d *MockDriver) Emit(event Event) {
	d.mu.Lock()
	var fns []EventFunc
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

// ConnectStation simulates a client joining the access point, including the
// address assignment the network stack would report.
func (d *MockDriver) ConnectStation() {
	d.mu.Lock()
	d.stations++
	station := d.stations
	d.mu.Unlock()

	mac := fmt.Sprintf("02:00:00:00:00:%02x", station)

	d.Emit(Event{Scope: ScopeLink, Kind: APStationConnected, Mac: mac})
	d.Emit(Event{
		Scope: ScopeIP,
		Kind:  APStationIPAssigned,
		Mac:   mac,
		IP:    net.IPv4(192, 168, 4, byte(station+1)),
	})
}

// DisconnectStation simulates a client leaving the access point.
func (d *MockDriver) DisconnectStation() {
	d.mu.Lock()
	if d.stations > 0 {
		d.stations--
	}
	mac := fmt.Sprintf("02:00:00:00:00:%02x", d.stations+1)
	d.mu.Unlock()

	d.Emit(Event{Scope: ScopeLink, Kind: APStationDisconnected, Mac: mac})
}

// SetConnectSucceeds switches the outcome of subsequent Connect commands.
func (d *MockDriver) SetConnectSucceeds(succeeds bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ConnectSucceeds = succeeds
}

// ConnectCount reports how many connect commands have been issued.
func (d *MockDriver) ConnectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.connectCount
}

// ActiveSubscriptions reports how many event handlers are still registered.
func (d *MockDriver) ActiveSubscriptions() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.subs)
}

// AccessPointConfig returns the configuration of the last StartAccessPoint
// command.
func (d *MockDriver) AccessPointConfig() *AccessPointConfig {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.apConfig
}

// StationConfig returns the configuration of the last StartStation command.
func (d *MockDriver) StationConfig() *StationConfig {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.staConfig
}
