package netman

import (
	"sync"
	"time"

	"github.com/go-errors/errors"
)

// Default values of the tunable configuration surface. They can be
// overridden through Config.
const (
	DefaultAPSsid                = "noisebox"
	DefaultAPChannel             = 5
	DefaultAPMaxClients          = 3
	DefaultAPLifetime            = 120 * time.Second
	DefaultStationMinimumRssi    = -127
	DefaultMaxConnectionAttempts = 3
	DefaultMonitorFrequency      = 5 * time.Second
)

// Update is a connectivity lifecycle event emitted to subscribers. Ready
// means connectivity, access point or station, is usable. Unavailable means
// connectivity is about to go down.
type Update int

const (
	Unavailable Update = iota
	Ready
)

func (u Update) String() string {
	switch u {
	case Unavailable:
		return "UNAVAILABLE"
	case Ready:
		return "READY"
	default:
		return "INVALID UPDATE"
	}
}

// updateChanSize is the buffer of a subscriber's update channel. Delivery is
// fire-and-forget: an update to a client with a full buffer is dropped.
const updateChanSize = 4

// Client receives connectivity updates through Updates until it is
// cancelled.
type Client struct {
	Updates    chan Update
	Id         uint32
	cancelChan chan struct{}
	manager    *Manager
}

// Cancel removes the client from the manager's subscriber list.
func (c *Client) Cancel() {
	c.manager.clientMtx.Lock()
	delete(c.manager.clients, c.Id)
	c.manager.clientMtx.Unlock()

	close(c.cancelChan)
}

// WifiConnection holds the stored credentials of the network to join in
// station mode.
type WifiConnection struct {
	Ssid string
	Psk  string
}

// CredentialStore is the boundary to the non-volatile credential storage.
// GetWifiConnection returns nil without an error when no credentials are
// stored.
type CredentialStore interface {
	GetWifiConnection() (*WifiConnection, error)
	SetWifiConnection(connection *WifiConnection) error
}

// Config configures a Manager. Driver and Credentials are mandatory, the
// zero value of every tunable falls back to its default.
type Config struct {
	Driver      Driver
	Credentials CredentialStore
	Logger      Logger

	APSsid       string
	APPsk        string
	APChannel    int
	APMaxClients int

	// APLifetime is how long an unused access point is kept alive before the
	// subsystem shuts itself down.
	APLifetime time.Duration

	StationMinimumRssi int
	StationMinimumAuth AuthMode

	// MaxConnectionAttempts bounds the immediate reconnection attempts in
	// station mode before falling back to access point mode.
	MaxConnectionAttempts int

	// MonitorFrequency bounds the worker's blocking wait on its mailbox.
	MonitorFrequency time.Duration
}

// Manager owns the connectivity state machine. A single worker goroutine
// consumes commands and driver events one at a time and is the only mutator
// of the connectivity state. All other goroutines communicate with it
// exclusively through the single-slot notification mailbox.
type Manager struct {
	driver      Driver
	credentials CredentialStore
	log         Logger

	apSsid       string
	apPsk        string
	apChannel    int
	apMaxClients int
	apLifetime   time.Duration

	stationMinimumRssi int
	stationMinimumAuth AuthMode

	maxConnectionAttempts int
	monitorFrequency      time.Duration

	// mu guards the activation cycle: st, box and done are set by Start and
	// cleared by the worker during full teardown.
	mu   sync.Mutex
	st   *state
	box  *mailbox
	done chan struct{}

	clientMtx    sync.Mutex
	clients      map[uint32]*Client
	nextClientId uint32
}

// New creates a connectivity manager. The subsystem stays down until Start
// is called.
func New(config *Config) *Manager {
	m := &Manager{
		driver:                config.Driver,
		credentials:           config.Credentials,
		apSsid:                config.APSsid,
		apPsk:                 config.APPsk,
		apChannel:             config.APChannel,
		apMaxClients:          config.APMaxClients,
		apLifetime:            config.APLifetime,
		stationMinimumRssi:    config.StationMinimumRssi,
		stationMinimumAuth:    config.StationMinimumAuth,
		maxConnectionAttempts: config.MaxConnectionAttempts,
		monitorFrequency:      config.MonitorFrequency,
		clients:               make(map[uint32]*Client),
	}

	if config.Logger != nil {
		m.log = config.Logger
	} else {
		m.log = noopLogger{}
	}

	if m.apSsid == "" {
		m.apSsid = DefaultAPSsid
	}
	if m.apChannel == 0 {
		m.apChannel = DefaultAPChannel
	}
	if m.apMaxClients == 0 {
		m.apMaxClients = DefaultAPMaxClients
	}
	if m.apLifetime == 0 {
		m.apLifetime = DefaultAPLifetime
	}
	if m.stationMinimumRssi == 0 {
		m.stationMinimumRssi = DefaultStationMinimumRssi
	}
	if m.maxConnectionAttempts == 0 {
		m.maxConnectionAttempts = DefaultMaxConnectionAttempts
	}
	if m.monitorFrequency == 0 {
		m.monitorFrequency = DefaultMonitorFrequency
	}

	return m
}

// Start brings the networking subsystem up: it creates the connectivity
// state, registers the IP event handler, spawns the worker and places the
// initial wifi start command. It fails if the subsystem is already active.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.st != nil {
		return errors.New("networking is already initialized")
	}

	st := newState()

	ipSub, err := m.driver.Subscribe(ScopeIP, m.handleDriverEvent)
	if err != nil {
		return errors.Errorf("could not attach IP event handler: %v", err)
	}
	st.ipSub = ipSub

	m.st = st
	m.box = newMailbox()
	m.done = make(chan struct{})

	go m.run(st, m.box)

	m.box.post(NotificationCmdWifiStart)

	return nil
}

// Stop requests a full shutdown of the networking subsystem. It always
// reports success; the teardown itself is best-effort and logs its
// failures.
func (m *Manager) Stop() error {
	m.notify(NotificationCmdNetworkingStop)

	return nil
}

// Done returns a channel that is closed once the worker of the current
// activation cycle has completed a full teardown. When the subsystem is not
// active, a closed channel is returned.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done == nil {
		done := make(chan struct{})
		close(done)
		return done
	}

	return m.done
}

// Status returns a point-in-time snapshot of the connectivity state. When
// the subsystem is down, the zero snapshot is returned.
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	st := m.st
	m.mu.Unlock()

	if st == nil {
		return Snapshot{}
	}

	return Snapshot{
		Medium: st.Medium(),
		Mode:   st.Mode(),
		Status: st.Status(),
	}
}

// Subscribe registers a client for connectivity updates.
func (m *Manager) Subscribe() *Client {
	client := &Client{
		Updates:    make(chan Update, updateChanSize),
		cancelChan: make(chan struct{}),
		manager:    m,
	}

	m.clientMtx.Lock()
	client.Id = m.nextClientId
	m.nextClientId++
	m.clients[client.Id] = client
	m.clientMtx.Unlock()

	return client
}

// notify posts a notification to the worker's mailbox. Posting while a
// previous notification is unconsumed replaces it.
func (m *Manager) notify(n Notification) {
	m.mu.Lock()
	box := m.box
	m.mu.Unlock()

	if box == nil {
		m.log.Warnf("No networking state available, dropping notification %v", n)
		return
	}

	box.post(n)
}

// emit delivers an update to all subscribed clients. Delivery is
// fire-and-forget and never blocks the worker: a client whose buffer is
// full misses the update.
func (m *Manager) emit(u Update) {
	m.clientMtx.Lock()
	defer m.clientMtx.Unlock()

	for _, client := range m.clients {
		select {
		case client.Updates <- u:
		default:
			m.log.Warnf("Could not deliver %v to client %d", u, client.Id)
		}
	}
}
