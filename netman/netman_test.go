package netman

import (
	"testing"
	"time"

	"github.com/go-errors/errors"
)

// fakeCredentials is a credential store serving a fixed connection.
type fakeCredentials struct {
	conn *WifiConnection
	err  error
}

func (c *fakeCredentials) GetWifiConnection() (*WifiConnection, error) {
	return c.conn, c.err
}

func (c *fakeCredentials) SetWifiConnection(connection *WifiConnection) error {
	c.conn = connection
	return nil
}

// newTestManager wires a manager to a mock driver with timings short enough
// for tests.
func newTestManager(t *testing.T, driver *MockDriver, credentials CredentialStore) *Manager {
	t.Helper()

	if credentials == nil {
		credentials = &fakeCredentials{}
	}

	m := New(&Config{
		Driver:                driver,
		Credentials:           credentials,
		APLifetime:            75 * time.Millisecond,
		MonitorFrequency:      20 * time.Millisecond,
		MaxConnectionAttempts: 3,
	})

	t.Cleanup(func() {
		m.Stop()

		select {
		case <-m.Done():
		case <-time.After(2 * time.Second):
		}
	})

	return m
}

// waitFor polls the condition until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %v", what)
}

func TestStartWithoutCredentialsFallsBackToAccessPoint(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, nil)

	client := m.Subscribe()
	defer client.Cancel()

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "access point to become idle", func() bool {
		s := m.Status()
		return s.Mode == ModeAccessPoint && s.Status == StatusIdle
	})

	if m.Status().Medium != MediumWireless {
		t.Errorf("expected wireless medium, got %v", m.Status().Medium)
	}

	select {
	case u := <-client.Updates:
		if u != Ready {
			t.Errorf("expected READY, got %v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a ready update")
	}

	config := driver.AccessPointConfig()
	if config == nil {
		t.Fatal("expected an access point to be configured")
	}

	if config.Ssid != DefaultAPSsid {
		t.Errorf("expected default ssid, got %v", config.Ssid)
	}

	// no psk was configured, so the network must be open
	if config.Psk != "" {
		t.Errorf("expected an open network, got psk %v", config.Psk)
	}
}

func TestStartWithCredentialsConnectsAsStation(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, &fakeCredentials{
		conn: &WifiConnection{Ssid: "homenet", Psk: "secret123"},
	})

	client := m.Subscribe()
	defer client.Cancel()

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "station to become ready", func() bool {
		s := m.Status()
		return s.Mode == ModeStation && s.Status == StatusReady
	})

	select {
	case u := <-client.Updates:
		if u != Ready {
			t.Errorf("expected READY, got %v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a ready update")
	}

	config := driver.StationConfig()
	if config == nil {
		t.Fatal("expected a station to be configured")
	}

	if config.Ssid != "homenet" || config.Psk != "secret123" {
		t.Errorf("unexpected station config %+v", config)
	}
}

func TestUnreadableCredentialsFallBackToAccessPoint(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, &fakeCredentials{
		err: errors.New("storage corrupt"),
	})

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "access point to become idle", func() bool {
		s := m.Status()
		return s.Mode == ModeAccessPoint && s.Status == StatusIdle
	})
}

func TestStationRetryExhaustionFallsBackToAccessPoint(t *testing.T) {
	driver := NewMockDriver()
	driver.SetConnectSucceeds(false)

	m := newTestManager(t, driver, &fakeCredentials{
		conn: &WifiConnection{Ssid: "homenet", Psk: "secret123"},
	})

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "fallback to access point", func() bool {
		s := m.Status()
		return s.Mode == ModeAccessPoint && s.Status == StatusIdle
	})

	// the initial attempt plus every allowed retry was used before falling
	// back, so the fourth consecutive disconnect flips the mode
	if count := driver.ConnectCount(); count != 4 {
		t.Errorf("expected 4 connect attempts, got %d", count)
	}
}

func TestStationReconnectsAfterTemporaryLoss(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, &fakeCredentials{
		conn: &WifiConnection{Ssid: "homenet", Psk: "secret123"},
	})

	client := m.Subscribe()
	defer client.Cancel()

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "station to become ready", func() bool {
		return m.Status().Status == StatusReady
	})

	<-client.Updates

	// drop the link once; the next connect succeeds again
	driver.Emit(Event{Scope: ScopeLink, Kind: StationDisconnected})

	select {
	case u := <-client.Updates:
		if u != Ready {
			t.Errorf("expected READY, got %v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a ready update after reconnecting")
	}

	if m.Status().Status != StatusReady {
		t.Errorf("expected ready status, got %v", m.Status().Status)
	}
}

func TestStationInitFailureFallsBackToAccessPoint(t *testing.T) {
	driver := NewMockDriver()
	driver.FailStartStation = true

	m := newTestManager(t, driver, &fakeCredentials{
		conn: &WifiConnection{Ssid: "homenet", Psk: "secret123"},
	})

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "fallback to access point", func() bool {
		s := m.Status()
		return s.Mode == ModeAccessPoint && s.Status == StatusIdle
	})
}

func TestAccessPointInitFailureShutsDown(t *testing.T) {
	driver := NewMockDriver()
	driver.FailStartAccessPoint = true

	m := newTestManager(t, driver, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a full shutdown")
	}

	if s := m.Status(); s != (Snapshot{}) {
		t.Errorf("expected the zero snapshot, got %+v", s)
	}
}

func TestDoubleStartRejected(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	if err := m.Start(); err == nil {
		t.Error("expected second start to fail")
	}
}

func TestStopWhileStoppedSucceeds(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, nil)

	if err := m.Stop(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStopTearsDownCompletely(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, nil)

	client := m.Subscribe()
	defer client.Cancel()

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "access point to become idle", func() bool {
		return m.Status().Status == StatusIdle
	})

	<-client.Updates // READY

	done := m.Done()

	if err := m.Stop(); err != nil {
		t.Fatalf("could not stop: %v", err)
	}

	select {
	case u := <-client.Updates:
		if u != Unavailable {
			t.Errorf("expected UNAVAILABLE, got %v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an unavailable update")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the teardown to complete")
	}

	if s := m.Status(); s != (Snapshot{}) {
		t.Errorf("expected the zero snapshot, got %+v", s)
	}

	waitFor(t, "driver subscriptions to be released", func() bool {
		return driver.ActiveSubscriptions() == 0
	})
}

func TestStartAgainAfterStop(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "access point to become idle", func() bool {
		return m.Status().Status == StatusIdle
	})

	m.Stop()
	<-m.Done()

	if err := m.Start(); err != nil {
		t.Fatalf("could not start again: %v", err)
	}

	waitFor(t, "access point to become idle again", func() bool {
		return m.Status().Status == StatusIdle
	})
}

func TestRestartCyclesConnectivity(t *testing.T) {
	driver := NewMockDriver()
	credentials := &fakeCredentials{}

	m := newTestManager(t, driver, credentials)

	client := m.Subscribe()
	defer client.Cancel()

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "access point to become idle", func() bool {
		return m.Status().Status == StatusIdle
	})

	<-client.Updates // READY

	// credentials appeared, a restart switches to station mode
	credentials.conn = &WifiConnection{Ssid: "homenet", Psk: "secret123"}
	m.notify(NotificationCmdWifiRestart)

	select {
	case u := <-client.Updates:
		if u != Unavailable {
			t.Errorf("expected UNAVAILABLE, got %v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an unavailable update")
	}

	select {
	case u := <-client.Updates:
		if u != Ready {
			t.Errorf("expected READY, got %v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a ready update")
	}

	waitFor(t, "station to become ready", func() bool {
		s := m.Status()
		return s.Mode == ModeStation && s.Status == StatusReady
	})
}

func TestAccessPointClientActivity(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "access point to become idle", func() bool {
		return m.Status().Status == StatusIdle
	})

	driver.ConnectStation()

	waitFor(t, "access point to become busy", func() bool {
		return m.Status().Status == StatusBusy
	})

	driver.DisconnectStation()

	waitFor(t, "access point to become idle again", func() bool {
		return m.Status().Status == StatusIdle
	})
}

func TestAccessPointStaysBusyWhileClientsRemain(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "access point to become idle", func() bool {
		return m.Status().Status == StatusIdle
	})

	driver.ConnectStation()
	driver.ConnectStation()

	waitFor(t, "access point to become busy", func() bool {
		return m.Status().Status == StatusBusy
	})

	driver.DisconnectStation()

	// one client remains, the access point must stay busy
	time.Sleep(50 * time.Millisecond)

	if m.Status().Status != StatusBusy {
		t.Errorf("expected busy status, got %v", m.Status().Status)
	}
}

func TestIdleAccessPointShutsDownAfterLifetime(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "access point to become idle", func() bool {
		return m.Status().Status == StatusIdle
	})

	// nobody connects, so the lifetime expires and everything is torn down
	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected the idle shutdown")
	}

	if s := m.Status(); s != (Snapshot{}) {
		t.Errorf("expected the zero snapshot, got %+v", s)
	}
}

func TestBusyAccessPointOutlivesLifetime(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "access point to become idle", func() bool {
		return m.Status().Status == StatusIdle
	})

	driver.ConnectStation()

	waitFor(t, "access point to become busy", func() bool {
		return m.Status().Status == StatusBusy
	})

	// wait past the configured lifetime; the access point must survive
	time.Sleep(150 * time.Millisecond)

	if m.Status().Status != StatusBusy {
		t.Errorf("expected busy status, got %v", m.Status().Status)
	}
}

func TestTimedShutdownSkippedWhenBusy(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "access point to become idle", func() bool {
		return m.Status().Status == StatusIdle
	})

	driver.ConnectStation()

	waitFor(t, "access point to become busy", func() bool {
		return m.Status().Status == StatusBusy
	})

	// a late timer callback must detect the activity and do nothing
	m.apTimedShutdown()

	time.Sleep(50 * time.Millisecond)

	if m.Status().Status != StatusBusy {
		t.Errorf("expected busy status, got %v", m.Status().Status)
	}
}

func TestUnknownNotificationIgnored(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, nil)

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "access point to become idle", func() bool {
		return m.Status().Status == StatusIdle
	})

	m.notify(Notification(99))

	time.Sleep(50 * time.Millisecond)

	if m.Status().Status != StatusIdle {
		t.Errorf("expected idle status, got %v", m.Status().Status)
	}
}

func TestCancelledClientReceivesNoUpdates(t *testing.T) {
	driver := NewMockDriver()
	m := newTestManager(t, driver, nil)

	client := m.Subscribe()
	client.Cancel()

	if err := m.Start(); err != nil {
		t.Fatalf("could not start: %v", err)
	}

	waitFor(t, "access point to become idle", func() bool {
		return m.Status().Status == StatusIdle
	})

	select {
	case u := <-client.Updates:
		t.Errorf("unexpected update %v", u)
	default:
	}
}
