package netman

import (
	"sync"
	"time"
)

// Notification is a single enumerated value posted to the worker's mailbox.
type Notification uint32

const (
	NotificationCmdNetworkingStop Notification = iota + 1
	NotificationCmdWifiStart
	NotificationCmdWifiRestart
	NotificationWifiAPStart
	NotificationWifiAPStationConnected
	NotificationWifiAPStationDisconnected
	NotificationWifiStationStart
	NotificationWifiStationConnected
	NotificationWifiStationDisconnected
)

func (n Notification) String() string {
	switch n {
	case NotificationCmdNetworkingStop:
		return "CMD_NETWORKING_STOP"
	case NotificationCmdWifiStart:
		return "CMD_WIFI_START"
	case NotificationCmdWifiRestart:
		return "CMD_WIFI_RESTART"
	case NotificationWifiAPStart:
		return "EVENT_WIFI_AP_START"
	case NotificationWifiAPStationConnected:
		return "EVENT_WIFI_AP_STACONNECTED"
	case NotificationWifiAPStationDisconnected:
		return "EVENT_WIFI_AP_STADISCONNECTED"
	case NotificationWifiStationStart:
		return "EVENT_WIFI_STA_START"
	case NotificationWifiStationConnected:
		return "EVENT_WIFI_STA_CONNECTED"
	case NotificationWifiStationDisconnected:
		return "EVENT_WIFI_STA_DISCONNECTED"
	default:
		return "UNKNOWN NOTIFICATION"
	}
}

// mailbox is a single-slot notification slot with overwrite-on-collision
// semantics: posting while a previous notification is still unconsumed
// replaces it. Bursts may coalesce to "last write wins". This is exactly the
// lossy-intermediate behavior the worker is designed for; it re-derives from
// live driver state instead of counting events, so a mailbox must never be
// replaced with a queue.
type mailbox struct {
	mu     sync.Mutex
	value  Notification
	filled bool
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{
		signal: make(chan struct{}, 1),
	}
}

// post places a notification into the slot, replacing an unconsumed one. It
// never blocks and is safe to call from any goroutine.
func (b *mailbox) post(n Notification) {
	b.mu.Lock()
	b.value = n
	b.filled = true
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// wait blocks until a notification is available or the timeout elapses. The
// second return value reports whether a notification was consumed.
func (b *mailbox) wait(timeout time.Duration) (Notification, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		b.mu.Lock()
		if b.filled {
			n := b.value
			b.filled = false
			b.mu.Unlock()
			return n, true
		}
		b.mu.Unlock()

		select {
		case <-b.signal:
			// Re-check the slot. The signal may be stale if the notification
			// was already consumed through the fast path above.
		case <-deadline.C:
			return 0, false
		}
	}
}
