package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

const (
	busName        = "fi.w1.wpa_supplicant1"
	rootPath       = dbus.ObjectPath("/fi/w1/wpa_supplicant1")
	rootInterface  = "fi.w1.wpa_supplicant1"
	ifaceInterface = "fi.w1.wpa_supplicant1.Interface"
)

// Wpa is the control connection to wpa_supplicant on the system bus.
type Wpa struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

func newWpa() *Wpa {
	return &Wpa{}
}

func (w *Wpa) Start() error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return errors.Errorf("could not connect to system bus: %v", err)
	}

	w.conn = conn
	w.obj = conn.Object(busName, rootPath)

	return nil
}

func (w *Wpa) Stop() error {
	if w.conn == nil {
		return nil
	}

	err := w.conn.Close()
	w.conn = nil
	if err != nil {
		return errors.Errorf("could not close bus connection: %v", err)
	}

	return nil
}

// GetInterface resolves the wpa_supplicant object managing the given
// network interface.
func (w *Wpa) GetInterface(ifname string) (*Interface, error) {
	call := w.obj.Call(rootInterface+".GetInterface", 0, ifname)
	if call.Err != nil {
		return nil, errors.Errorf("could not find interface %v: %v", ifname, call.Err)
	}

	var objPath dbus.ObjectPath
	if err := call.Store(&objPath); err != nil {
		return nil, errors.Errorf("could not store value: %v", err)
	}

	return &Interface{
		wpa:    w,
		ifname: ifname,
		obj:    w.conn.Object(busName, objPath),
	}, nil
}
