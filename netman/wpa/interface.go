package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

// Interface wraps a wpa_supplicant interface object.
type Interface struct {
	wpa    *Wpa
	ifname string
	obj    dbus.BusObject
}

func (i *Interface) Name() string {
	return i.ifname
}

// Network is a network profile registered with the interface.
type Network struct {
	obj dbus.BusObject
}

func (n *Network) String() string {
	return string(n.obj.Path())
}

// AddNetwork registers a network profile. The args map uses the
// wpa_supplicant configuration vocabulary (ssid, psk, key_mgmt, mode,
// frequency, ...).
func (i *Interface) AddNetwork(args map[string]interface{}) (*Network, error) {
	call := i.obj.Call(ifaceInterface+".AddNetwork", 0, args)
	if call.Err != nil {
		return nil, errors.Errorf("could not add network: %v", call.Err)
	}

	var objPath dbus.ObjectPath
	if err := call.Store(&objPath); err != nil {
		return nil, errors.Errorf("could not store value: %v", err)
	}

	return &Network{
		obj: i.wpa.conn.Object(busName, objPath),
	}, nil
}

// SelectNetwork makes the given profile the active one and triggers an
// association attempt.
func (i *Interface) SelectNetwork(network *Network) error {
	call := i.obj.Call(ifaceInterface+".SelectNetwork", 0, network.obj.Path())
	if call.Err != nil {
		return errors.Errorf("could not select network: %v", call.Err)
	}

	return nil
}

func (i *Interface) RemoveAllNetworks() error {
	call := i.obj.Call(ifaceInterface+".RemoveAllNetworks", 0)
	if call.Err != nil {
		return errors.Errorf("could not remove all networks: %v", call.Err)
	}

	return nil
}

func (i *Interface) Disconnect() error {
	call := i.obj.Call(ifaceInterface+".Disconnect", 0)
	if call.Err != nil {
		return errors.Errorf("could not disconnect: %v", call.Err)
	}

	return nil
}

// State reads the current interface state (disconnected, scanning,
// associating, completed, ...).
func (i *Interface) State() (string, error) {
	v, err := i.obj.GetProperty(ifaceInterface + ".State")
	if err != nil {
		return "", errors.Errorf("could not get state: %v", err)
	}

	state, ok := v.Value().(string)
	if !ok {
		return "", errors.Errorf("could not convert state: %v", v)
	}

	return state, nil
}

// StateClient delivers interface state changes extracted from
// PropertiesChanged signals.
type StateClient struct {
	States <-chan string
	Cancel func()
}

func (i *Interface) StateChanges() (*StateClient, error) {
	stateChan := make(chan string)
	signalChan := make(chan *dbus.Signal, 8)

	client := &StateClient{
		States: stateChan,
		Cancel: func() {
			i.wpa.conn.RemoveSignal(signalChan)

			_ = i.wpa.conn.BusObject().RemoveMatchSignal(ifaceInterface, "PropertiesChanged",
				dbus.WithMatchObjectPath(i.obj.Path()))

			close(signalChan)
		},
	}

	go func() {
		for signal := range signalChan {
			if signal.Name != ifaceInterface+".PropertiesChanged" || signal.Path != i.obj.Path() {
				continue
			}

			props, ok := signal.Body[0].(map[string]dbus.Variant)
			if !ok {
				continue
			}

			if v, ok := props["State"]; ok {
				if state, ok := v.Value().(string); ok {
					stateChan <- state
				}
			}
		}

		close(stateChan)
	}()

	i.wpa.conn.Signal(signalChan)

	call := i.wpa.conn.BusObject().AddMatchSignal(ifaceInterface, "PropertiesChanged",
		dbus.WithMatchObjectPath(i.obj.Path()))
	if call.Err != nil {
		client.Cancel()
		return nil, errors.Errorf("could not add signal: %v", call.Err)
	}

	return client, nil
}

// StationClient delivers clients joining and leaving the interface while it
// operates in access point mode.
type StationClient struct {
	Authorized   <-chan string
	Deauthorized <-chan string
	Cancel       func()
}

func (i *Interface) StationChanges() (*StationClient, error) {
	authorizedChan := make(chan string)
	deauthorizedChan := make(chan string)
	signalChan := make(chan *dbus.Signal, 8)

	client := &StationClient{
		Authorized:   authorizedChan,
		Deauthorized: deauthorizedChan,
		Cancel: func() {
			i.wpa.conn.RemoveSignal(signalChan)

			_ = i.wpa.conn.BusObject().RemoveMatchSignal(ifaceInterface, "StaAuthorized",
				dbus.WithMatchObjectPath(i.obj.Path()))
			_ = i.wpa.conn.BusObject().RemoveMatchSignal(ifaceInterface, "StaDeauthorized",
				dbus.WithMatchObjectPath(i.obj.Path()))

			close(signalChan)
		},
	}

	go func() {
		for signal := range signalChan {
			if signal.Path != i.obj.Path() || len(signal.Body) == 0 {
				continue
			}

			mac, ok := signal.Body[0].(string)
			if !ok {
				continue
			}

			switch signal.Name {
			case ifaceInterface + ".StaAuthorized":
				authorizedChan <- mac
			case ifaceInterface + ".StaDeauthorized":
				deauthorizedChan <- mac
			}
		}

		close(authorizedChan)
		close(deauthorizedChan)
	}()

	i.wpa.conn.Signal(signalChan)

	call := i.wpa.conn.BusObject().AddMatchSignal(ifaceInterface, "StaAuthorized",
		dbus.WithMatchObjectPath(i.obj.Path()))
	if call.Err != nil {
		client.Cancel()
		return nil, errors.Errorf("could not add signal: %v", call.Err)
	}

	call = i.wpa.conn.BusObject().AddMatchSignal(ifaceInterface, "StaDeauthorized",
		dbus.WithMatchObjectPath(i.obj.Path()))
	if call.Err != nil {
		client.Cancel()
		return nil, errors.Errorf("could not add signal: %v", call.Err)
	}

	return client, nil
}
