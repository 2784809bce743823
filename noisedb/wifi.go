package noisedb

var wifiConnectionKey = []byte("connection")

type WifiConnection struct {
	Ssid string `json:"ssid"`
	Psk  string `json:"psk"`
}

func (db *DB) SetWifiConnection(connection *WifiConnection) error {
	return db.setJSON(wifiBucket, wifiConnectionKey, connection)
}

// GetWifiConnection returns the saved credentials, or nil when none were
// saved yet.
func (db *DB) GetWifiConnection() (*WifiConnection, error) {
	connection := &WifiConnection{}

	found, err := db.getJSON(wifiBucket, wifiConnectionKey, connection)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	return connection, nil
}
