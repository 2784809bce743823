package noisedb

var (
	nameKey    = []byte("name")
	stationKey = []byte("station")
)

// Station is a saved playback source.
type Station struct {
	Name string `json:"name"`
	Url  string `json:"url"`
}

func (db *DB) SetName(name string) error {
	return db.setJSON(settingsBucket, nameKey, name)
}

func (db *DB) GetName() (string, error) {
	var name string

	if _, err := db.getJSON(settingsBucket, nameKey, &name); err != nil {
		return "", err
	}

	return name, nil
}

func (db *DB) SetStation(station *Station) error {
	return db.setJSON(playerBucket, stationKey, station)
}

// GetStation returns the saved playback source, or nil when none was
// saved yet.
func (db *DB) GetStation() (*Station, error) {
	station := &Station{}

	found, err := db.getJSON(playerBucket, stationKey, station)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	return station, nil
}
