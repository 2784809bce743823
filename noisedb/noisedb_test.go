package noisedb

import (
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestWifiConnectionAbsent(t *testing.T) {
	db := openTestDB(t)

	connection, err := db.GetWifiConnection()
	if err != nil {
		t.Fatalf("could not get wifi connection: %v", err)
	}

	if connection != nil {
		t.Errorf("expected no connection, got %+v", connection)
	}
}

func TestWifiConnectionRoundTrip(t *testing.T) {
	db := openTestDB(t)

	err := db.SetWifiConnection(&WifiConnection{
		Ssid: "homenet",
		Psk:  "secret123",
	})
	if err != nil {
		t.Fatalf("could not set wifi connection: %v", err)
	}

	connection, err := db.GetWifiConnection()
	if err != nil {
		t.Fatalf("could not get wifi connection: %v", err)
	}

	if connection == nil {
		t.Fatal("expected a connection")
	}

	if connection.Ssid != "homenet" || connection.Psk != "secret123" {
		t.Errorf("unexpected connection %+v", connection)
	}
}

func TestWifiConnectionOverwrite(t *testing.T) {
	db := openTestDB(t)

	if err := db.SetWifiConnection(&WifiConnection{Ssid: "first"}); err != nil {
		t.Fatalf("could not set wifi connection: %v", err)
	}

	if err := db.SetWifiConnection(&WifiConnection{Ssid: "second", Psk: "pw"}); err != nil {
		t.Fatalf("could not set wifi connection: %v", err)
	}

	connection, err := db.GetWifiConnection()
	if err != nil {
		t.Fatalf("could not get wifi connection: %v", err)
	}

	if connection.Ssid != "second" {
		t.Errorf("expected overwritten ssid, got %v", connection.Ssid)
	}
}

func TestName(t *testing.T) {
	db := openTestDB(t)

	name, err := db.GetName()
	if err != nil {
		t.Fatalf("could not get name: %v", err)
	}

	if name != "" {
		t.Errorf("expected empty name, got %v", name)
	}

	if err := db.SetName("kitchen"); err != nil {
		t.Fatalf("could not set name: %v", err)
	}

	name, err = db.GetName()
	if err != nil {
		t.Fatalf("could not get name: %v", err)
	}

	if name != "kitchen" {
		t.Errorf("expected kitchen, got %v", name)
	}
}

func TestStation(t *testing.T) {
	db := openTestDB(t)

	station, err := db.GetStation()
	if err != nil {
		t.Fatalf("could not get station: %v", err)
	}

	if station != nil {
		t.Errorf("expected no station, got %+v", station)
	}

	err = db.SetStation(&Station{
		Name: "fip",
		Url:  "http://icecast.radiofrance.fr/fip-midfi.mp3",
	})
	if err != nil {
		t.Fatalf("could not set station: %v", err)
	}

	station, err = db.GetStation()
	if err != nil {
		t.Fatalf("could not get station: %v", err)
	}

	if station == nil || station.Name != "fip" {
		t.Errorf("unexpected station %+v", station)
	}
}
