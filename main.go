package main

import (
	"encoding/json"
	"net/http"
	"os"
	"os/signal"

	"github.com/go-errors/errors"
	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	"github.com/the-noise-box/noised/netman"
	"github.com/the-noise-box/noised/netman/wpa"
	"github.com/the-noise-box/noised/noisedb"
	"github.com/the-noise-box/noised/player"
	"github.com/the-noise-box/noised/web"
)

var (
	// commit stores the current commit hash of this build. This should be set using -ldflags during compilation.
	Commit string
	// version stores the version string of this build. This should be set using -ldflags during compilation.
	Version string
	// date stores the date of this build. This should be set using -ldflags during compilation.
	Date string
)

// credentialStore adapts the database to the networking credential boundary.
type credentialStore struct {
	db *noisedb.DB
}

func (s *credentialStore) GetWifiConnection() (*netman.WifiConnection, error) {
	connection, err := s.db.GetWifiConnection()
	if err != nil {
		return nil, err
	}

	if connection == nil {
		return nil, nil
	}

	return &netman.WifiConnection{
		Ssid: connection.Ssid,
		Psk:  connection.Psk,
	}, nil
}

func (s *credentialStore) SetWifiConnection(connection *netman.WifiConnection) error {
	return s.db.SetWifiConnection(&noisedb.WifiConnection{
		Ssid: connection.Ssid,
		Psk:  connection.Psk,
	})
}

// noisedMain is the true entry point for noised. This is required since defers
// created in the top-level scope of a main method aren't executed if os.Exit() is called.
func noisedMain() error {
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)

	// Load CLI configuration and defaults
	cfg, err := loadConfig()
	if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		return nil
	} else if err != nil {
		return errors.Errorf("Failed parsing arguments: %v", err)
	}

	// Set logger into debug mode if called with --debug
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		log.Info("Setting debug mode.")
	}

	log.Debug("Loaded config.")

	// Print version of the daemon
	log.Infof("Version %s (commit %s)", Version, Commit)
	log.Infof("Built on %s", Date)

	// Stop here if only version was requested
	if cfg.ShowVersion {
		return nil
	}

	// noise.db persistently stores all settings of the device
	noiseDB, err := noisedb.Open(cfg.DataDir)
	if err != nil {
		return errors.Errorf("Could not open noise.db: %v", err)
	}

	log.Infof("Opened noise.db")

	defer func() {
		err := noiseDB.Close()
		if err != nil {
			log.Errorf("Could not close noise.db: %v", err)
		} else {
			log.Info("Closed noise.db.")
		}
	}()

	// The networking driver, which provides all connectivity
	var driver netman.Driver

	switch cfg.Net {
	case "wpa":
		wpaDriver, err := wpa.New(&wpa.Config{
			Interface: cfg.Interface,
			Logger:    log.New().WithField("system", "wpa"),
		})
		if err != nil {
			return errors.Errorf("Could not create wpa driver: %v", err)
		}

		defer func() {
			err := wpaDriver.Close()
			if err != nil {
				log.Errorf("Could not properly close wpa driver: %v", err)
			}
		}()

		driver = wpaDriver

		log.Infof("Created wpa driver on %v.", cfg.Interface)
	case "mock":
		driver = netman.NewMockDriver()

		log.Info("Created a mock networking driver.")
	default:
		return errors.Errorf("Unknown networking type %v", cfg.Net)
	}

	// The audio backend
	var p player.Player

	switch cfg.Player {
	case "none":
		p = player.NewNoopPlayer()

		log.Info("Created noop player.")
	default:
		return errors.Errorf("Unknown player type %v", cfg.Player)
	}

	if err := p.Start(); err != nil {
		return errors.Errorf("Could not start player: %v", err)
	}

	defer func() {
		err := p.Stop()
		if err != nil {
			log.Errorf("Could not properly stop player: %v", err)
		} else {
			log.Info("Stopped player.")
		}
	}()

	// central controller for all connectivity of the device
	netConfig := netman.Config{
		Driver:      driver,
		Credentials: &credentialStore{db: noiseDB},
		Logger:      log.New().WithField("system", "netman"),
	}

	if err := applyTuning(cfg.Tuning, &netConfig); err != nil {
		return errors.Errorf("Could not apply tuning: %v", err)
	}

	manager := netman.New(&netConfig)

	log.Infof("Created connectivity manager.")

	// The web app, served whenever connectivity is up
	webServer := web.New(&web.Config{
		Logger: log.New().WithField("system", "web"),
	})

	manager.RegisterRoutes(webServer.Router())

	webServer.Router().HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		name, err := noiseDB.GetName()
		if err != nil {
			log.Errorf("Could not read device name: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")

		err = json.NewEncoder(w).Encode(struct {
			Name string `json:"name"`
			netman.Snapshot
		}{
			Name:     name,
			Snapshot: manager.Status(),
		})
		if err != nil {
			log.Errorf("Could not write status: %v", err)
		}
	}).Methods(http.MethodGet)

	// react to connectivity coming and going
	client := manager.Subscribe()
	defer client.Cancel()

	go func() {
		for update := range client.Updates {
			switch update {
			case netman.Ready:
				log.Info("Connectivity is ready.")

				if err := webServer.Start(cfg.Listen); err != nil {
					log.Errorf("Could not start web server: %v", err)
				}

				station, err := noiseDB.GetStation()
				if err != nil {
					log.Errorf("Could not read station: %v", err)
				} else if station != nil {
					log.Infof("Playing %v.", station.Name)

					if err := p.PlayStation(station.Url); err != nil {
						log.Errorf("Could not play station: %v", err)
					}
				}
			case netman.Unavailable:
				log.Info("Connectivity is going away.")

				if err := p.StopPlayback(); err != nil {
					log.Errorf("Could not stop playback: %v", err)
				}

				if err := webServer.Stop(); err != nil {
					log.Errorf("Could not stop web server: %v", err)
				}
			}
		}
	}()

	if err := manager.Start(); err != nil {
		return errors.Errorf("Could not start connectivity manager: %v", err)
	}

	log.Infof("Started connectivity manager.")

	// Handle interrupt signals correctly
	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		sig := <-signals
		log.Info(sig)
		log.Info("Received an interrupt, stopping noised...")

		if err := manager.Stop(); err != nil {
			log.Errorf("Could not stop connectivity manager: %v", err)
		}
	}()

	// blocks until the connectivity manager has torn down completely
	<-manager.Done()

	log.Info("Connectivity manager has shut down.")

	// finish with no error
	return nil
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := noisedMain(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		} else {
			log.WithError(err).Println("Failed running noised.")
		}
		os.Exit(1)
	}
}
