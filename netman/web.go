package netman

import (
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
)

// configFormTemplate is the minimal configuration page served to clients of
// the fallback access point.
var configFormTemplate = template.Must(template.New("config").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Network Configuration</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
<h1>Network Configuration</h1>
<form action="/config/wifi" method="post">
<label for="ssid">Network name</label>
<input type="text" id="ssid" name="ssid" value="{{.Ssid}}" required>
<label for="psk">Password</label>
<input type="password" id="psk" name="psk">
<button type="submit">Save and reconnect</button>
</form>
</body>
</html>
`))

// RegisterRoutes attaches the wifi configuration handlers to the router of
// the now-ready web server.
func (m *Manager) RegisterRoutes(router *mux.Router) {
	router.Handle("/config/wifi", m.handleConfigForm()).Methods(http.MethodGet)
	router.Handle("/config/wifi", m.handleConfigSubmit()).Methods(http.MethodPost)
}

func (m *Manager) handleConfigForm() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connection, err := m.credentials.GetWifiConnection()
		if err != nil {
			m.log.Warnf("Could not read stored credentials: %v", err)
		}

		data := struct {
			Ssid string
		}{}
		if connection != nil {
			data.Ssid = connection.Ssid
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := configFormTemplate.Execute(w, data); err != nil {
			m.log.Errorf("Could not render configuration form: %v", err)
		}
	})
}

func (m *Manager) handleConfigSubmit() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "could not parse form", http.StatusBadRequest)
			return
		}

		ssid := r.PostFormValue("ssid")
		if ssid == "" {
			http.Error(w, "ssid must not be empty", http.StatusBadRequest)
			return
		}

		err := m.credentials.SetWifiConnection(&WifiConnection{
			Ssid: ssid,
			Psk:  r.PostFormValue("psk"),
		})
		if err != nil {
			m.log.Errorf("Could not save credentials: %v", err)
			http.Error(w, "could not save credentials", http.StatusInternalServerError)
			return
		}

		m.log.Infof("Saved new credentials for %v, restarting wifi", ssid)

		// The client will most likely never receive this response: the
		// restart tears down the access point it is connected through.
		w.WriteHeader(http.StatusNoContent)

		m.notify(NotificationCmdWifiRestart)
	})
}
