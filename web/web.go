package web

import (
	"net"
	"net/http"
	"sync"

	"github.com/go-errors/errors"
	"github.com/gorilla/mux"
)

// Server hosts the daemon's HTTP surface. It only accepts connections
// while the device is reachable, so it gets started and stopped as
// connectivity comes and goes. Routes survive across restarts.
type Server struct {
	log    Logger
	router *mux.Router

	mu       sync.Mutex
	listener net.Listener
}

type Config struct {
	Logger Logger
}

func New(config *Config) *Server {
	server := &Server{}

	if config.Logger != nil {
		server.log = config.Logger
	} else {
		server.log = noopLogger{}
	}

	server.router = mux.NewRouter()
	server.router.Use(server.loggingMiddleware)

	return server
}

// Router exposes the route table so other packages can register handlers
// before the server starts.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Addr returns the bound address, or an empty string while stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Server) Start(listen string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return errors.New("server is already running")
	}

	lis, err := net.Listen("tcp", listen)
	if err != nil {
		return errors.Errorf("Could not create listener for %v: %v", listen, err)
	}

	s.listener = lis

	s.log.Infof("Serving on %v", lis.Addr())

	go func() {
		err := http.Serve(lis, s.router)
		if err != nil {
			s.log.Debugf("Server on %v closed: %v", lis.Addr(), err)
		}
	}()

	return nil
}

// Stop closes the listener. Stopping a stopped server is not an error.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	err := s.listener.Close()
	s.listener = nil

	if err != nil {
		return errors.New("Could not properly close listener")
	}

	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Infof("Accessing %v", r.RequestURI)
		next.ServeHTTP(w, r)
	})
}
