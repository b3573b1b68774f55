package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/splitlab/splitlab/internal/engine"
	"github.com/splitlab/splitlab/internal/store"
)

type Server struct {
	store     *store.SQLiteStore
	engine    *engine.Engine
	port      int
	token     string
	tokenFile string
	router    *http.ServeMux
	startTime time.Time
}

func New(s *store.SQLiteStore, port int, tokenFile string) *Server {
	srv := &Server{
		store:     s,
		engine:    engine.New(s),
		port:      port,
		token:     generateToken(),
		tokenFile: tokenFile,
		router:    http.NewServeMux(),
		startTime: time.Now(),
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	// Public endpoints
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/api/assign", s.handleAssign)
	s.router.HandleFunc("/api/convert", s.handleConvert)
	s.router.HandleFunc("/api/assignments", s.handleUserAssignments)

	// Admin endpoints (protected)
	s.router.Handle("/api/experiments", s.authMiddleware(http.HandlerFunc(s.handleExperiments)))
	s.router.Handle("/api/experiments/", s.authMiddleware(http.HandlerFunc(s.handleExperimentSubroute)))
}

func (s *Server) Start() error {
	// Write token to file for the token command
	if s.tokenFile != "" {
		if err := os.WriteFile(s.tokenFile, []byte(s.token), 0600); err != nil {
			fmt.Printf("Warning: failed to write token file: %v\n", err)
		}
	}

	fmt.Println()
	fmt.Printf("splitlab running on http://localhost:%d\n", s.port)
	fmt.Printf("API token: %s\n", s.token)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")

	return http.ListenAndServe(fmt.Sprintf(":%d", s.port), s.router)
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func generateToken() string {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a simple token if crypto/rand fails
		return "a1b2c3d4"
	}
	return hex.EncodeToString(bytes)
}
