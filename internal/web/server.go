package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"tophat-webp/internal/converter"
	"tophat-webp/internal/statistics"
)

// ConverterFactory builds the converter for one batch, recording into stats.
type ConverterFactory func(stats *statistics.Statistics) *converter.Converter

type Server struct {
	log          *logrus.Logger
	newConverter ConverterFactory
	router       *mux.Router
	httpServer   *http.Server
	wsUpgrader   websocket.Upgrader
	wsClients    map[*websocket.Conn]bool
	wsMutex      sync.RWMutex

	// Current operation state
	operationMutex sync.RWMutex
	isRunning      bool
	currentStats   *statistics.Statistics
	lastReport     *converter.Report
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ConvertRequest struct {
	Files []string `json:"files"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewServer(log *logrus.Logger, newConverter ConverterFactory) *Server {
	s := &Server{
		log:          log,
		newConverter: newConverter,
		router:       mux.NewRouter(),
		wsClients:    make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // The host UI is served from its own origin
			},
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/convert", s.handleConvert).Methods("POST")
	api.HandleFunc("/statistics", s.handleGetStatistics).Methods("GET")
	api.HandleFunc("/report", s.handleGetReport).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// A batch runs inside the convert request and has no time limit.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Starting web server on http://%s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.wsMutex.Lock()
	for conn := range s.wsClients {
		conn.Close()
		delete(s.wsClients, conn)
	}
	s.wsMutex.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	running := s.isRunning
	stats := s.currentStats
	s.operationMutex.RUnlock()

	var statsData interface{}
	if stats != nil {
		statsData = stats.Snapshot()
	}

	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"running":    running,
			"statistics": statsData,
		},
	})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// An empty list is a valid batch; it still creates the output directory.
	if req.Files == nil {
		s.writeError(w, "Field files is required", http.StatusBadRequest)
		return
	}

	s.operationMutex.Lock()
	if s.isRunning {
		s.operationMutex.Unlock()
		s.writeError(w, "Conversion already in progress", http.StatusConflict)
		return
	}
	stats := statistics.NewStatistics()
	s.isRunning = true
	s.currentStats = stats
	s.operationMutex.Unlock()

	s.broadcastWSMessage("convert_started", map[string]interface{}{
		"files": len(req.Files),
	})

	report, err := s.newConverter(stats).Convert(req.Files)

	s.operationMutex.Lock()
	s.isRunning = false
	s.lastReport = report
	s.operationMutex.Unlock()

	if err != nil {
		s.broadcastWSMessage("convert_error", map[string]interface{}{
			"error":            err.Error(),
			"output_directory": report.OutputDirectory,
		})

		status := http.StatusOK
		if report.OutputDirectory == "" {
			status = http.StatusInternalServerError
		}
		s.writeJSON(w, status, APIResponse{
			Success: false,
			Error:   err.Error(),
			Data:    report,
		})
		return
	}

	s.broadcastWSMessage("convert_completed", map[string]interface{}{
		"output_directory": report.OutputDirectory,
		"statistics":       stats.Snapshot(),
	})

	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Message: fmt.Sprintf("Converted %d of %d files", report.Converted(), len(report.Results)),
		Data:    report,
	})
}

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	stats := s.currentStats
	s.operationMutex.RUnlock()

	if stats == nil {
		s.writeJSON(w, http.StatusOK, APIResponse{Success: true})
		return
	}

	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"summary": stats.GetSummary(),
			"layouts": stats.GetLayoutBreakdown(),
			"files":   stats.Snapshot(),
			"errors":  stats.GetErrors(),
		},
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	report := s.lastReport
	s.operationMutex.RUnlock()

	if report == nil {
		s.writeError(w, "No conversion has run yet", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: report})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	s.log.Debug("WebSocket client connected")

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		s.log.Debug("WebSocket client disconnected")
	}()

	// Keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) broadcastWSMessage(messageType string, data interface{}) {
	msgBytes, err := json.Marshal(WSMessage{Type: messageType, Data: data})
	if err != nil {
		s.log.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	// Writes are serialized under the write lock; gorilla connections allow
	// only one concurrent writer.
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	for conn := range s.wsClients {
		if err := conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
			s.log.Errorf("Failed to write WebSocket message: %v", err)
			delete(s.wsClients, conn)
			conn.Close()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}
