// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mcp-food-log/internal/analyzer"
	"mcp-food-log/internal/models"
	"mcp-food-log/internal/storage"
)

const (
	serverName    = "food-log"
	serverVersion = "1.0.0"
)

type Config struct {
	Host   string
	Port   int
	DBPath string
}

// Analyzer is the part of analyzer.FoodAnalyzer the server needs.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte) (*models.NutritionRecord, error)
}

type FoodLogServer struct {
	httpServer *http.Server
	handler    http.Handler
	storage    *storage.SQLiteStorage
	analyzer   Analyzer
	metrics    *metrics
	config     *Config
	info       protocol.Implementation
}

func NewFoodLogServer(cfg *Config, foodAnalyzer Analyzer) (*FoodLogServer, error) {
	if foodAnalyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}

	stor, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	s := &FoodLogServer{
		storage:  stor,
		analyzer: foodAnalyzer,
		metrics:  newMetrics(registry),
		config:   cfg,
		info: protocol.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHTTP)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.handler = loggingMiddleware(mux)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler exposes the routed handler, mainly for tests.
func (s *FoodLogServer) Handler() http.Handler {
	return s.handler
}

func (s *FoodLogServer) handleHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	handler, ok := s.tools()[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	result, err := handler(r.Context(), &request)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			slog.Error("Tool failed", "tool", request.Name, "error", err)
		} else {
			slog.Warn("Tool rejected", "tool", request.Name, "status", status, "error", err)
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *FoodLogServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.info); err != nil {
		slog.Error("Failed to encode health response", "error", err)
	}
}

// statusFor maps tool errors onto HTTP status codes.
func statusFor(err error) int {
	var apiErr *analyzer.APIError
	switch {
	case errors.Is(err, errInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, analyzer.ErrEncodingFailure),
		errors.Is(err, analyzer.ErrMalformedResponse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, analyzer.ErrEmptyResponse),
		errors.As(err, &apiErr),
		errors.Is(err, errAnalysisFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *FoodLogServer) Start(ctx context.Context) error {
	slog.Info("Starting food log server", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *FoodLogServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var shutdownErr error
	if s.httpServer != nil {
		shutdownErr = s.httpServer.Shutdown(ctx)
	}
	if s.storage != nil {
		if err := s.storage.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	return shutdownErr
}

func (s *FoodLogServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
