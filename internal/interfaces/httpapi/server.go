package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"txledger/internal/application"
	"txledger/internal/config"
	"txledger/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const maxRequestBytes = 64 << 10

type TriggerHandler interface {
	HandleTrigger(ctx context.Context, rawText, callerID string) application.Result
	Analyze(ctx context.Context, command application.Command, hash domain.TransactionHash) application.Result
	Log(ctx context.Context, hash domain.TransactionHash, callerID string) application.Result
}

type LedgerStatus interface {
	IsConnected() bool
	Stats(ctx context.Context) (domain.LedgerStats, bool)
}

type Replier interface {
	Text(result application.Result) string
}

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type Server struct {
	cfg       config.Config
	pipeline  TriggerHandler
	ledger    LedgerStatus
	replier   Replier
	metrics   *Metrics
	buildInfo BuildInfo
}

func NewServer(cfg config.Config, pipeline TriggerHandler, ledger LedgerStatus, replier Replier, metrics *Metrics, buildInfo BuildInfo) (*Server, error) {
	if pipeline == nil || ledger == nil || replier == nil {
		return nil, errors.New("http server dependencies must not be nil")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{cfg: cfg, pipeline: pipeline, ledger: ledger, replier: replier, metrics: metrics, buildInfo: buildInfo}, nil
}

func (s *Server) MetricsObserver() *Metrics {
	return s.metrics
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	r.HandleFunc("/triggers", s.handleTrigger).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{hash}", s.handleTransaction).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{hash}/log", s.handleLog).Methods(http.MethodPost)
	r.HandleFunc("/ledger/stats", s.handleStats).Methods(http.MethodGet)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	})
	return c.Handler(r)
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	connected := s.ledger.IsConnected()
	s.metrics.SetLedgerConnected(connected)
	if !connected {
		respondError(w, http.StatusServiceUnavailable, "ledger not connected")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.buildInfo)
}

type triggerRequest struct {
	Text     string `json:"text"`
	CallerID string `json:"caller_id"`
}

type resultResponse struct {
	RequestID  string                  `json:"request_id"`
	Kind       application.ResultKind  `json:"kind"`
	Command    string                  `json:"command,omitempty"`
	Hash       string                  `json:"hash,omitempty"`
	Reply      string                  `json:"reply,omitempty"`
	Detail     string                  `json:"detail,omitempty"`
	Record     *domain.CanonicalRecord `json:"record,omitempty"`
	TotalCount *int                    `json:"total_count,omitempty"`
	Stats      *domain.LedgerStats     `json:"stats,omitempty"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	result := s.pipeline.HandleTrigger(r.Context(), req.Text, callerOrDefault(req.CallerID))
	// Trigger results are answers, not transport errors.
	respondJSON(w, http.StatusOK, s.response(r, result))
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	hash, ok := parseHashVar(w, r)
	if !ok {
		return
	}
	command := application.CommandGet
	if strings.EqualFold(r.URL.Query().Get("view"), "status") {
		command = application.CommandStatus
	}
	result := s.pipeline.Analyze(r.Context(), command, hash)
	s.metrics.OnResult(result.Kind)
	respondJSON(w, statusFor(result.Kind), s.response(r, result))
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	hash, ok := parseHashVar(w, r)
	if !ok {
		return
	}
	var req triggerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result := s.pipeline.Log(r.Context(), hash, callerOrDefault(req.CallerID))
	s.metrics.OnResult(result.Kind)
	respondJSON(w, statusFor(result.Kind), s.response(r, result))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.ledger.Stats(r.Context())
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "ledger stats unavailable")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) response(r *http.Request, result application.Result) resultResponse {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	resp := resultResponse{
		RequestID: requestID,
		Kind:      result.Kind,
		Hash:      result.Hash.String(),
		Reply:     s.replier.Text(result),
		Detail:    result.Detail,
		Record:    result.Record,
		Stats:     result.Stats,
	}
	if result.Command != application.CommandNone {
		resp.Command = result.CommandName()
	}
	if result.Kind == application.ResultLogged && result.TotalCount >= 0 {
		total := result.TotalCount
		resp.TotalCount = &total
	}
	return resp
}

func statusFor(kind application.ResultKind) int {
	switch kind {
	case application.ResultLogged:
		return http.StatusCreated
	case application.ResultUsageError:
		return http.StatusBadRequest
	case application.ResultNotFound:
		return http.StatusNotFound
	case application.ResultDuplicate:
		return http.StatusConflict
	case application.ResultUpstreamError:
		return http.StatusBadGateway
	case application.ResultStoreUnavailable:
		return http.StatusServiceUnavailable
	case application.ResultLogFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func parseHashVar(w http.ResponseWriter, r *http.Request) (domain.TransactionHash, bool) {
	raw := mux.Vars(r)["hash"]
	hash, err := domain.ParseHash(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction hash "+raw+": must be 64 hexadecimal characters")
		return "", false
	}
	return hash, true
}

// decodeBody accepts an empty body as the zero value.
func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errors.New("invalid json body")
	}
	return nil
}

func callerOrDefault(callerID string) string {
	if strings.TrimSpace(callerID) == "" {
		return "HTTP_API"
	}
	return callerID
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
