package daemon

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"vocalis/internal/config"
	"vocalis/internal/crypto"
	"vocalis/internal/fileutil"
	"vocalis/internal/identity"
	"vocalis/internal/logging"
	"vocalis/internal/queue"
	"vocalis/internal/services"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		token:  strings.TrimSpace(cfg.APIToken),
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/key", srv.handleKeyExchange)
	mux.HandleFunc("/api/videoanalysis", srv.handleVideoAnalysis)
	mux.HandleFunc("/api/fetchreport", srv.handleFetchReport)
	mux.HandleFunc("/api/register", srv.handleRegister)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/queue", srv.handleQueue)

	srv.server = &http.Server{
		Handler:           srv.recoverPanics(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// recoverPanics converts handler panics into the generic failure response so
// no internal detail escapes the process boundary.
func (s *apiServer) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log().Error("api handler panic",
					logging.String("path", r.URL.Path),
					logging.Any("panic", rec))
				s.writeError(w, http.StatusInternalServerError, "Could not process request")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type keyExchangeRequest struct {
	Timestamp string `json:"timestamp"`
	Key       string `json:"key"`
	UserID    string `json:"userID"`
}

func (s *apiServer) handleKeyExchange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req keyExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON data")
		return
	}
	if req.Key == "" || req.UserID == "" || req.Timestamp == "" {
		s.writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	serverKey, err := s.daemon.exchange.SubmitPublicKey(r.Context(), req.UserID, req.Key, req.Timestamp)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Key saved successfully",
		"pubkey":  serverKey,
	})
}

type videoAnalysisRequest struct {
	VerificationHash string `json:"verificationHash"`
	ReportID         string `json:"reportID"`
	ActivityName     string `json:"activityName"`
	VideoID          string `json:"videoID"`
	VideoLink        string `json:"videoLink"`
}

func (s *apiServer) handleVideoAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req videoAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "no json data provided")
		return
	}
	if req.VerificationHash == "" {
		s.writeError(w, http.StatusBadRequest, "no verificationHash provided")
		return
	}

	user, err := s.authenticate(r.Context(), req.VerificationHash)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "incorrect hash")
		return
	}
	if req.ReportID == "" || req.ActivityName == "" || req.VideoID == "" || req.VideoLink == "" {
		s.writeError(w, http.StatusBadRequest, "incomplete data")
		return
	}

	job, err := s.daemon.store.NewJob(r.Context(), user.ID, req.ReportID, req.ActivityName, req.VideoID, req.VideoLink)
	if err != nil {
		s.log().Error("could not enqueue analysis job", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Could not process request")
		return
	}
	if s.daemon.notifier != nil {
		if err := s.daemon.notifier.NotifyJobQueued(r.Context(), job.ReportID, job.Activity); err != nil {
			s.log().Warn("queue notification failed", logging.Error(err))
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"success": "received"})
}

type fetchReportRequest struct {
	VerificationHash string `json:"verificationHash"`
	ReportID         string `json:"reportID"`
}

func (s *apiServer) handleFetchReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req fetchReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "no json data provided")
		return
	}

	user, err := s.authenticate(r.Context(), req.VerificationHash)
	if err != nil {
		s.writeJSON(w, http.StatusOK, map[string]string{"error": "Unable to verify user"})
		return
	}

	record, err := s.daemon.users.ReportByID(r.Context(), req.ReportID)
	if err != nil {
		s.log().Error("report lookup failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Could not process request")
		return
	}
	if record == nil || record.OwnerID != user.ID {
		s.writeJSON(w, http.StatusOK, map[string]string{"error": "Invalid reportID"})
		return
	}
	if !fileutil.Exists(record.FilePath) {
		s.writeJSON(w, http.StatusOK, map[string]string{"error": "Report does not exist"})
		return
	}
	http.ServeFile(w, r, record.FilePath)
}

type registerRequest struct {
	Data []registerPayload `json:"data"`
}

type registerPayload struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Gender    string `json:"gender"`
	Country   string `json:"country"`
}

func (s *apiServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Data) == 0 {
		s.writeError(w, http.StatusBadRequest, "error parsing data")
		return
	}
	payload := req.Data[0]

	clientKey, err := s.clientKeyFor(r.Context(), payload.Username)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	encryptedToken, err := s.daemon.registry.Register(r.Context(), identity.RegisterRequest{
		Username:  payload.Username,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
		Gender:    payload.Gender,
		Country:   payload.Country,
	}, clientKey)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"uniqueKey": encryptedToken})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

type jobView struct {
	ID              int64      `json:"id"`
	ReportID        string     `json:"report_id"`
	Activity        string     `json:"activity"`
	Status          string     `json:"status"`
	ProgressStage   string     `json:"progress_stage,omitempty"`
	ProgressPercent float64    `json:"progress_percent"`
	ProgressMessage string     `json:"progress_message,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastHeartbeat   *time.Time `json:"last_heartbeat,omitempty"`
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.authorizeOperator(r) {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		status, ok := queue.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value))
			return
		}
		statuses = append(statuses, status)
	}

	jobs, err := s.daemon.ListQueue(r.Context(), statuses)
	if err != nil {
		s.log().Error("queue listing failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Could not process request")
		return
	}

	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, jobView{
			ID:              job.ID,
			ReportID:        job.ReportID,
			Activity:        job.Activity,
			Status:          string(job.Status),
			ProgressStage:   job.ProgressStage,
			ProgressPercent: job.ProgressPercent,
			ProgressMessage: job.ProgressMessage,
			ErrorMessage:    job.ErrorMessage,
			CreatedAt:       job.CreatedAt,
			UpdatedAt:       job.UpdatedAt,
			LastHeartbeat:   job.LastHeartbeat,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string][]jobView{"jobs": views})
}

// authorizeOperator gates operator-only endpoints behind the configured API
// token. An empty token restricts these endpoints to loopback deployments.
func (s *apiServer) authorizeOperator(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	return header == "Bearer "+s.token
}

// authenticate decrypts a verification hash with the server private key and
// resolves it to a registered user.
func (s *apiServer) authenticate(ctx context.Context, encryptedHash string) (*identity.User, error) {
	token, err := s.daemon.exchange.Decrypt(encryptedHash)
	if err != nil {
		return nil, err
	}
	return s.daemon.dir.Authenticate(ctx, token)
}

// clientKeyFor resolves the caller's live handshake key for encrypting the
// registration response.
func (s *apiServer) clientKeyFor(ctx context.Context, owner string) (*rsa.PublicKey, error) {
	record, err := s.daemon.exchange.ClientKey(ctx, owner)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, services.Wrap(services.ErrValidation, "api", "register", "No public key on file", nil)
	}
	key, err := crypto.ParsePublicKeyPEM([]byte(record.PublicKeyPEM))
	if err != nil {
		return nil, services.Wrap(services.ErrEncoding, "api", "register", "Invalid public key encoding", err)
	}
	return key, nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a classified service error onto the wire: client
// faults surface their message, everything else degrades to the generic 500.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := services.HTTPStatus(err)
	message := services.Message(err)
	if status >= http.StatusInternalServerError || message == "" {
		s.log().Error("request failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Could not process request")
		return
	}
	s.writeError(w, status, message)
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
