package adminweb

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"auditimport/internal/letters"
	"auditimport/internal/logging"
	"auditimport/internal/runlock"
	"auditimport/internal/services"
)

//go:embed form.html
var formHTML string

var formTemplate = template.Must(template.New("form").Parse(formHTML))

// Runner executes one import run.
type Runner interface {
	Run(ctx context.Context, req letters.Request) (*letters.Report, error)
}

// Option configures a Server.
type Option func(*Server)

// WithAuthorizer sets the request authorizer.
func WithAuthorizer(auth Authorizer) Option {
	return func(s *Server) {
		if auth != nil {
			s.auth = auth
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLockPath runs every import under the batch lock at path.
func WithLockPath(path string) Option {
	return func(s *Server) {
		s.lockPath = path
	}
}

// WithTokenSecret sets the anti-forgery signing secret and token lifetime.
// An empty secret is replaced by a random per-process secret.
func WithTokenSecret(secret string, ttl time.Duration) Option {
	return func(s *Server) {
		s.secret = []byte(secret)
		s.ttl = ttl
	}
}

// WithRateLimit caps accepted submissions at perMinute, allowing bursts of
// up to burst. perMinute <= 0 leaves submissions unlimited.
func WithRateLimit(perMinute, burst int) Option {
	return func(s *Server) {
		if perMinute <= 0 {
			s.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	}
}

// Server renders the import form and runs submitted imports.
type Server struct {
	runner   Runner
	dir      func(time.Time) string
	auth     Authorizer
	logger   *slog.Logger
	now      func() time.Time
	lockPath string
	secret   []byte
	ttl      time.Duration
	tokens   *tokenSigner
	limiter  *rate.Limiter
}

// NewServer builds a Server. dir resolves the letters directory for a
// submission time.
func NewServer(runner Runner, dir func(time.Time) string, opts ...Option) (*Server, error) {
	if runner == nil || dir == nil {
		return nil, errors.New("admin server requires a runner and a directory resolver")
	}
	s := &Server{
		runner: runner,
		dir:    dir,
		auth:   TokenAuthorizer{},
		logger: logging.NewNop(),
		now:    time.Now,
		ttl:    time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	tokens, err := newTokenSigner(s.secret, s.ttl)
	if err != nil {
		return nil, err
	}
	s.tokens = tokens
	s.logger = logging.NewComponentLogger(s.logger, "adminweb")
	return s, nil
}

// Handler returns the HTTP handler serving the form.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleImport)
	return mux
}

// ListenAndServe serves on bind until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, bind string) error {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("admin listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("admin form listening", logging.String("address", listener.Addr().String()))
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin serve: %w", err)
	}
	return nil
}

type resultLine struct {
	Text  string
	Class string
}

type formView struct {
	Dir         string
	DefaultYear string
	Token       string
	Error       string
	Lines       []resultLine
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Authorize(r); err != nil {
		s.logger.Warn("admin request rejected",
			logging.String("remote", r.RemoteAddr),
			logging.String(logging.FieldEventType, "unauthorized"),
			logging.Error(err),
		)
		http.Error(w, unauthorizedMessage, http.StatusForbidden)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.render(w, http.StatusOK, s.view(s.now()))
	case http.MethodPost:
		s.handleSubmit(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	if err := s.checkSubmission(r, now); err != nil {
		s.logger.Warn("admin submission rejected",
			logging.String("remote", r.RemoteAddr),
			logging.String(logging.FieldEventType, "invalid_request"),
			logging.Error(err),
		)
		http.Error(w, invalidRequestMessage, http.StatusBadRequest)
		return
	}

	if s.limiter != nil && !s.limiter.AllowN(now, 1) {
		logging.WarnWithContext(s.logger, "admin submission throttled", "rate_limited",
			logging.String("remote", r.RemoteAddr),
			logging.String(logging.FieldErrorHint, "wait before submitting again"),
			logging.String(logging.FieldImpact, "import did not run"),
		)
		w.Header().Set("Retry-After", "60")
		http.Error(w, rateLimitedMessage, http.StatusTooManyRequests)
		return
	}

	view := s.view(now)
	req := letters.Request{Dir: view.Dir, Year: r.PostFormValue("year")}

	// The batch runs to completion even if the client disconnects.
	runCtx := services.WithRequestID(context.WithoutCancel(r.Context()), uuid.NewString())
	logger := logging.WithContext(runCtx, s.logger)
	var report *letters.Report
	run := func() error {
		var err error
		report, err = s.runner.Run(runCtx, req)
		return err
	}
	var err error
	if s.lockPath != "" {
		err = runlock.With(s.lockPath, run)
	} else {
		err = run()
	}

	status := http.StatusOK
	switch {
	case errors.Is(err, letters.ErrBatchInProgress):
		status = http.StatusConflict
		view.Error = "Another import is already running. Try again when it has finished."
	case err != nil:
		status = http.StatusInternalServerError
		view.Error = "The import could not run: " + err.Error()
		logging.ErrorWithContext(logger, "admin import failed", "import_run_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the letters directory and the record store"),
		)
	}
	if report != nil {
		for _, outcome := range report.Outcomes {
			class := "ok"
			if !outcome.OK() {
				class = "failed"
			}
			view.Lines = append(view.Lines, resultLine{Text: outcome.Message(), Class: class})
		}
	}
	s.render(w, status, view)
}

func (s *Server) checkSubmission(r *http.Request, now time.Time) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.PostFormValue("action") != tokenAction {
		return fmt.Errorf("%w: missing import action", ErrInvalidRequest)
	}
	if !s.tokens.verify(r.PostFormValue("token"), now) {
		return fmt.Errorf("%w: bad or expired token", ErrInvalidRequest)
	}
	return nil
}

func (s *Server) view(now time.Time) formView {
	return formView{
		Dir:         s.dir(now),
		DefaultYear: letters.DefaultYearLabel(now),
		Token:       s.tokens.issue(now),
	}
}

func (s *Server) render(w http.ResponseWriter, status int, view formView) {
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, view); err != nil {
		s.logger.Error("render admin form", logging.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
