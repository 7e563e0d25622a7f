// Package dashboard serves stored explanation runs as a small web UI with
// a JSON API alongside it.
package dashboard

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/robottwo/lucid/internal/store"
	"github.com/robottwo/lucid/pkg/explain"
)

//go:embed templates/*.html
var templateFS embed.FS

// shutdownGrace bounds how long in-flight requests may finish after the
// context is cancelled.
const shutdownGrace = 5 * time.Second

// Server renders stored runs. Construct with New, start with Show.
type Server struct {
	store     *store.RunStore
	logger    *zap.Logger
	addr      string
	templates *template.Template
}

// New builds a dashboard server listening on addr.
func New(runStore *store.RunStore, addr string, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("dashboard: parsing templates: %w", err)
	}

	return &Server{
		store:     runStore,
		logger:    logger,
		addr:      addr,
		templates: templates,
	}, nil
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /run/{id}", s.handleRun)
	mux.HandleFunc("GET /api/runs", s.handleAPIRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleAPIRun)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Show serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Show(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", zap.String("addr", s.addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("dashboard: serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard: shutdown: %w", err)
	}
	<-errCh // drain ListenAndServe's http.ErrServerClosed
	return nil
}

// runRow is the index page view model.
type runRow struct {
	RunID     string
	Method    string
	Mode      string
	ModelName string
	Instances int
	Duration  string
	Age       string
}

// tokenCell is one heatmap cell in the run detail page.
type tokenCell struct {
	Token string
	Score float64
	Style template.CSS
}

type instanceView struct {
	Text       string
	Prediction string
	Score      float64
	Tokens     []tokenCell
}

type methodView struct {
	Method    string
	ModelName string
	Duration  string
	Instances []instanceView
}

type runPage struct {
	RunID   string
	Methods []methodView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.RecentRuns(100)
	if err != nil {
		s.fail(w, "listing runs", err)
		return
	}

	rows := make([]runRow, len(entries))
	for i, entry := range entries {
		rows[i] = runRow{
			RunID:     entry.RunID,
			Method:    entry.Method,
			Mode:      entry.Mode,
			ModelName: entry.ModelName,
			Instances: entry.InstanceCount,
			Duration:  fmt.Sprintf("%dms", entry.DurationMs),
			Age:       humanize.Time(entry.CreatedAt),
		}
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", rows); err != nil {
		s.logger.Error("rendering index", zap.Error(err))
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.GetRun(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	page := runPage{RunID: entries[0].RunID}
	for _, entry := range entries {
		explanation, err := entry.Explanation()
		if err != nil {
			s.fail(w, "decoding run payload", err)
			return
		}

		view := methodView{
			Method:    entry.Method,
			ModelName: entry.ModelName,
			Duration:  fmt.Sprintf("%dms", entry.DurationMs),
		}
		for _, instance := range explanation.Instances {
			view.Instances = append(view.Instances, buildInstanceView(instance))
		}
		page.Methods = append(page.Methods, view)
	}

	if err := s.templates.ExecuteTemplate(w, "run.html", page); err != nil {
		s.logger.Error("rendering run", zap.Error(err))
	}
}

func buildInstanceView(instance explain.InstanceExplanation) instanceView {
	prediction := instance.PredictedClass
	if prediction == "" {
		prediction = fmt.Sprintf("class %d", instance.PredictedLabel)
	}

	view := instanceView{
		Text:       instance.Text,
		Prediction: prediction,
		Score:      instance.PredictedScore,
	}

	maxMag := instance.MaxMagnitude()
	for _, attr := range instance.Attributions {
		view.Tokens = append(view.Tokens, tokenCell{
			Token: attr.Token,
			Score: attr.Score,
			Style: heatStyle(attr.Score, maxMag),
		})
	}
	return view
}

// heatStyle maps an attribution score onto a green/red background with
// opacity proportional to its share of the instance's largest magnitude.
func heatStyle(score, maxMag float64) template.CSS {
	if maxMag == 0 || score == 0 {
		return ""
	}

	opacity := score / maxMag
	if opacity < 0 {
		opacity = -opacity
	}

	if score > 0 {
		return template.CSS(fmt.Sprintf("background: rgba(34, 197, 94, %.2f)", opacity))
	}
	return template.CSS(fmt.Sprintf("background: rgba(239, 68, 68, %.2f)", opacity))
}

// API payloads.

type apiEntry struct {
	RunID         string    `json:"run_id"`
	Method        string    `json:"method"`
	Mode          string    `json:"mode"`
	Model         string    `json:"model"`
	InstanceCount int       `json:"instance_count"`
	DurationMs    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

type apiRunDetail struct {
	apiEntry
	Explanation *explain.LocalExplanation `json:"explanation"`
}

func toAPIEntry(entry store.RunEntry) apiEntry {
	return apiEntry{
		RunID:         entry.RunID,
		Method:        entry.Method,
		Mode:          entry.Mode,
		Model:         entry.ModelName,
		InstanceCount: entry.InstanceCount,
		DurationMs:    entry.DurationMs,
		CreatedAt:     entry.CreatedAt,
	}
}

func (s *Server) handleAPIRuns(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.RecentRuns(100)
	if err != nil {
		s.fail(w, "listing runs", err)
		return
	}

	payload := make([]apiEntry, len(entries))
	for i, entry := range entries {
		payload[i] = toAPIEntry(entry)
	}
	s.writeJSON(w, payload)
}

func (s *Server) handleAPIRun(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.GetRun(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	payload := make([]apiRunDetail, len(entries))
	for i, entry := range entries {
		explanation, err := entry.Explanation()
		if err != nil {
			s.fail(w, "decoding run payload", err)
			return
		}
		payload[i] = apiRunDetail{apiEntry: toAPIEntry(entry), Explanation: explanation}
	}
	s.writeJSON(w, payload)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		s.fail(w, "encoding response", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) fail(w http.ResponseWriter, what string, err error) {
	s.logger.Error(what, zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
