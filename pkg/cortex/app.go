// Package cortex wires the RedAI agent together: configuration, history
// store, LLM client, metrics and an optional status server, with one agent
// per project.
package cortex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"

	"github.com/xaviserrafigueras/RedAI/pkg/cortex/config"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/executor"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/llm"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/metrics"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/session"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/store"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/tools"
)

// Version is set at build time
var Version = "dev"

// App represents the RedAI Cortex application
type App struct {
	Config  *config.Config
	Logger  logr.Logger
	Store   *store.Store
	Metrics *metrics.Recorder
	LLMs    *llm.Registry
	UI      executor.UI

	newClient func(config.AIConfig) (llm.Client, error)
	mu        sync.RWMutex
	agents    map[string]*executor.Agent
	started   time.Time
}

// Option customises an App
type Option func(*App)

// WithClientFactory replaces the registry lookup used to build LLM clients
func WithClientFactory(f func(config.AIConfig) (llm.Client, error)) Option {
	return func(a *App) { a.newClient = f }
}

// WithStore uses an already opened store instead of the configured database
func WithStore(s *store.Store) Option {
	return func(a *App) { a.Store = s }
}

// NewApp creates the application and opens the history store
func NewApp(ctx context.Context, cfg *config.Config, logger logr.Logger, ui executor.UI, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewRecorder(),
		LLMs:    llm.NewRegistry(),
		UI:      ui,
		agents:  make(map[string]*executor.Agent),
		started: time.Now(),
	}
	app.newClient = app.LLMs.NewClient
	for _, opt := range opts {
		opt(app)
	}

	if app.Store == nil {
		s, err := store.Open(ctx, cfg.Database.Driver, cfg.DatabaseDSN(), logger)
		if err != nil {
			return nil, err
		}
		app.Store = s
	}

	return app, nil
}

// AgentOptions derives the loop settings for a project from the configuration
func (a *App) AgentOptions(project string) executor.Options {
	if project == "" {
		project = a.Config.Agent.DefaultProject
	}
	opts := executor.DefaultOptions()
	opts.Project = project
	opts.MaxSteps = a.Config.Agent.MaxSteps
	opts.CommandTimeout = a.Config.CommandTimeout()
	opts.ToolTimeouts = a.Config.ToolTimeouts()
	opts.AutoApprove = a.Config.Agent.AutoApprove
	opts.Temperature = a.Config.AI.Temperature
	opts.MaxHistory = a.Config.Agent.MaxHistory
	return opts
}

// Agent returns the agent of a project, creating it on first use. Agents
// keep their memory for the lifetime of the App.
func (a *App) Agent(project string) (*executor.Agent, error) {
	opts := a.AgentOptions(project)

	a.mu.RLock()
	agent, ok := a.agents[opts.Project]
	a.mu.RUnlock()
	if ok {
		return agent, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if agent, ok := a.agents[opts.Project]; ok {
		return agent, nil
	}

	client, err := a.newClient(a.Config.AI)
	if err != nil {
		return nil, err
	}
	client = llm.WithRetry(client, llm.PolicyFromConfig(a.Config.AI.Retry), a.Logger)

	agent, err = executor.New(executor.Deps{
		LLM:     client,
		Runner:  tools.DefaultRunner(a.Logger),
		Memory:  session.NewMemory(),
		Store:   a.Store,
		UI:      a.UI,
		Metrics: a.Metrics,
		Logger:  a.Logger,
	}, opts)
	if err != nil {
		return nil, err
	}
	a.agents[opts.Project] = agent
	a.Logger.Info("Agent created", "project", opts.Project, "model", client.ModelName())
	return agent, nil
}

// RunTask runs a single objective on a project's agent
func (a *App) RunTask(ctx context.Context, project, task string) (executor.ObjectiveResult, error) {
	agent, err := a.Agent(project)
	if err != nil {
		return executor.ObjectiveResult{}, err
	}
	return agent.RunObjective(ctx, task), nil
}

// Projects returns the projects with a live agent
func (a *App) Projects() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.agents))
	for name := range a.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handler returns the status server routes
func (a *App) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/info", a.handleInfo).Methods(http.MethodGet)
	router.Handle("/metrics", a.Metrics.Handler()).Methods(http.MethodGet)
	return router
}

// Build creates the status server for addr
func (a *App) Build(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      a.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

// Serve runs the status server until ctx is done
func (a *App) Serve(ctx context.Context, addr string) error {
	server := a.Build(addr)

	errChan := make(chan error, 1)
	go func() {
		a.Logger.Info("Status server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err, ok := <-errChan:
		if ok {
			return fmt.Errorf("status server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

type projectInfo struct {
	Project      string `json:"project"`
	Steps        int    `json:"steps"`
	SummaryLines int    `json:"summary_lines"`
	LastCommand  string `json:"last_command,omitempty"`
}

func (a *App) handleInfo(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	projects := make([]projectInfo, 0, len(a.agents))
	for name, agent := range a.agents {
		st := agent.Memory().Status()
		info := projectInfo{Project: name, Steps: st.StepCount, SummaryLines: st.SummaryCount}
		if st.LastStep != nil {
			info.LastCommand = st.LastStep.Action
		}
		projects = append(projects, info)
	}
	a.mu.RUnlock()
	sort.Slice(projects, func(i, j int) bool { return projects[i].Project < projects[j].Project })

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"version":        Version,
		"provider":       a.Config.AI.Provider,
		"model":          a.Config.AI.Model,
		"uptime_seconds": int(time.Since(a.started).Seconds()),
		"projects":       projects,
	})
}

// Close releases the history store
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
