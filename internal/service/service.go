package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kardianos/service"
	"go.uber.org/zap"

	"github.com/professor93/tgconfig/pkg/constants"
)

// Actions accepted by Manager.Control
const (
	ActionInstall   = "install"
	ActionUninstall = "uninstall"
	ActionStart     = "start"
	ActionStop      = "stop"
	ActionRestart   = "restart"
)

// Program implements the service.Interface from kardianos/service
type Program struct {
	ctx    context.Context
	cancel context.CancelFunc

	// Callbacks for lifecycle events
	onStart func(ctx context.Context) error
	onStop  func() error

	stopGrace time.Duration
	running   sync.WaitGroup

	svc    service.Service
	logger *zap.Logger
}

// Config holds service configuration
type Config struct {
	Name        string
	DisplayName string
	Description string
	Arguments   []string // passed to the binary when the OS starts it

	// StopGrace bounds how long Stop waits for OnStart to return
	StopGrace time.Duration

	Logger *zap.Logger

	// Lifecycle callbacks. OnStart runs in its own goroutine and should
	// block until ctx is cancelled.
	OnStart func(ctx context.Context) error
	OnStop  func() error
}

// New creates a new service program
func New(cfg *Config) (*Program, error) {
	if cfg.Name == "" {
		cfg.Name = constants.ServiceName
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = constants.ServiceDisplayName
	}
	if cfg.Description == "" {
		cfg.Description = constants.ServiceDescription
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 10 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Program{
		ctx:       ctx,
		cancel:    cancel,
		onStart:   cfg.OnStart,
		onStop:    cfg.OnStop,
		stopGrace: cfg.StopGrace,
		logger:    logger.With(zap.String("service", cfg.Name)),
	}

	svc, err := service.New(p, &service.Config{
		Name:        cfg.Name,
		DisplayName: cfg.DisplayName,
		Description: cfg.Description,
		Arguments:   cfg.Arguments,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	p.svc = svc

	return p, nil
}

// Start implements service.Interface
func (p *Program) Start(s service.Service) error {
	p.logger.Info("Service starting")

	if p.onStart != nil {
		p.running.Add(1)
		go func() {
			defer p.running.Done()
			if err := p.onStart(p.ctx); err != nil {
				p.logger.Error("Service start callback failed", zap.Error(err))
			}
		}()
	}

	return nil
}

// Stop implements service.Interface
func (p *Program) Stop(s service.Service) error {
	p.logger.Info("Service stopping")

	p.cancel()

	if p.onStop != nil {
		if err := p.onStop(); err != nil {
			p.logger.Error("Service stop callback failed", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		p.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Service stopped")
	case <-time.After(p.stopGrace):
		p.logger.Warn("Service did not stop within grace period", zap.Duration("grace", p.stopGrace))
	}
	return nil
}

// Run starts the service and blocks until it's stopped. Outside a service
// manager it runs in the foreground until interrupted.
func (p *Program) Run() error {
	return p.svc.Run()
}

// Install installs the service
func (p *Program) Install() error {
	return p.svc.Install()
}

// Uninstall removes the service
func (p *Program) Uninstall() error {
	return p.svc.Uninstall()
}

// StartService asks the service manager to start the service
func (p *Program) StartService() error {
	return p.svc.Start()
}

// StopService asks the service manager to stop the service
func (p *Program) StopService() error {
	return p.svc.Stop()
}

// Restart restarts the service
func (p *Program) Restart() error {
	return p.svc.Restart()
}

// Status returns the current service status
func (p *Program) Status() (service.Status, error) {
	return p.svc.Status()
}

// StatusString returns a human-readable status string. A service that is
// not installed reports "not installed" rather than an error.
func (p *Program) StatusString() (string, error) {
	status, err := p.Status()
	if err == service.ErrNotInstalled {
		return "not installed", nil
	}
	if err != nil {
		return "", err
	}

	return statusName(status), nil
}

func statusName(status service.Status) string {
	switch status {
	case service.StatusUnknown:
		return "unknown"
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("status-%d", status)
	}
}

// IsInstalled checks if the service is installed
func (p *Program) IsInstalled() bool {
	status, err := p.Status()
	if err != nil {
		return false
	}
	return status != service.StatusUnknown
}

// IsRunning checks if the service is currently running
func (p *Program) IsRunning() bool {
	status, err := p.Status()
	if err != nil {
		return false
	}
	return status == service.StatusRunning
}

// Interactive reports whether the process runs from a terminal rather than
// under a service manager
func (p *Program) Interactive() bool {
	return service.Interactive()
}

// Context returns the service context
func (p *Program) Context() context.Context {
	return p.ctx
}

// Manager provides high-level service management operations
type Manager struct {
	program *Program
	logger  *zap.Logger
}

// NewManager creates a new service manager
func NewManager(cfg *Config) (*Manager, error) {
	program, err := New(cfg)
	if err != nil {
		return nil, err
	}

	return &Manager{
		program: program,
		logger:  program.logger,
	}, nil
}

// Control runs one of the Action* commands
func (m *Manager) Control(action string) error {
	switch action {
	case ActionInstall:
		return m.InstallAndStart()
	case ActionUninstall:
		return m.StopAndUninstall()
	case ActionStart, ActionStop, ActionRestart:
		if err := service.Control(m.program.svc, action); err != nil {
			return fmt.Errorf("failed to %s service: %w", action, err)
		}
		m.logger.Info("Service control sent", zap.String("action", action))
		return nil
	default:
		return fmt.Errorf("unknown service action %q", action)
	}
}

// InstallAndStart installs and starts the service
func (m *Manager) InstallAndStart() error {
	if m.program.IsInstalled() {
		m.logger.Info("Service already installed")
	} else {
		if err := m.program.Install(); err != nil {
			return fmt.Errorf("failed to install service: %w", err)
		}
		m.logger.Info("Service installed")
	}

	if m.program.IsRunning() {
		m.logger.Info("Service already running")
		return nil
	}

	if err := m.program.StartService(); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	m.logger.Info("Service started")
	return nil
}

// StopAndUninstall stops and uninstalls the service
func (m *Manager) StopAndUninstall() error {
	if m.program.IsRunning() {
		if err := m.program.StopService(); err != nil {
			return fmt.Errorf("failed to stop service: %w", err)
		}
		m.logger.Info("Service stopped")

		// Wait for service to stop
		time.Sleep(2 * time.Second)
	}

	if !m.program.IsInstalled() {
		m.logger.Info("Service not installed")
		return nil
	}

	if err := m.program.Uninstall(); err != nil {
		return fmt.Errorf("failed to uninstall service: %w", err)
	}
	m.logger.Info("Service uninstalled")
	return nil
}

// GetStatus returns detailed service status
func (m *Manager) GetStatus() (string, bool, error) {
	statusStr, err := m.program.StatusString()
	if err != nil {
		return "", false, err
	}

	return statusStr, m.program.IsRunning(), nil
}

// GetProgram returns the underlying program
func (m *Manager) GetProgram() *Program {
	return m.program
}
