package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mwantia/fabric/pkg/container"
	"github.com/mwantia/ideascube/internal/api"
	config "github.com/mwantia/ideascube/internal/config/server"
	"github.com/mwantia/ideascube/pkg/backup"
	"github.com/mwantia/ideascube/pkg/db/store"
	"github.com/mwantia/ideascube/pkg/log"
)

type IdeascubeAgent struct {
	mutex sync.RWMutex
	wait  sync.WaitGroup

	cfg *config.BaseServerConfig
	sc  *container.ServiceContainer
	log log.LoggerService

	store  *store.RoutedStore
	repo   *backup.Repository
	server *http.Server
	addr   string
}

func NewAgent(cfg *config.BaseServerConfig) *IdeascubeAgent {
	return NewAgentWithLogger(cfg, log.NewLoggerService("ideascube", cfg.Log))
}

func NewAgentWithLogger(cfg *config.BaseServerConfig, logger log.LoggerService) *IdeascubeAgent {
	return &IdeascubeAgent{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: logger,
	}
}

func (a *IdeascubeAgent) setupServices(ctx context.Context) error {
	s, err := OpenStore(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	a.store = s

	repo, err := OpenRepository(a.cfg, a.log)
	if err != nil {
		return err
	}
	a.repo = repo

	errs := container.Errors{}

	a.log.Debug("Registering 'LoggerService'...")
	errs.Add(container.Register[log.LoggerServiceImpl](a.sc,
		container.With[log.LoggerService](),
		container.WithInstance(a.log)))

	a.log.Debug("Registering 'RoutedStore'...")
	errs.Add(container.Register[store.RoutedStore](a.sc,
		container.WithInstance(a.store)))

	a.log.Debug("Registering 'Repository'...")
	errs.Add(container.Register[backup.Repository](a.sc,
		container.WithInstance(a.repo)))

	return errs.Errors()
}

func (a *IdeascubeAgent) setupHTTP() error {
	if !a.cfg.HTTP.Enabled {
		a.log.Info("HTTP API disabled")
		return nil
	}

	readTimeout, _ := time.ParseDuration(a.cfg.HTTP.ReadTimeout)
	writeTimeout, _ := time.ParseDuration(a.cfg.HTTP.WriteTimeout)

	handler := api.NewServer(api.Options{
		Backups:        a.repo,
		Search:         a.store,
		Logger:         a.log.Named("api"),
		MaxUploadBytes: a.cfg.HTTP.MaxUploadMB << 20,
		Metrics:        a.cfg.HTTP.Metrics,
	}).Handler()

	listener, err := net.Listen("tcp", a.cfg.HTTP.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on '%s': %w", a.cfg.HTTP.Address, err)
	}

	a.addr = listener.Addr().String()
	a.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}

	a.wait.Add(1)
	go func() {
		defer a.wait.Done()

		a.log.Info("Serving admin API on '%s'", a.addr)
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Admin API stopped: %v", err)
		}
	}()

	return nil
}

// Addr returns the address the admin API listens on, empty until serving.
func (a *IdeascubeAgent) Addr() string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.addr
}

func (a *IdeascubeAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.mutex.Lock()

	if err := a.setupServices(ctx); err != nil {
		a.mutex.Unlock()
		a.close()
		return err
	}

	if err := a.setupHTTP(); err != nil {
		a.mutex.Unlock()
		a.close()
		return err
	}

	a.mutex.Unlock()
	<-ctx.Done()

	a.log.Info("Shutting down...")

	shutdown, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownDuration())
	defer cancel()

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(shutdown); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop admin API: %w", err))
		}
	}

	if err := a.sc.Cleanup(shutdown); err != nil {
		errs = append(errs, fmt.Errorf("failed to complete service container cleanup: %w", err))
	}

	a.wait.Wait()
	if err := a.close(); err != nil {
		errs = append(errs, err)
	}

	a.log.Info("Shutdown complete")
	if closer, ok := a.log.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *IdeascubeAgent) close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
