package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/export"
	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/storage"
	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/sweep"
	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/vna"
)

const (
	storageDir = "data"
	serverHost = "127.0.0.1"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()

	engine := createEngine(config, logger)

	sessionID, err := store.CreateSession(ctx, string(config.Mode()), &config.Acquisition)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	logger.Info("starting acquisition",
		slog.String("session", sessionID),
		slog.String("mode", string(config.Mode())))

	runs, runErr := engine.Run(ctx)

	// Persist whatever completed, even when the run aborted partway.
	for _, run := range runs {
		if err = store.StoreRun(ctx, sessionID, run); err != nil {
			logger.Error(fmt.Sprintf("storing bandwidth run: %s", err.Error()),
				slog.Int("bandwidth", run.Bandwidth))
		}
	}

	if config.Export.CSVPath != "" && len(runs) > 0 {
		if err = exportCSV(config.Export.CSVPath, sessionID, runs); err != nil {
			logger.Error(fmt.Sprintf("exporting CSV: %s", err.Error()))
		}
	}

	if runErr != nil {
		return runErr
	}

	logger.Info("acquisition complete",
		slog.String("session", sessionID),
		slog.Int("bandwidthValues", len(runs)))
	return nil
}

func createEngine(config *Config, logger *slog.Logger) *sweep.Engine {
	ctrlAddr := net.JoinHostPort(serverHost, strconv.Itoa(config.Server.ControlPort))
	streamAddrs := map[vna.Endpoint]string{
		vna.EndpointCalibrated: net.JoinHostPort(serverHost, strconv.Itoa(config.Server.StreamPort)),
	}

	serverOpts := []func(s *vna.Server){vna.WithServerLogger(logger)}
	if config.Server.StartupTimeout > 0 {
		serverOpts = append(serverOpts, vna.WithStartupTimeout(time.Duration(config.Server.StartupTimeout)))
	}

	launcher := vna.BinaryLauncher{
		Path:        config.Server.Path,
		ControlPort: config.Server.ControlPort,
	}
	server := vna.NewServer(launcher, ctrlAddr, serverOpts...)

	var singleOpts []func(t *sweep.TriggerPoll)
	var continuousOpts []func(c *sweep.Continuous)
	if config.Server.SweepTimeout > 0 {
		singleOpts = append(singleOpts, sweep.WithSweepTimeout(time.Duration(config.Server.SweepTimeout)))
		continuousOpts = append(continuousOpts, sweep.WithAcquireTimeout(time.Duration(config.Server.SweepTimeout)))
	}

	return sweep.NewEngine(config.Acquisition, server, ctrlAddr, streamAddrs,
		sweep.WithMode(config.Mode()),
		sweep.WithEngineLogger(logger),
		sweep.WithStrategyOptions(singleOpts, continuousOpts))
}

func createStorage(config *StorageConfig) (storage.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	var dbPath string
	if config.DataDirectory != "" {
		dbPath = filepath.Join(wd, config.DataDirectory)
	} else {
		dbPath = filepath.Join(wd, storageDir)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, fmt.Errorf("checking storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("vna_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), nil
}

func exportCSV(path, sessionID string, runs []sweep.BandwidthRun) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	exporter := export.CSV{W: f}
	return exporter.Write(sessionID, runs)
}
