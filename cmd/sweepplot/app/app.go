package app

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"

	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	sessionID := config.SessionID
	if sessionID == "" {
		sessions, err := store.Sessions(ctx)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		if len(sessions) == 0 {
			return fmt.Errorf("database contains no sessions")
		}

		sessionID = sessions[len(sessions)-1].ID
	}

	sweeps, err := store.Sweeps(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("reading sweeps: %w", err)
	}

	logger.Info("rendering session",
		slog.String("session", sessionID),
		slog.Int("sweeps", len(sweeps)))

	img, err := newRenderer(config).render(sweeps)
	if err != nil {
		return err
	}

	f, err := os.Create(config.OutPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	if err = png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}

	logger.Info("image written", slog.String("path", config.OutPath))
	return nil
}
