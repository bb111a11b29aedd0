package app

import (
	"flag"
	"fmt"
)

// Config holds the renderer options, populated from the command line.
type Config struct {
	DBPath    string
	SessionID string // empty renders the most recent session
	OutPath   string

	MinDB float64
	MaxDB float64

	CellWidth  int // pixels per frequency point
	CellHeight int // pixels per sweep row
}

func NewConfigFromCLI() (*Config, error) {
	var config Config

	flag.StringVar(&config.DBPath, "db", "", "Path to the session database")
	flag.StringVar(&config.SessionID, "session", "", "Session UUID (default: most recent)")
	flag.StringVar(&config.OutPath, "o", "sweeps.png", "Output PNG path")
	flag.Float64Var(&config.MinDB, "min", -80, "Magnitude floor in dB")
	flag.Float64Var(&config.MaxDB, "max", 0, "Magnitude ceiling in dB")
	flag.IntVar(&config.CellWidth, "cw", 2, "Pixels per frequency point")
	flag.IntVar(&config.CellHeight, "ch", 4, "Pixels per sweep row")
	flag.Parse()

	if config.DBPath == "" {
		return nil, fmt.Errorf("no session database provided")
	}
	if config.MaxDB <= config.MinDB {
		return nil, fmt.Errorf("invalid magnitude range: %0.1f..%0.1f dB", config.MinDB, config.MaxDB)
	}
	if config.CellWidth <= 0 || config.CellHeight <= 0 {
		return nil, fmt.Errorf("invalid cell size: %dx%d", config.CellWidth, config.CellHeight)
	}

	return &config, nil
}
