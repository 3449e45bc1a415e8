package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config is the application configuration, read from the environment.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `envconfig:"PDFINK_LOG_LEVEL" default:"info"`

	// TouchDrawing bypasses palm rejection so single-finger touch draws.
	TouchDrawing bool `envconfig:"PDFINK_TOUCH_DRAWING" default:"false"`

	// RasterWorkers bounds the page raster workers. Zero picks a size
	// from GOMAXPROCS.
	RasterWorkers int `envconfig:"PDFINK_RASTER_WORKERS" default:"0"`

	// DisableWorkers renders pages synchronously on the caller. Placeholder
	// frames are skipped entirely in this mode; it exists for debugging
	// render issues.
	DisableWorkers bool `envconfig:"PDFINK_DISABLE_WORKERS" default:"false"`

	// Scale is the initial render scale.
	Scale float64 `envconfig:"PDFINK_SCALE" default:"1.0"`

	// PreloadMargin is how far beyond the viewport, in viewport heights,
	// pages are mounted ahead of scrolling, so they render before they
	// become visible.
	PreloadMargin float64 `envconfig:"PDFINK_PRELOAD_MARGIN" default:"2.0"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
