// Package config loads the reconciliation settings: defaults first, then an
// optional JSON file, then RECON_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"invoice-reconciliation/internal/domain"
)

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Configuration holds every tunable of the service. In the JSON file
// search_timeout is given in nanoseconds; the environment accepts Go
// durations such as "2s".
type Configuration struct {
	BacktrackingThreshold int           `json:"backtracking_threshold" envconfig:"RECON_BACKTRACKING_THRESHOLD"`
	MaxNodes              int64         `json:"max_nodes" envconfig:"RECON_MAX_NODES"`
	SearchTimeout         time.Duration `json:"search_timeout" envconfig:"RECON_SEARCH_TIMEOUT"`
	IngestionTolerance    string        `json:"ingestion_tolerance" envconfig:"RECON_INGESTION_TOLERANCE"`
	MaxResidual           string        `json:"max_residual" envconfig:"RECON_MAX_RESIDUAL"`
	SwapIterations        int           `json:"swap_iterations" envconfig:"RECON_SWAP_ITERATIONS"`
	SuggestionLimit       int           `json:"suggestion_limit" envconfig:"RECON_SUGGESTION_LIMIT"`
	AlternativeLimit      int           `json:"alternative_limit" envconfig:"RECON_ALTERNATIVE_LIMIT"`
	TieBreak              string        `json:"tie_break" envconfig:"RECON_TIE_BREAK"`
	LogLevel              string        `json:"log_level" envconfig:"RECON_LOG_LEVEL"`
	LogFormat             string        `json:"log_format" envconfig:"RECON_LOG_FORMAT"`
	OTLPEndpoint          string        `json:"otlp_endpoint" envconfig:"RECON_OTLP_ENDPOINT"`
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() Configuration {
	opts := domain.DefaultOptions()
	return Configuration{
		BacktrackingThreshold: opts.BacktrackingThreshold,
		MaxNodes:              opts.Budget.MaxNodes,
		SearchTimeout:         opts.Budget.Timeout,
		IngestionTolerance:    opts.IngestionTolerance.String(),
		SwapIterations:        opts.SwapIterations,
		SuggestionLimit:       opts.SuggestionLimit,
		AlternativeLimit:      opts.AlternativeLimit,
		TieBreak:              string(opts.TieBreak),
		LogLevel:              DefaultLogLevel,
		LogFormat:             DefaultLogFormat,
	}
}

// Load builds a Configuration from the defaults, the JSON file at path when
// it exists, and the environment, in that order. An empty path skips the file.
func Load(path string) (*Configuration, error) {
	cnf := Default()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			if err := json.NewDecoder(f).Decode(&cnf); err != nil {
				return nil, fmt.Errorf("decode config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			logrus.WithField("path", path).Debug("config file not found, using environment")
		default:
			return nil, fmt.Errorf("open config %s: %w", path, err)
		}
	}

	// override config from environment variables
	if err := envconfig.Process("recon", &cnf); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cnf.validateAndAddDefaults(); err != nil {
		return nil, err
	}
	return &cnf, nil
}

// Validate normalises the configuration and checks it again. Callers that
// change fields after Load, such as command-line overrides, use it.
func (cnf *Configuration) Validate() error {
	return cnf.validateAndAddDefaults()
}

func (cnf *Configuration) validateAndAddDefaults() error {
	cnf.IngestionTolerance = strings.TrimSpace(cnf.IngestionTolerance)
	cnf.MaxResidual = strings.TrimSpace(cnf.MaxResidual)
	cnf.TieBreak = strings.ToLower(strings.TrimSpace(cnf.TieBreak))
	cnf.LogLevel = strings.ToLower(strings.TrimSpace(cnf.LogLevel))
	cnf.LogFormat = strings.ToLower(strings.TrimSpace(cnf.LogFormat))

	if cnf.IngestionTolerance == "" {
		cnf.IngestionTolerance = domain.DefaultOptions().IngestionTolerance.String()
	}
	if cnf.TieBreak == "" {
		cnf.TieBreak = string(domain.TieBreakFewest)
	}
	if cnf.LogLevel == "" {
		cnf.LogLevel = DefaultLogLevel
	}
	if cnf.LogFormat == "" {
		cnf.LogFormat = DefaultLogFormat
	}

	err := validation.ValidateStruct(cnf,
		validation.Field(&cnf.BacktrackingThreshold, validation.Required, validation.Min(1)),
		validation.Field(&cnf.MaxNodes, validation.Min(int64(0))),
		validation.Field(&cnf.SearchTimeout, validation.Min(time.Duration(0))),
		validation.Field(&cnf.IngestionTolerance, validation.By(isDecimal)),
		validation.Field(&cnf.MaxResidual, validation.By(isDecimal)),
		validation.Field(&cnf.SwapIterations, validation.Min(0)),
		validation.Field(&cnf.SuggestionLimit, validation.Min(0)),
		validation.Field(&cnf.AlternativeLimit, validation.Min(0)),
		validation.Field(&cnf.TieBreak, validation.In(tieBreakNames()...)),
		validation.Field(&cnf.LogLevel, validation.By(func(value interface{}) error {
			_, err := logrus.ParseLevel(value.(string))
			return err
		})),
		validation.Field(&cnf.LogFormat, validation.In("text", "json")),
	)
	if err != nil {
		return fmt.Errorf("%w: config: %v", domain.ErrInvalidInput, err)
	}

	if cnf.MaxNodes == 0 && cnf.SearchTimeout == 0 {
		return fmt.Errorf("%w: config: max_nodes or search_timeout must be set", domain.ErrInvalidInput)
	}
	return nil
}

func isDecimal(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return errors.New("must be a decimal number")
	}
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func tieBreakNames() []interface{} {
	names := make([]interface{}, len(domain.TieBreaks))
	for i, tb := range domain.TieBreaks {
		names[i] = string(tb)
	}
	return names
}

// Options converts the configuration into the per-request engine options.
func (cnf *Configuration) Options() (domain.Options, error) {
	tolerance, err := decimal.NewFromString(cnf.IngestionTolerance)
	if err != nil {
		return domain.Options{}, fmt.Errorf("%w: ingestion tolerance %q", domain.ErrInvalidInput, cnf.IngestionTolerance)
	}

	opts := domain.Options{
		BacktrackingThreshold: cnf.BacktrackingThreshold,
		Budget: domain.SearchBudget{
			MaxNodes: cnf.MaxNodes,
			Timeout:  cnf.SearchTimeout,
		},
		IngestionTolerance: tolerance,
		SwapIterations:     cnf.SwapIterations,
		SuggestionLimit:    cnf.SuggestionLimit,
		AlternativeLimit:   cnf.AlternativeLimit,
		TieBreak:           domain.TieBreak(cnf.TieBreak),
	}
	if cnf.MaxResidual != "" {
		bound, err := domain.ParseAmount(cnf.MaxResidual, decimal.Zero)
		if err != nil {
			return domain.Options{}, fmt.Errorf("max residual: %w", err)
		}
		opts.MaxResidual = &bound
	}
	if err := opts.Validate(); err != nil {
		return domain.Options{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return opts, nil
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (cnf *Configuration) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(cnf.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cnf.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
