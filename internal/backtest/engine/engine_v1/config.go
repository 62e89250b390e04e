package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
)

const (
	defaultPreviousDays    = 30
	defaultIntervalMinutes = 1
)

type BacktestEngineV1Config struct {
	Tickers               []string                   `yaml:"tickers" json:"tickers" jsonschema:"title=Tickers,description=Stock symbols to replay" validate:"required,min=1,dive,required"`
	PreviousDays          int                        `yaml:"previous_days" json:"previous_days" jsonschema:"title=Previous Days,description=Lookback window in calendar days when no explicit start time is set,default=30"`
	IntervalMinutes       int                        `yaml:"interval_minutes" json:"interval_minutes" jsonschema:"title=Interval Minutes,description=Resampling interval between processed ticks in whole minutes,default=1"`
	Market                types.Market               `yaml:"market" json:"market" jsonschema:"title=Market,description=Exchange session used to filter replay timestamps"`
	RunOnMarketClosed     bool                       `yaml:"run_on_market_closed" json:"run_on_market_closed" jsonschema:"title=Run On Market Closed,description=Admit weekday timestamps outside regular session hours"`
	AutoLiquidateOnFinish bool                       `yaml:"auto_liquidate_on_finish" json:"auto_liquidate_on_finish" jsonschema:"title=Auto Liquidate On Finish,description=Close every open position at the final processed tick,default=true"`
	ShouldPrint           bool                       `yaml:"should_print" json:"should_print" jsonschema:"title=Should Print,description=Render a progress bar while replaying,default=true"`
	CacheDirectory        string                     `yaml:"cache_directory" json:"cache_directory" jsonschema:"title=Cache Directory,description=Directory for the market data disk cache"`
	StartTime             optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time for the backtest period"`
	EndTime               optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time for the backtest period"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config
func (c *BacktestEngineV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		Tickers               []string     `yaml:"tickers"`
		PreviousDays          int          `yaml:"previous_days"`
		IntervalMinutes       int          `yaml:"interval_minutes"`
		Market                types.Market `yaml:"market"`
		RunOnMarketClosed     bool         `yaml:"run_on_market_closed"`
		AutoLiquidateOnFinish *bool        `yaml:"auto_liquidate_on_finish"`
		ShouldPrint           *bool        `yaml:"should_print"`
		CacheDirectory        string       `yaml:"cache_directory"`
		StartTime             *time.Time   `yaml:"start_time"`
		EndTime               *time.Time   `yaml:"end_time"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.Tickers = config.Tickers
	c.PreviousDays = config.PreviousDays
	c.IntervalMinutes = config.IntervalMinutes
	c.Market = config.Market
	c.RunOnMarketClosed = config.RunOnMarketClosed
	c.CacheDirectory = config.CacheDirectory

	// Pointer fields keep their default when the key is absent.
	if config.AutoLiquidateOnFinish != nil {
		c.AutoLiquidateOnFinish = *config.AutoLiquidateOnFinish
	}

	if config.ShouldPrint != nil {
		c.ShouldPrint = *config.ShouldPrint
	}

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// applyDefaults fills the zero-valued fields a minimal config leaves out.
func (c *BacktestEngineV1Config) applyDefaults() {
	if c.PreviousDays == 0 {
		c.PreviousDays = defaultPreviousDays
	}

	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = defaultIntervalMinutes
	}

	if c.Market == "" {
		c.Market = types.MarketNYSE
	}
}

// Validate checks the config after defaults are applied.
func (c *BacktestEngineV1Config) Validate() error {
	if len(c.Tickers) == 0 {
		return errors.New(errors.ErrCodeNoTickers, "at least one stock ticker must be specified")
	}

	if c.PreviousDays < 1 {
		return errors.Newf(errors.ErrCodeInvalidLookback, "previous days must be positive, got %d", c.PreviousDays)
	}

	if c.IntervalMinutes < 1 {
		return errors.Newf(errors.ErrCodeInvalidInterval, "interval must be at least one minute, got %d", c.IntervalMinutes)
	}

	if !c.Market.Valid() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported market: %s", c.Market)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "end time precedes start time")
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest configuration", err)
	}

	return nil
}

// Interval returns the resampling interval as a duration.
func (c *BacktestEngineV1Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Window resolves the replay window against now: explicit bounds win,
// otherwise the window ends at now and reaches back PreviousDays days.
func (c *BacktestEngineV1Config) Window(now time.Time) (time.Time, time.Time) {
	end := now
	if c.EndTime.IsSome() {
		end = c.EndTime.Unwrap()
	}

	start := end.AddDate(0, 0, -c.PreviousDays)
	if c.StartTime.IsSome() {
		start = c.StartTime.Unwrap()
	}

	return start, end
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}
			if strings.Contains(t.String(), "types.Market") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: types.AllMarkets,
				}
			}
			return nil
		},
	}

	// Generate schema from BacktestEngineV1Config struct
	schema := reflector.Reflect(c)

	// Set schema metadata
	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

func TestConfig(tickers []string, startTime time.Time, endTime time.Time) BacktestEngineV1Config {
	return BacktestEngineV1Config{
		Tickers:               tickers,
		PreviousDays:          defaultPreviousDays,
		IntervalMinutes:       defaultIntervalMinutes,
		Market:                types.MarketNYSE,
		RunOnMarketClosed:     false,
		AutoLiquidateOnFinish: true,
		ShouldPrint:           false,
		CacheDirectory:        "",
		StartTime:             optional.Some(startTime),
		EndTime:               optional.Some(endTime),
	}
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		Tickers:               nil,
		PreviousDays:          0,
		IntervalMinutes:       0,
		Market:                "",
		RunOnMarketClosed:     false,
		AutoLiquidateOnFinish: true,
		ShouldPrint:           true,
		CacheDirectory:        "",
		StartTime:             optional.None[time.Time](),
		EndTime:               optional.None[time.Time](),
	}
}
