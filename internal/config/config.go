package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Artifact ArtifactConfig `mapstructure:"artifact"`
	Features FeaturesConfig `mapstructure:"features"`
	Viewer   ViewerConfig   `mapstructure:"viewer"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DatasetConfig struct {
	SourcePath string `mapstructure:"source_path"`
}

type ArtifactConfig struct {
	Path      string `mapstructure:"path"`
	BatchSize int    `mapstructure:"batch_size"`
}

// FeaturesConfig carries the fixed domain thresholds used by the feature
// engine. These encode domain semantics (battery health bands, what counts
// as a "large" step), so they live in configuration and stay stable across
// runs instead of being re-derived from whatever dataset is loaded.
type FeaturesConfig struct {
	BatteryBins       BatteryBinsConfig `mapstructure:"battery_bins"`
	ChangeBins        ChangeBinsConfig  `mapstructure:"change_bins"`
	StationaryMetrics []string          `mapstructure:"stationary_metrics"`
	OutlierPercentile float64           `mapstructure:"outlier_percentile"`
	TimeBinHours      float64           `mapstructure:"time_bin_hours"`
}

// BatteryBinsConfig: scaled_value < Low -> low, < Medium -> medium,
// < High -> high, else full.
type BatteryBinsConfig struct {
	Low    float64 `mapstructure:"low"`
	Medium float64 `mapstructure:"medium"`
	High   float64 `mapstructure:"high"`
}

// ChangeBinsConfig: |delta_value| < Small -> small, < Medium -> medium,
// else large.
type ChangeBinsConfig struct {
	Small  float64 `mapstructure:"small"`
	Medium float64 `mapstructure:"medium"`
}

type ViewerConfig struct {
	DistributionBins int `mapstructure:"distribution_bins"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("dataset.source_path", "data/greenhouse_timeseries.csv")
	v.SetDefault("artifact.path", "data/greenhouse_enriched.db")
	v.SetDefault("artifact.batch_size", 500)

	// Domain constants carried over from the source analysis; see DESIGN.md
	// for where each cut point comes from.
	v.SetDefault("features.battery_bins.low", 25.0)
	v.SetDefault("features.battery_bins.medium", 50.0)
	v.SetDefault("features.battery_bins.high", 90.0)
	v.SetDefault("features.change_bins.small", 1.0)
	v.SetDefault("features.change_bins.medium", 5.0)
	v.SetDefault("features.stationary_metrics", []string{
		"current", "sensor_battery_level", "sensor_signal_strength",
	})
	v.SetDefault("features.outlier_percentile", 0.99)
	v.SetDefault("features.time_bin_hours", 2.0)

	v.SetDefault("viewer.distribution_bins", 30)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
