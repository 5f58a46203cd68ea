package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		ExternalAPI struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"externalAPI"`
		Pprof struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"pprof"`
		Prometheus struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMode           string `mapstructure:"sslMode"`
			MaxConWaitingTime int    `mapstructure:"maxConWaitingTime"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Engine Engine `mapstructure:"engine"`
}

// Engine holds the recommendation pipeline knobs. Defaults live in the
// embedded config.yml; deployments override per environment.
type Engine struct {
	MaxRecommendations int           `mapstructure:"maxRecommendations"`
	PromptCandidateCap int           `mapstructure:"promptCandidateCap"`
	ExternalResultCap  int           `mapstructure:"externalResultCap"`
	AreaRadiusMeters   float64       `mapstructure:"areaRadiusMeters"`
	CityRadiusMeters   float64       `mapstructure:"cityRadiusMeters"`
	OverdueAfterDays   int           `mapstructure:"overdueAfterDays"`
	OverdueCap         int           `mapstructure:"overdueCap"`
	CacheTTL           time.Duration `mapstructure:"cacheTTL"`
	DailyReasoningCap  int           `mapstructure:"dailyReasoningCap"`
	ReasoningTimeout   time.Duration `mapstructure:"reasoningTimeout"`
	IntentTimeout      time.Duration `mapstructure:"intentTimeout"`
	MaxOutputTokens    int32         `mapstructure:"maxOutputTokens"`
	Model              string        `mapstructure:"model"`
	Timezone           string        `mapstructure:"timezone"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	return config, nil
}
