package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/gmalla/backend/internal/service"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	AdminKey       string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`

	BCBaseURL        string        `mapstructure:"BC_BASE_URL"`
	BCCompany        string        `mapstructure:"BC_COMPANY"`
	BCAPIKey         string        `mapstructure:"BC_API_KEY"`
	BCUsername       string        `mapstructure:"BC_USERNAME"`
	BCPassword       string        `mapstructure:"BC_PASSWORD"`
	BCIncidencesPath string        `mapstructure:"BC_INCIDENCES_PATH"`
	BCDetailPath     string        `mapstructure:"BC_DETAIL_PATH"`
	BCTimeout        time.Duration `mapstructure:"BC_TIMEOUT"`
	BCDetailRPS      float64       `mapstructure:"BC_DETAIL_RPS"`

	GTaskAPIURL   string        `mapstructure:"GTASK_API_URL"`
	GTaskUsername string        `mapstructure:"GTASK_USERNAME"`
	GTaskPassword string        `mapstructure:"GTASK_PASSWORD"`
	GTaskTimeout  time.Duration `mapstructure:"GTASK_TIMEOUT"`
	UsersCacheTTL time.Duration `mapstructure:"USERS_CACHE_TTL"`
	RedisURL      string        `mapstructure:"REDIS_URL"`

	LLMBaseURL     string        `mapstructure:"LLM_BASE_URL"`
	LLMModel       string        `mapstructure:"LLM_MODEL"`
	LLMAPIKey      string        `mapstructure:"LLM_API_KEY"`
	LLMTimeout     time.Duration `mapstructure:"LLM_TIMEOUT"`
	LLMMaxTokens   int           `mapstructure:"LLM_MAX_TOKENS"`
	LLMTemperature float64       `mapstructure:"LLM_TEMPERATURE"`

	PlanWorkStart     string  `mapstructure:"PLAN_WORK_START"`
	PlanWorkEnd       string  `mapstructure:"PLAN_WORK_END"`
	PlanMinMinutes    int     `mapstructure:"PLAN_MIN_MINUTES"`
	PlanSpeedKmh      float64 `mapstructure:"PLAN_SPEED_KMH"`
	PlanLookaheadDays int     `mapstructure:"PLAN_LOOKAHEAD_DAYS"`

	RabbitMQURL      string `mapstructure:"RABBITMQ_URL"`
	RabbitMQExchange string `mapstructure:"RABBITMQ_EXCHANGE"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if _, _, err := cfg.WorkWindow(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("ADMIN_KEY", "")

	v.SetDefault("BC_BASE_URL", "https://bc220.malla.es")
	v.SetDefault("BC_COMPANY", "Malla Publicidad")
	v.SetDefault("BC_API_KEY", "")
	v.SetDefault("BC_USERNAME", "")
	v.SetDefault("BC_PASSWORD", "")
	v.SetDefault("BC_INCIDENCES_PATH", "/powerbi/ODataV4/GtaskMalla_PostIncidencia")
	v.SetDefault("BC_DETAIL_PATH", "/powerbi/ODataV4/GtaskMalla_DetalleIncidencia")
	v.SetDefault("BC_TIMEOUT", "120s")
	v.SetDefault("BC_DETAIL_RPS", 5.0)

	v.SetDefault("GTASK_API_URL", "https://gtasks-api.deploy.malla.es")
	v.SetDefault("GTASK_USERNAME", "")
	v.SetDefault("GTASK_PASSWORD", "")
	v.SetDefault("GTASK_TIMEOUT", "30s")
	v.SetDefault("USERS_CACHE_TTL", "1h")
	v.SetDefault("REDIS_URL", "")

	v.SetDefault("LLM_BASE_URL", "")
	v.SetDefault("LLM_MODEL", "deepseek-r1-distill-qwen-7b")
	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("LLM_TIMEOUT", "180s")
	v.SetDefault("LLM_MAX_TOKENS", 4000)
	v.SetDefault("LLM_TEMPERATURE", 0.3)

	v.SetDefault("PLAN_WORK_START", "06:30")
	v.SetDefault("PLAN_WORK_END", "12:30")
	v.SetDefault("PLAN_MIN_MINUTES", 20)
	v.SetDefault("PLAN_SPEED_KMH", 40.0)
	v.SetDefault("PLAN_LOOKAHEAD_DAYS", 30)

	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "gmalla.events")
}

// WorkWindow parses the daily window as minutes since midnight.
func (c Config) WorkWindow() (start, end int, err error) {
	start, err = ParseClock(c.PlanWorkStart)
	if err != nil {
		return 0, 0, fmt.Errorf("PLAN_WORK_START: %w", err)
	}
	end, err = ParseClock(c.PlanWorkEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("PLAN_WORK_END: %w", err)
	}
	if end <= start {
		return 0, 0, fmt.Errorf("work window end %s must be after start %s", c.PlanWorkEnd, c.PlanWorkStart)
	}
	return start, end, nil
}

// PlanConfig converts the planner settings. Load has already validated the window.
func (c Config) PlanConfig() service.PlanConfig {
	pc := service.DefaultPlanConfig()
	if start, end, err := c.WorkWindow(); err == nil {
		pc.WorkStart, pc.WorkEnd = start, end
	}
	if c.PlanMinMinutes > 0 {
		pc.MinMinutes = c.PlanMinMinutes
	}
	if c.PlanSpeedKmh > 0 {
		pc.SpeedKmh = c.PlanSpeedKmh
	}
	if c.PlanLookaheadDays > 0 {
		pc.LookaheadDays = c.PlanLookaheadDays
	}
	if c.LLMMaxTokens > 0 {
		pc.MaxTokens = c.LLMMaxTokens
	}
	if c.LLMTemperature >= 0 {
		pc.Temperature = c.LLMTemperature
	}
	return pc
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return h*60 + m, nil
}
