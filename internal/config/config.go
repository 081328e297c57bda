package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

type Config struct {
	Env        string `yaml:"env"`
	Domain     string `yaml:"domain"`
	HTTPServer `yaml:"http_server"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	Cache      `yaml:"cache"`
	Counter    `yaml:"counter"`
	Jobs       `yaml:"jobs"`
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MigrationsPath  string        `yaml:"migrations_path"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
	MigrationsPath:  "file://migrations",
	QueryTimeout:    3 * time.Second,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type Redis struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
}

var defaultRedis = Redis{
	Host:         "localhost",
	Port:         6379,
	DialTimeout:  5 * time.Second,
	ReadTimeout:  3 * time.Second,
	WriteTimeout: 3 * time.Second,
	PoolSize:     10,
	MinIdleConns: 5,
}

func (r *Redis) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type Cache struct {
	URLTTL    time.Duration `yaml:"url_ttl"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

var defaultCache = Cache{
	URLTTL:    time.Hour,
	OpTimeout: 500 * time.Millisecond,
}

type Counter struct {
	Key     string        `yaml:"key"`
	Timeout time.Duration `yaml:"timeout"`
}

var defaultCounter = Counter{
	Key:     "url_counter",
	Timeout: time.Second,
}

type Jobs struct {
	Enabled              bool          `yaml:"enabled"`
	SweepSchedule        string        `yaml:"sweep_schedule"`
	StatsResetSchedule   string        `yaml:"stats_reset_schedule"`
	HitRateCheckSchedule string        `yaml:"hit_rate_check_schedule"`
	LowHitRateThreshold  float64       `yaml:"low_hit_rate_threshold"`
	Timeout              time.Duration `yaml:"timeout"`
	Timezone             string        `yaml:"timezone"`
}

var defaultJobs = Jobs{
	Enabled:              true,
	SweepSchedule:        "0 2 * * *",
	StatsResetSchedule:   "0 3 * * 0",
	HitRateCheckSchedule: "@every 1h",
	LowHitRateThreshold:  0.5,
	Timeout:              10 * time.Minute,
	Timezone:             "UTC",
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.Domain = "http://localhost:8080"
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
	cfg.Redis = defaultRedis
	cfg.Cache = defaultCache
	cfg.Counter = defaultCounter
	cfg.Jobs = defaultJobs
}
