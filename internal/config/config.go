// Package config defines the zone server's configuration surface,
// following the teacher's Default*/Load* convention: every section has
// a DefaultX() constructor, and LoadServerConfig unmarshals a single
// YAML document over those defaults so a missing or partial file
// degrades gracefully.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig is the root configuration document for one zone
// process. It groups per-arena sections (Team, Soccer, Brick, Security)
// that spec.md §4 scopes "per arena" but which every arena shares a
// process-wide default of, and global sections (Routing, Billing,
// ConfigAuth, Files, Database).
type ServerConfig struct {
	Team       TeamConfig       `yaml:"team"`
	Soccer     SoccerConfig     `yaml:"soccer"`
	Brick      BrickConfig      `yaml:"brick"`
	Routing    RoutingConfig    `yaml:"routing"`
	Security   SecurityConfig   `yaml:"security"`
	Billing    BillingConfig    `yaml:"billing"`
	ConfigAuth ConfigAuthConfig `yaml:"config_auth"`
	Files      FilesConfig      `yaml:"files"`
	Database   DatabaseConfig   `yaml:"database"`
	LogLevel   string           `yaml:"log_level"`

	// IdleThresholdSeconds is how long a player must go without
	// activity (movement, chat, weapon fire) before ?idles/greet
	// bookkeeping considers them idle.
	IdleThresholdSeconds int `yaml:"idle_threshold_seconds"`
}

// IdleThreshold returns IdleThresholdSeconds as a time.Duration.
func (c ServerConfig) IdleThreshold() time.Duration {
	return time.Duration(c.IdleThresholdSeconds) * time.Second
}

// TeamConfig is spec.md §4.1's "Team" section.
type TeamConfig struct {
	MaxFrequency            int  `yaml:"max_frequency"`
	DesiredTeams            int  `yaml:"desired_teams"`
	RequiredTeams           int  `yaml:"required_teams"`
	RememberedTeams         int  `yaml:"remembered_teams"`
	PrivFreqStart           int  `yaml:"priv_freq_start"`
	BalancedAgainstStart    int  `yaml:"balanced_against_start"`
	BalancedAgainstEnd      int  `yaml:"balanced_against_end"`
	DisallowTeamSpectators  bool `yaml:"disallow_team_spectators"`
	InitialSpec             bool `yaml:"initial_spec"`
	MaxPlaying              int  `yaml:"max_playing"`
	MaxPerTeam              int  `yaml:"max_per_team"`
	MaxPerPrivateTeam       int  `yaml:"max_per_private_team"`
	IncludeSpectators       bool `yaml:"include_spectators"`
	MaxXres                 int  `yaml:"max_xres"`
	MaxYres                 int  `yaml:"max_yres"`
	MaxResArea              int  `yaml:"max_res_area"`
	ForceEvenTeams          bool `yaml:"force_even_teams"`
	MaxTeamDifference       int  `yaml:"max_team_difference"`
}

func DefaultTeamConfig() TeamConfig {
	return TeamConfig{
		MaxFrequency:         10000,
		DesiredTeams:         2,
		RequiredTeams:        2,
		RememberedTeams:      2,
		PrivFreqStart:        100,
		BalancedAgainstStart: 0,
		BalancedAgainstEnd:   1,
		MaxPlaying:           0,
		MaxPerTeam:           0,
		MaxPerPrivateTeam:    0,
		IncludeSpectators:    false,
		ForceEvenTeams:       false,
		MaxTeamDifference:    1,
	}
}

// SoccerConfig is spec.md §4.2's "Soccer" section.
type SoccerConfig struct {
	BallCount              int       `yaml:"ball_count"`
	Mode                   string    `yaml:"mode"`
	SpawnCenters           []SpawnPoint `yaml:"spawn_centers"`
	SendTime               int       `yaml:"send_time_ms"`
	GoalDelay              int       `yaml:"goal_delay_ticks"`
	AllowGoalByDeath       bool      `yaml:"allow_goal_by_death"`
	KillerIgnorePassDelay  int       `yaml:"killer_ignore_pass_delay_ticks"`
	NewGameDelay           int       `yaml:"new_game_delay_ticks"`
}

// SpawnPoint is one ball spawn center and its sampling radius.
type SpawnPoint struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Radius int `yaml:"radius"`
}

func DefaultSoccerConfig() SoccerConfig {
	return SoccerConfig{
		BallCount:  0,
		Mode:       "All",
		SendTime:   200,
		GoalDelay:  0,
		NewGameDelay: 0,
	}
}

// BrickConfig is spec.md §4.3's "Brick" section.
type BrickConfig struct {
	BrickSpan       int `yaml:"brick_span"`
	BrickTime       int `yaml:"brick_time_ticks"`
	MaxActiveBricks int `yaml:"max_active_bricks"`
}

func DefaultBrickConfig() BrickConfig {
	return BrickConfig{
		BrickSpan:       10,
		BrickTime:       6000,
		MaxActiveBricks: 256,
	}
}

// RoutingConfig is spec.md §4.3's "Routing" section.
type RoutingConfig struct {
	WallResendCount int `yaml:"wall_resend_count"`
}

func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{WallResendCount: 3}
}

// SecurityConfig is spec.md §4.4's "Security" section.
type SecurityConfig struct {
	SecurityKickoff         bool   `yaml:"security_kickoff"`
	SwitchIntervalSeconds   int    `yaml:"switch_interval_seconds"`
	CheckDelaySeconds       int    `yaml:"check_delay_seconds"`
	ScrtyFile               string `yaml:"scrty_file"`
}

func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		SecurityKickoff:       true,
		SwitchIntervalSeconds: 60,
		CheckDelaySeconds:     15,
		ScrtyFile:             "scrty",
	}
}

// BillingConfig is spec.md §4.7's billing section. MaxPendingAuths and
// MaxInterruptedAuths were hard constants in the source; Open Question
// 4 (see DESIGN.md) promotes them to config here.
type BillingConfig struct {
	Host                      string `yaml:"host"`
	Port                      int    `yaml:"port"`
	RetryIntervalSeconds      int    `yaml:"retry_interval_seconds"`
	MaxPendingAuths           int    `yaml:"max_pending_auths"`
	MaxInterruptedAuths       int    `yaml:"max_interrupted_auths"`
	MaxConcurrentBannerUpload int    `yaml:"max_concurrent_banner_upload"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		Host:                      "127.0.0.1",
		Port:                      9010,
		RetryIntervalSeconds:      30,
		MaxPendingAuths:           15,
		MaxInterruptedAuths:       20,
		MaxConcurrentBannerUpload: 5,
	}
}

// ConfigAuthConfig is spec.md §4.8's section.
type ConfigAuthConfig struct {
	GlobalFile string `yaml:"global_file"`
	ArenaFile  string `yaml:"arena_file"`
}

func DefaultConfigAuthConfig() ConfigAuthConfig {
	return ConfigAuthConfig{
		GlobalFile: "conf/cfgauthg.conf",
		ArenaFile:  "conf/cfgautha.conf",
	}
}

// FilesConfig groups the filesystem locations spec.md §4.5/§4.6 read
// from and write to.
type FilesConfig struct {
	AssetDir     string `yaml:"asset_dir"`
	NewsFile     string `yaml:"news_file"`
	UploadTmpDir string `yaml:"upload_tmp_dir"`
	ServerRoot   string `yaml:"server_root"`
}

func DefaultFilesConfig() FilesConfig {
	return FilesConfig{
		AssetDir:     "maps",
		NewsFile:     "news.txt",
		UploadTmpDir: "tmp",
		ServerRoot:   ".",
	}
}

// DatabaseConfig holds PostgreSQL connection parameters for the
// score-persistence store, unchanged in shape from the teacher's
// DatabaseConfig.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	MaxConns          int32  `yaml:"max_conns"`
	MinConns          int32  `yaml:"min_conns"`
	MaxConnLifetime   string `yaml:"max_conn_lifetime"`
	MaxConnIdleTime   string `yaml:"max_conn_idle_time"`
	HealthCheckPeriod string `yaml:"health_check_period"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	base := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)

	var params []string
	if d.MaxConns > 0 {
		params = append(params, fmt.Sprintf("pool_max_conns=%d", d.MaxConns))
	}
	if d.MinConns > 0 {
		params = append(params, fmt.Sprintf("pool_min_conns=%d", d.MinConns))
	}
	if d.MaxConnLifetime != "" {
		params = append(params, fmt.Sprintf("pool_max_conn_lifetime=%s", d.MaxConnLifetime))
	}
	if d.MaxConnIdleTime != "" {
		params = append(params, fmt.Sprintf("pool_max_conn_idle_time=%s", d.MaxConnIdleTime))
	}
	if d.HealthCheckPeriod != "" {
		params = append(params, fmt.Sprintf("pool_health_check_period=%s", d.HealthCheckPeriod))
	}

	if len(params) > 0 {
		return base + "&" + strings.Join(params, "&")
	}
	return base
}

func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:    "127.0.0.1",
		Port:    5432,
		User:    "zonecore",
		Password: "zonecore",
		DBName:  "zonecore",
		SSLMode: "disable",
	}
}

// DefaultServerConfig returns a ServerConfig with every section at its
// documented default.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Team:       DefaultTeamConfig(),
		Soccer:     DefaultSoccerConfig(),
		Brick:      DefaultBrickConfig(),
		Routing:    DefaultRoutingConfig(),
		Security:   DefaultSecurityConfig(),
		Billing:    DefaultBillingConfig(),
		ConfigAuth: DefaultConfigAuthConfig(),
		Files:      DefaultFilesConfig(),
		Database:   DefaultDatabaseConfig(),
		LogLevel:   "info",

		IdleThresholdSeconds: 300,
	}
}

// LoadServerConfig loads the zone server config from a YAML file. If
// the file doesn't exist, returns defaults.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
