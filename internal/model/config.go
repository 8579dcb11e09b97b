package model

import "time"

// Config holds all ontograph settings
type Config struct {
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Build       BuildConfig       `yaml:"build" mapstructure:"build"`
	Specificity SpecificityConfig `yaml:"specificity" mapstructure:"specificity"`
	Graph       GraphConfig       `yaml:"graph" mapstructure:"graph"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Mirror      MirrorConfig      `yaml:"mirror" mapstructure:"mirror"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" mapstructure:"telemetry"`
}

// LogConfig selects the zap preset
type LogConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode" validate:"oneof=production development"`
}

// StoreConfig configures the term/rule/edge store
type StoreConfig struct {
	Driver         string  `yaml:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN            string  `yaml:"dsn" mapstructure:"dsn" validate:"required"`
	PageSize       int     `yaml:"page_size" mapstructure:"page_size" validate:"gt=0"`
	ReadsPerSecond float64 `yaml:"reads_per_second" mapstructure:"reads_per_second" validate:"gte=0"`
	ReadBurst      int     `yaml:"read_burst" mapstructure:"read_burst" validate:"gte=0"`
}

// BuildConfig configures the write path
type BuildConfig struct {
	Workers             int           `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
	Timeout             time.Duration `yaml:"timeout" mapstructure:"timeout"`
	ConfidenceFloor     float64       `yaml:"confidence_floor" mapstructure:"confidence_floor" validate:"gte=0,lte=1"`
	DefaultConfidence   float64       `yaml:"default_confidence" mapstructure:"default_confidence" validate:"gte=0,lte=1"`
	Reinforcement       float64       `yaml:"reinforcement" mapstructure:"reinforcement" validate:"gt=0,lte=1"`
	EvidenceLimit       int           `yaml:"evidence_limit" mapstructure:"evidence_limit" validate:"gte=1"`
	GlobalMinFrequency  int           `yaml:"global_min_frequency" mapstructure:"global_min_frequency" validate:"gte=1"`
	GlobalMinConfidence float64       `yaml:"global_min_confidence" mapstructure:"global_min_confidence" validate:"gte=0,lte=1"`
	LockStripes         int           `yaml:"lock_stripes" mapstructure:"lock_stripes" validate:"gte=1"`
}

// SpecificityConfig drives hub filtering of generic source terms
type SpecificityConfig struct {
	Threshold    float64  `yaml:"threshold" mapstructure:"threshold" validate:"gte=0,lte=1"`
	GenericNouns []string `yaml:"generic_nouns" mapstructure:"generic_nouns"`
	Modifiers    []string `yaml:"modifiers" mapstructure:"modifiers"`
}

// GraphConfig holds query defaults
type GraphConfig struct {
	MaxDepth         int           `yaml:"max_depth" mapstructure:"max_depth" validate:"gte=0"`
	MinConfidence    float64       `yaml:"min_confidence" mapstructure:"min_confidence" validate:"gte=0,lte=1"`
	Limit            int           `yaml:"limit" mapstructure:"limit" validate:"gte=1"`
	FetchConcurrency int           `yaml:"fetch_concurrency" mapstructure:"fetch_concurrency" validate:"gte=1"`
	QueryTimeout     time.Duration `yaml:"query_timeout" mapstructure:"query_timeout"`
}

// CacheConfig configures the query result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend" validate:"oneof=memory disk redis layered"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	RedisAddr string        `yaml:"redis_addr" mapstructure:"redis_addr"`
}

// ServerConfig configures the HTTP adapter
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr" validate:"required"`
	Mode string `yaml:"mode" mapstructure:"mode" validate:"oneof=debug release test"`
}

// MirrorConfig points at the optional neo4j mirror
type MirrorConfig struct {
	URI       string `yaml:"uri" mapstructure:"uri"`
	Username  string `yaml:"username" mapstructure:"username"`
	Password  string `yaml:"password,omitempty" mapstructure:"password"`
	Database  string `yaml:"database" mapstructure:"database"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size" validate:"gte=1"`
}

// TelemetryConfig toggles tracing
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Mode: "production"},
		Store: StoreConfig{
			Driver:         "sqlite",
			DSN:            "ontograph.db",
			PageSize:       1000,
			ReadsPerSecond: 0,
			ReadBurst:      5,
		},
		Build: BuildConfig{
			Workers:             1,
			Timeout:             30 * time.Minute,
			ConfidenceFloor:     0.5,
			DefaultConfidence:   0.8,
			Reinforcement:       0.2,
			EvidenceLimit:       3,
			GlobalMinFrequency:  2,
			GlobalMinConfidence: 0.8,
			LockStripes:         64,
		},
		Specificity: SpecificityConfig{
			Threshold: 0.3,
			GenericNouns: []string{
				"스테이지", "stage", "유저", "user", "이벤트", "event",
				"아이템", "item", "보상", "reward", "콘텐츠", "content",
				"시스템", "system", "게임", "game", "플레이어", "player",
			},
			Modifiers: []string{
				"보스", "일반", "특수", "한정", "고난이도", "저난이도",
				"신규", "기존", "복귀", "이탈", "활성",
				"무료", "유료", "프리미엄",
				"첫", "마지막", "최종", "초기",
				"boss", "special", "limited", "new", "returning",
				"free", "paid", "premium",
			},
		},
		Graph: GraphConfig{
			MaxDepth:         3,
			MinConfidence:    0.5,
			Limit:            20,
			FetchConcurrency: 4,
			QueryTimeout:     10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "memory",
			TTL:     5 * time.Minute,
			Dir:     ".ontograph-cache",
		},
		Server: ServerConfig{
			Addr: ":8080",
			Mode: "release",
		},
		Mirror: MirrorConfig{
			URI:       "neo4j://localhost:7687",
			Username:  "neo4j",
			Database:  "neo4j",
			BatchSize: 500,
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "ontograph",
		},
	}
}
