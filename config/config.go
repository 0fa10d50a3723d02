package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
	Content  ContentConfig  `mapstructure:"content"`
	Guild    GuildConfig    `mapstructure:"guild"`
}

type ServerConfig struct {
	Port       int  `mapstructure:"port"`
	Debug      bool `mapstructure:"debug"`
	DemoGuilds int  `mapstructure:"demo_guilds"` // >0 seeds that many demo guilds at startup
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | sqlite_memory | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type SecurityConfig struct {
	JWTSecret      string  `mapstructure:"jwt_secret"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type ContentConfig struct {
	TemplatesPath string `mapstructure:"templates_path"` // empty → built-in defaults
}

type GuildConfig struct {
	DefaultMaxMembers   int           `mapstructure:"default_max_members"`
	DetailCacheTTL      time.Duration `mapstructure:"detail_cache_ttl"`
	RaidDuration        time.Duration `mapstructure:"raid_duration"`
	RaidSweepInterval   time.Duration `mapstructure:"raid_sweep_interval"`
	WeeklyResetInterval time.Duration `mapstructure:"weekly_reset_interval"`
	WarLockTTL          time.Duration `mapstructure:"war_lock_ttl"`
	WarHonorReward      int64         `mapstructure:"war_honor_reward"`
	UpgradeCostPerLevel int64         `mapstructure:"upgrade_cost_per_level"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.demo_guilds", 0)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/guild.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("guild.default_max_members", 50)
	v.SetDefault("guild.detail_cache_ttl", "30s")
	v.SetDefault("guild.raid_duration", "2h")
	v.SetDefault("guild.raid_sweep_interval", "1m")
	v.SetDefault("guild.weekly_reset_interval", "168h")
	v.SetDefault("guild.war_lock_ttl", "10s")
	v.SetDefault("guild.war_honor_reward", 500)
	v.SetDefault("guild.upgrade_cost_per_level", 1000)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
