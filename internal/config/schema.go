package config

// Config is the top-level YAML structure. Every field can be overridden
// from the environment.
type Config struct {
	DataDir   string     `yaml:"data_dir" env:"SLC_DATA_DIR"`
	Store     StoreConf  `yaml:"store"`
	CacheSize int        `yaml:"cache_size" env:"SLC_CACHE_SIZE"`
	Watch     bool       `yaml:"watch" env:"SLC_WATCH"`
	Server    ServerConf `yaml:"server"`
	Log       LogConf    `yaml:"log"`
}

// StoreConf selects the collaborator store backend.
type StoreConf struct {
	Backend    string `yaml:"backend" env:"SLC_BACKEND"` // "file" or "sqlite"
	SQLitePath string `yaml:"sqlite_path" env:"SLC_SQLITE_PATH"`
}

// ServerConf holds the HTTP settings of `slcreator serve`.
type ServerConf struct {
	Addr              string `yaml:"addr" env:"SLC_ADDR"`
	ShutdownTimeoutMs int    `yaml:"shutdown_timeout_ms"`
	EventQueueDepth   int    `yaml:"event_queue_depth"`
}

// LogConf configures the slog handler built in main.
type LogConf struct {
	Level  string `yaml:"level" env:"SLC_LOG_LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"SLC_LOG_FORMAT"` // text or json
}
