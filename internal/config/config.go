package config

type Config struct {
	ConfigVersion int             `yaml:"configVersion"`
	Libraries     []Library       `yaml:"libraries"`
	MetaFiles     MetaFilesConfig `yaml:"metaFiles"`
	Scan          ScanConfig      `yaml:"scan"`
	Index         IndexConfig     `yaml:"index"`
	Server        ServerConfig    `yaml:"server"`
	Cache         CacheConfig     `yaml:"cache"`
	Logging       LoggingConfig   `yaml:"logging"`
	Metrics       MetricsConfig   `yaml:"metrics"`

	baseDir string `yaml:"-"`
}

// Library is a directory tree whose meta files are indexed and served
// below Mount.
type Library struct {
	Name  string `yaml:"name"`
	Root  string `yaml:"root"`
	Mount string `yaml:"mount"`
}

type MetaFilesConfig struct {
	Self string `yaml:"self"`
	Item string `yaml:"item"`
}

type ScanConfig struct {
	Workers int      `yaml:"workers"`
	Ignore  []string `yaml:"ignore"`
}

type IndexConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Listen    string          `yaml:"listen"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

type RateLimitConfig struct {
	Enabled    bool    `yaml:"enabled"`
	RPS        float64 `yaml:"rps"`
	Burst      int     `yaml:"burst"`
	StatusCode int     `yaml:"statusCode"`
}

// CacheConfig sizes the server's lookup cache. An unset or zero size means
// DefaultCacheSize; any negative size turns the cache off.
type CacheConfig struct {
	Size int `yaml:"size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	EventLog string `yaml:"eventLog"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

const (
	DefaultSelfFile    = "self.yml"
	DefaultItemFile    = "item.yml"
	DefaultWorkers     = 4
	DefaultCacheSize   = 256
	DefaultIndexPath   = "metapath.db"
	DefaultLogLevel    = "info"
	DefaultListen      = "127.0.0.1:8080"
	FormatConsole      = "console"
	FormatJSON         = "json"
	defaultLimitStatus = 429
)

// ApplyDefaults fills unset fields. Load calls it.
func (c *Config) ApplyDefaults() {
	if c.MetaFiles.Self == "" {
		c.MetaFiles.Self = DefaultSelfFile
	}
	if c.MetaFiles.Item == "" {
		c.MetaFiles.Item = DefaultItemFile
	}
	if c.Scan.Workers == 0 {
		c.Scan.Workers = DefaultWorkers
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = DefaultCacheSize
	}
	if c.Index.Path == "" {
		c.Index.Path = DefaultIndexPath
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.RateLimit.StatusCode == 0 {
		c.Server.RateLimit.StatusCode = defaultLimitStatus
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = FormatConsole
	}
}

// Library returns the library with the given name.
func (c *Config) Library(name string) (Library, bool) {
	for _, lib := range c.Libraries {
		if lib.Name == name {
			return lib, true
		}
	}
	return Library{}, false
}

func (c *Config) BaseDir() string {
	return c.baseDir
}

func (c *Config) ResolvePath(path string) string {
	return c.resolvePath(path)
}
