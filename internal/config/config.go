package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/locusmap/internal/domain/fieldconfig"
)

// Config holds the locusmap service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	BlobStore BlobStoreConfig `yaml:"blobstore"`
	Data      DataConfig      `yaml:"data"`
	Index     IndexConfig     `yaml:"index"`
	Fields    FieldsConfig    `yaml:"fields"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"` // empty disables authentication
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Blob store drivers.
const (
	DriverLocal  = "local"
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverMinio  = "minio"
	DriverS3     = "s3"
	DriverHTTP   = "http"
)

// BlobStoreConfig selects and configures the blob store.
type BlobStoreConfig struct {
	Driver   string      `yaml:"driver"` // local, memory, redis, minio, s3, http (default: local)
	Prefix   string      `yaml:"prefix"`
	Compress bool        `yaml:"compress"`
	Local    LocalConfig `yaml:"local"`
	Redis    RedisConfig `yaml:"redis"`
	Minio    MinioConfig `yaml:"minio"`
	S3       S3Config    `yaml:"s3"`
	HTTP     FileServer  `yaml:"http"`
}

// LocalConfig holds filesystem blob store settings.
type LocalConfig struct {
	Dir string `yaml:"dir"`
}

// RedisConfig holds key/value blob store settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 keeps blobs forever
}

// MinioConfig holds MinIO blob store settings.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
	Bucket    string `yaml:"bucket"`
}

// S3Config holds S3 blob store settings. Credentials come from the default AWS chain.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// FileServer holds settings of the /getFile + /writeJson file server.
type FileServer struct {
	BaseURL    string `yaml:"base_url"`
	Dir        string `yaml:"dir"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// DataConfig names the blobs the service reads and writes.
type DataConfig struct {
	RecordsPath string `yaml:"records_path"`
	NodesPath   string `yaml:"nodes_path"`
	IndexPath   string `yaml:"index_path"`
}

// Search index engines.
const (
	EngineLexical = "lexical"
	EngineBleve   = "bleve"
)

// IndexConfig holds search index settings.
type IndexConfig struct {
	Engine            string `yaml:"engine"` // lexical, bleve (default: lexical)
	PersistTimeoutSec int    `yaml:"persist_timeout_sec"`
	DefaultLimit      int    `yaml:"default_limit"`
	MaxLimit          int    `yaml:"max_limit"`
	TempDir           string `yaml:"temp_dir"`
}

// FieldsConfig holds the record and node field configurations.
type FieldsConfig struct {
	Data  FieldSet `yaml:"data"`
	Nodes FieldSet `yaml:"nodes"`
}

// FieldSet is the YAML shape of a field configuration.
type FieldSet struct {
	Separator string            `yaml:"separator"`
	Order     []string          `yaml:"order"`
	Labels    map[string]string `yaml:"labels"`
	Fields    []Field           `yaml:"fields"`
}

// Field is the YAML shape of one field spec.
type Field struct {
	Field     string  `yaml:"field"`
	Action    string  `yaml:"action"`
	Metric    string  `yaml:"metric"`
	From      string  `yaml:"from"`
	GroupBy   GroupBy `yaml:"group_by"`
	Title     string  `yaml:"title"`
	Separator string  `yaml:"separator"`
}

// GroupBy accepts a single field name or a list of names.
// Lists longer than one are kept so validation can reject them.
type GroupBy []string

// UnmarshalYAML decodes a scalar or a sequence.
func (g *GroupBy) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*g = nil
			return nil
		}
		*g = GroupBy{node.Value}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return fmt.Errorf("group_by: %w", err)
		}
		*g = names
		return nil
	default:
		return fmt.Errorf("group_by: line %d: expected a field name or a list", node.Line)
	}
}

// Definition converts the YAML shape into a field configuration definition.
func (s FieldSet) Definition() fieldconfig.Definition {
	def := fieldconfig.Definition{
		Separator: s.Separator,
		Order:     s.Order,
		Labels:    s.Labels,
		Fields:    make([]fieldconfig.FieldDefinition, len(s.Fields)),
	}
	for i, f := range s.Fields {
		def.Fields[i] = fieldconfig.FieldDefinition{
			Field:     f.Field,
			Action:    f.Action,
			Metric:    f.Metric,
			From:      f.From,
			GroupBy:   f.GroupBy,
			Title:     f.Title,
			Separator: f.Separator,
		}
	}
	return def
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML configuration.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.BlobStore.Driver == "" {
		c.BlobStore.Driver = DriverLocal
	}
	if c.BlobStore.Local.Dir == "" {
		c.BlobStore.Local.Dir = "data"
	}
	if c.BlobStore.Redis.ReadinessTimeout <= 0 {
		c.BlobStore.Redis.ReadinessTimeout = 10
	}
	if c.BlobStore.HTTP.TimeoutSec <= 0 {
		c.BlobStore.HTTP.TimeoutSec = 30
	}
	if c.Data.RecordsPath == "" {
		c.Data.RecordsPath = "dataMap.json"
	}
	if c.Data.NodesPath == "" {
		c.Data.NodesPath = "nodes.json"
	}
	if c.Data.IndexPath == "" {
		c.Data.IndexPath = "indexData.json"
	}
	if c.Index.Engine == "" {
		c.Index.Engine = EngineLexical
	}
	if c.Index.PersistTimeoutSec <= 0 {
		c.Index.PersistTimeoutSec = 30
	}
	if c.Index.DefaultLimit <= 0 {
		c.Index.DefaultLimit = 20
	}
	if c.Index.MaxLimit <= 0 {
		c.Index.MaxLimit = 100
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if err := c.BlobStore.validate(); err != nil {
		return err
	}
	switch c.Index.Engine {
	case EngineLexical, EngineBleve:
	default:
		return fmt.Errorf("index.engine must be %q or %q, got %q", EngineLexical, EngineBleve, c.Index.Engine)
	}
	if c.Index.DefaultLimit > c.Index.MaxLimit {
		return fmt.Errorf("index.default_limit %d exceeds index.max_limit %d", c.Index.DefaultLimit, c.Index.MaxLimit)
	}
	if c.BlobStore.Driver == DriverHTTP {
		if c.Index.Engine != EngineLexical {
			return errors.New("blobstore driver \"http\" stores JSON only and requires index.engine \"lexical\"")
		}
		if c.BlobStore.Compress {
			return errors.New("blobstore driver \"http\" stores JSON only and cannot be compressed")
		}
	}
	if _, err := fieldconfig.Validate(c.Fields.Data.Definition()); err != nil {
		return fmt.Errorf("fields.data: %w", err)
	}
	if _, err := fieldconfig.Validate(c.Fields.Nodes.Definition()); err != nil {
		return fmt.Errorf("fields.nodes: %w", err)
	}
	return nil
}

func (b *BlobStoreConfig) validate() error {
	switch b.Driver {
	case DriverLocal, DriverMemory:
	case DriverRedis:
		if len(b.Redis.Addrs) == 0 {
			return errors.New("blobstore.redis.addrs is required")
		}
	case DriverMinio:
		if b.Minio.Endpoint == "" || b.Minio.Bucket == "" {
			return errors.New("blobstore.minio.endpoint and blobstore.minio.bucket are required")
		}
	case DriverS3:
		if b.S3.Bucket == "" {
			return errors.New("blobstore.s3.bucket is required")
		}
	case DriverHTTP:
		if b.HTTP.BaseURL == "" {
			return errors.New("blobstore.http.base_url is required")
		}
	default:
		return fmt.Errorf("unknown blobstore driver %q", b.Driver)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
