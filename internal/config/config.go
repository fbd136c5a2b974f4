package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Configuration struct {
	Server     ServerConfig     `json:"server"`
	Site       SiteConfig       `json:"site"`
	Logging    LoggingConfig    `json:"logging"`
	Feeds      FeedConfig       `json:"feeds"`
	Validation ValidationConfig `json:"validation"`
	OAI        OAIConfig        `json:"oai"`
	Database   DatabaseConfig   `json:"database"`
}

type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// SiteConfig identifies this repository in feeds and OAI responses.
type SiteConfig struct {
	Name       string `json:"name"`
	Domain     string `json:"domain"`
	AuthorName string `json:"author_name"`
	AuthorURI  string `json:"author_uri"`
}

type LoggingConfig struct {
	Level        string `json:"level"`
	FilePath     string `json:"file_path"`
	ConsoleLevel string `json:"console_level"`
	FileLevel    string `json:"file_level"`
	Format       string `json:"format"`
}

// FeedConfig sets the page sizes for the paginated Atom surfaces.
type FeedConfig struct {
	BagPageSize      int `json:"bag_page_size"`
	NodePageSize     int `json:"node_page_size"`
	QueuePageSize    int `json:"queue_page_size"`
	ValidatePageSize int `json:"validate_page_size"`
	PublicPageSize   int `json:"public_page_size"`
}

type ValidationConfig struct {
	// PeriodDays is how long a verification stays fresh before the
	// record becomes eligible for random re-selection.
	PeriodDays int `json:"period_days"`
}

func (v ValidationConfig) Period() time.Duration {
	return time.Duration(v.PeriodDays) * 24 * time.Hour
}

type OAIConfig struct {
	RepositoryName    string   `json:"repository_name"`
	AdminEmails       []string `json:"admin_emails"`
	EarliestDatestamp string   `json:"earliest_datestamp"`
	BatchSize         int      `json:"batch_size"`
}

type DatabaseConfig struct {
	Host            string `json:"host"`
	Port            string `json:"port"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	Name            string `json:"name"`
	SSLMode         string `json:"ssl_mode"`
	MaxIdleConns    int    `json:"max_idle_conns"`
	MaxOpenConns    int    `json:"max_open_conns"`
	ConnMaxLifetime int    `json:"conn_max_lifetime"`
}

var (
	config     *Configuration
	configOnce sync.Once
	configLock sync.RWMutex
)

func LoadConfig(filePath string) (*Configuration, error) {
	var err error

	configOnce.Do(func() {
		var file *os.File
		file, err = os.Open(filePath)
		if err != nil {
			err = fmt.Errorf("failed to open config file: %w", err)
			return
		}
		defer file.Close()

		decoder := json.NewDecoder(file)
		config = &Configuration{}
		err = decoder.Decode(config)
		if err != nil {
			err = fmt.Errorf("failed to decode config file: %w", err)
			return
		}

		applyDefaults(config)
	})

	return config, err
}

func applyDefaults(cfg *Configuration) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Site.Name == "" {
		cfg.Site.Name = "Coda"
	}
	if cfg.Site.Domain == "" {
		cfg.Site.Domain = "localhost:" + cfg.Server.Port
	}
	if cfg.Feeds.BagPageSize == 0 {
		cfg.Feeds.BagPageSize = 20
	}
	if cfg.Feeds.NodePageSize == 0 {
		cfg.Feeds.NodePageSize = 15
	}
	if cfg.Feeds.QueuePageSize == 0 {
		cfg.Feeds.QueuePageSize = 10
	}
	if cfg.Feeds.ValidatePageSize == 0 {
		cfg.Feeds.ValidatePageSize = 20
	}
	if cfg.Feeds.PublicPageSize == 0 {
		cfg.Feeds.PublicPageSize = 20
	}
	if cfg.Validation.PeriodDays == 0 {
		cfg.Validation.PeriodDays = 365
	}
	if cfg.OAI.RepositoryName == "" {
		cfg.OAI.RepositoryName = cfg.Site.Name
	}
	if cfg.OAI.EarliestDatestamp == "" {
		cfg.OAI.EarliestDatestamp = "2004-05-19T00:00:00Z"
	}
	if cfg.OAI.BatchSize == 0 {
		cfg.OAI.BatchSize = 500
	}
}

func GetConfig() *Configuration {
	configLock.RLock()
	defer configLock.RUnlock()
	return config
}

func UpdateConfig(updater func(*Configuration)) {
	configLock.Lock()
	defer configLock.Unlock()
	updater(config)
}

func InitializeDefaultConfig() *Configuration {
	configLock.Lock()
	defer configLock.Unlock()

	config = &Configuration{
		Server: ServerConfig{
			Port:         "8000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Site: SiteConfig{
			Name:       "Coda",
			Domain:     "localhost:8000",
			AuthorName: "Coda",
			AuthorURI:  "http://localhost:8000/",
		},
		Logging: LoggingConfig{
			Level:        "info",
			FilePath:     "logs/coda.log",
			ConsoleLevel: "info",
			FileLevel:    "debug",
			Format:       "json",
		},
		Feeds: FeedConfig{
			BagPageSize:      20,
			NodePageSize:     15,
			QueuePageSize:    10,
			ValidatePageSize: 20,
			PublicPageSize:   20,
		},
		Validation: ValidationConfig{
			PeriodDays: 365,
		},
		OAI: OAIConfig{
			RepositoryName:    "Coda",
			AdminEmails:       []string{"coda@example.com"},
			EarliestDatestamp: "2004-05-19T00:00:00Z",
			BatchSize:         500,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            "5432",
			Username:        "postgres",
			Password:        "password",
			Name:            "coda",
			SSLMode:         "disable",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: 300,
		},
	}

	return config
}

func LogConfig(logger *zap.Logger) {
	configLock.RLock()
	defer configLock.RUnlock()

	redactedConfig := *config
	redactedConfig.Database.Password = "[REDACTED]"

	logger.Info("Application configuration",
		zap.String("port", redactedConfig.Server.Port),
		zap.Duration("read_timeout", redactedConfig.Server.ReadTimeout),
		zap.Duration("write_timeout", redactedConfig.Server.WriteTimeout),
		zap.String("site_name", redactedConfig.Site.Name),
		zap.String("site_domain", redactedConfig.Site.Domain),
		zap.Int("validation_period_days", redactedConfig.Validation.PeriodDays),
		zap.Int("oai_batch_size", redactedConfig.OAI.BatchSize),
		zap.String("database_host", redactedConfig.Database.Host),
		zap.String("database_name", redactedConfig.Database.Name),
	)
}
