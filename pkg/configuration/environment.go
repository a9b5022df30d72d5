package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

var singleton = newSingleton()

func newSingleton() func() *Configuration {
	return sync.OnceValue(func() *Configuration {
		c := &Configuration{}
		if err := c.load([]string{".env", ".env.local"}); err != nil {
			panic(err)
		}
		return c
	})
}

// Use returns the process-wide configuration, loading it on first call.
func Use() *Configuration {
	return singleton()
}

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"datagate"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type Configuration struct {
	Database DatabaseOptions

	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	PageSize         int    `env:"PAGE_SIZE" envDefault:"25"`
	MaxPageSize      int    `env:"MAX_PAGE_SIZE" envDefault:"100"`
	// Incoming request id header consumed when enriching attempt/audit records.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-Id"`
	RealIPHeader    string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

	logger *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.ErrorLevel
	}
	return level
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetLevel(c.LogrusLogLevel())
	if c.GoAppEnvironment == Production {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

// Unload drops the cached configuration so the next Use() reloads it.
func (c *Configuration) Unload() {
	singleton = newSingleton()
}
