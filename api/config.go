package api

import (
	"errors"
	"time"

	"github.com/c2h5oh/datasize"
)

type CORSConfig struct {
	TrustedOrigins []string `yaml:"trusted_origins"`
}

type Config struct {
	Addr     string `yaml:"addr"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	// MaxBodySize limits request bodies, documents included.
	MaxBodySize datasize.ByteSize `yaml:"max_body_size"`
	CORS        CORSConfig        `yaml:"cors"`

	// ShutdownTimeout bounds the wait for in-flight requests on shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

const defaultShutdownTimeout = 10 * time.Second

func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return defaultShutdownTimeout
	}
	return c.ShutdownTimeout
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("api server address is required")
	}

	if c.MaxBodySize == 0 {
		return errors.New("api max body size cannot be zero")
	}

	return nil
}
