package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/synaptica-ai/dependability/pkg/common/config"
)

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{
		PostgresHost:     "db",
		PostgresPort:     "5433",
		PostgresUser:     "svc",
		PostgresPassword: "secret",
		PostgresDB:       "dependability",
		PostgresSSLMode:  "require",
	}

	assert.Equal(t,
		"host=db user=svc password=secret dbname=dependability port=5433 sslmode=require",
		PostgresDSN(cfg))
}
