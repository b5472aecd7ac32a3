package main

import (
	"context"
	"emi-engine/internal/config"
	"emi-engine/internal/event"
	"emi-engine/internal/infrastructure/logging"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeApp(t *testing.T) {
	cfg, log := initializeApp()

	assert.NotNil(t, cfg, "Config should not be nil")
	assert.NotNil(t, log, "Logger should not be nil")
}

func TestStartServer(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:         0,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  5 * time.Second,
		},
	}
	logger := logging.NewLogger(config.LoggerConfig{})
	router := http.NewServeMux()

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	defer srv.Close()

	assert.NotNil(t, srv, "Server should not be nil")
	assert.NotNil(t, serverErrors, "Server errors channel should not be nil")
	assert.NotNil(t, shutdownChan, "Shutdown channel should not be nil")
}

func TestHandleShutdown(t *testing.T) {
	logger := logging.NewLogger(config.LoggerConfig{})
	cronScheduler := cron.New()
	srv := &http.Server{}
	shutdownChan := make(chan os.Signal, 1)
	serverErrors := make(chan error, 1)
	serverErrors <- nil

	tracingFlushed := false
	shutdownTracing := func(context.Context) error {
		tracingFlushed = true
		return nil
	}

	go func() {
		shutdownChan <- syscall.SIGINT
	}()

	handleShutdown(srv, cronScheduler, nil, nil, shutdownTracing, shutdownChan, serverErrors, logger)
	assert.True(t, tracingFlushed, "Tracing should be flushed on shutdown")
}

func TestRabbitMQURI(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.RabbitMQConfig
		want    string
		wantErr bool
	}{
		{"credentials", config.RabbitMQConfig{Host: "mq", Port: 5673, Username: "u", Password: "p"}, "amqp://u:p@mq:5673", false},
		{"anonymous with default port", config.RabbitMQConfig{Host: "mq"}, "amqp://mq:5672", false},
		{"missing host", config.RabbitMQConfig{}, "", true},
		{"username without password", config.RabbitMQConfig{Host: "mq", Username: "u"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rabbitMQURI(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitializePublisherFallsBackToLog(t *testing.T) {
	logger := logging.NewLogger(config.LoggerConfig{})
	publisher := initializePublisher(&config.Config{}, nil, logger)

	_, ok := publisher.(*event.LogEventPublisher)
	assert.True(t, ok, "publisher should fall back to the log publisher")
}

func TestInitializeRedisClientWithoutAddress(t *testing.T) {
	logger := logging.NewLogger(config.LoggerConfig{})
	assert.Nil(t, initializeRedisClient(&config.Config{}, logger))
}

func TestInitializePolicy(t *testing.T) {
	logger := logging.NewLogger(config.LoggerConfig{})
	policy := initializePolicy(&config.Config{Loan: config.LoanConfig{RoundingTolerance: "2.50"}}, logger)
	assert.Equal(t, "2.50", policy.RoundingTolerance.StringFixed(2))
}
