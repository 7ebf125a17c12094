package main

import (
	"fmt"
	"log"
	"time"

	"alertmon/internal/config"
	"alertmon/internal/database"
	"alertmon/internal/handlers"
	"alertmon/internal/jira"
	"alertmon/internal/metrics"
	"alertmon/internal/publish"
	"alertmon/internal/server"
	"alertmon/internal/slack"
	"alertmon/internal/store"
	"alertmon/internal/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database connection
	db, err := database.NewConnection(cfg.Db)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.Db.Driver == "sqlite" {
		fmt.Printf("Connected to database: %s\n", cfg.Db.Path)
	} else {
		fmt.Printf("Connected to database: %s:%d/%s\n",
			cfg.Db.Host, cfg.Db.Port, cfg.Db.Database)
	}

	// Prometheus metrics
	m := metrics.NewMetrics()

	// Jaeger tracing
	if cfg.Tracing.Enabled {
		_, closeTracer, err := tracing.Init(cfg.Tracing)
		if err != nil {
			log.Fatalf("Failed to initialize tracing: %v", err)
		}
		defer closeTracer()
	}

	// Alert store
	timeout := time.Duration(cfg.Db.TimeoutSeconds) * time.Second
	alertStore := store.NewSQLAlertStore(db, cfg.Db.Driver, timeout)
	healthChecker := store.NewSQLHealthChecker(db)

	// Slack notifications
	var slackClient *slack.Client
	if cfg.Slack.Enabled {
		slackClient, err = slack.NewSlackClient(cfg.Slack, m)
		if err != nil {
			log.Fatalf("Failed to initialize Slack client: %v", err)
		}
	}

	// Jira ticketing
	var jiraClient *jira.Client
	if cfg.Jira.Enabled {
		jiraClient = jira.NewClient(cfg.Jira)
		if !jiraClient.IsConfigured() {
			log.Printf("WARNING: Jira enabled but not fully configured, tickets will not be created")
		}
	}

	// Kafka event stream
	var producer *publish.Producer
	if cfg.Kafka.Enabled {
		producer = publish.NewProducer(cfg.Kafka.Broker, cfg.Kafka.Topic)
		defer producer.Close()
	}

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(alertStore, jiraClient, slackClient, producer, m)
	alertHandler := handlers.NewAlertHandler(alertStore)
	healthHandler := handlers.NewHealthHandler(healthChecker, jiraClient)

	// Initialize and start server
	srv := server.New(webhookHandler, alertHandler, healthHandler, cfg.Http.Port)

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
