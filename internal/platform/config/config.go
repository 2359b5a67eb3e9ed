// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Collaborator holds the base URL and auth token for one external service.
type Collaborator struct {
	BaseURL string
	Token   string
}

// Redis holds connection tuning for the totals cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka holds event publisher settings. Empty brokers disable publishing.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Templates are the notification texts. Placeholders: [mother_first_name]
// and [health_id] in the welcome texts, {mother} in the VHT text.
type Templates struct {
	WelcomeMotherHW        string
	WelcomeMotherPublic    string
	WelcomeHouseholdHW     string
	WelcomeHouseholdPublic string
	VHTNotification        string
}

// Config is the full service configuration.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	Redis Redis
	Kafka Kafka

	IdentityStore  Collaborator
	StageMessaging Collaborator
	MessageSender  Collaborator

	Languages        []string
	PrebirthMinWeeks int
	WorkerCount      int
	AdminUsers       []string

	Templates Templates
}

func FromEnv() Config {
	return Config{
		Addr:          envOr("FC_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),

		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_TOPIC", "familyconnect.subscriptionrequests"),
		},

		IdentityStore: Collaborator{
			BaseURL: os.Getenv("IDENTITY_STORE_URL"),
			Token:   os.Getenv("IDENTITY_STORE_TOKEN"),
		},
		StageMessaging: Collaborator{
			BaseURL: os.Getenv("STAGE_MESSAGING_URL"),
			Token:   os.Getenv("STAGE_MESSAGING_TOKEN"),
		},
		MessageSender: Collaborator{
			BaseURL: os.Getenv("MESSAGE_SENDER_URL"),
			Token:   os.Getenv("MESSAGE_SENDER_TOKEN"),
		},

		Languages:        splitOr("LANGUAGES", []string{"eng_UG", "cgg_UG", "xog_UG", "lug_UG"}),
		PrebirthMinWeeks: envIntOr("PREBIRTH_MIN_WEEKS", 4),
		WorkerCount:      envIntOr("WORKER_COUNT", 4),
		AdminUsers:       splitOr("ADMIN_USERS", []string{"admin"}),

		Templates: Templates{
			WelcomeMotherHW: envOr("TEMPLATE_WELCOME_MOTHER_HW",
				"Welcome to FamilyConnect, [mother_first_name]. Your health ID is [health_id]. You will receive messages to help you through your pregnancy."),
			WelcomeMotherPublic: envOr("TEMPLATE_WELCOME_MOTHER_PUBLIC",
				"Welcome to FamilyConnect, [mother_first_name]. You will receive messages to help you through your pregnancy. Please visit a health facility to get a health ID."),
			WelcomeHouseholdHW: envOr("TEMPLATE_WELCOME_HOUSEHOLD_HW",
				"Welcome to FamilyConnect. [mother_first_name] is registered with health ID [health_id]. You will receive messages to support her pregnancy."),
			WelcomeHouseholdPublic: envOr("TEMPLATE_WELCOME_HOUSEHOLD_PUBLIC",
				"Welcome to FamilyConnect. [mother_first_name] is registered. You will receive messages to support her pregnancy."),
			VHTNotification: envOr("TEMPLATE_VHT_NOTIFICATION",
				"A mother in your parish has registered with FamilyConnect. Please visit her at {mother}."),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitOr(key string, fallback []string) []string {
	if parts := splitNonEmpty(os.Getenv(key)); len(parts) > 0 {
		return parts
	}
	return fallback
}
