package config

import (
	"fmt"
	"os"
	"time"
)

// Gate failure policies accepted by JOBS_GATE_POLICY.
const (
	PolicyFailClosed = "fail-closed"
	PolicyFailOpen   = "fail-open"
)

type Config struct {
	DatabaseURL string // JOBS_DATABASE_URL (optional, empty = in-memory lanes)
	GRPCAddr    string // JOBS_GRPC_ADDR (default ":9090")
	HTTPAddr    string // JOBS_HTTP_ADDR (default ":8080")
	NATSURL     string // JOBS_NATS_URL (optional, empty = no events)
	AuthToken   string // JOBS_AUTH_TOKEN (optional, empty = auth disabled)

	// Session gate settings
	EntitlementURL   string        // JOBS_ENTITLEMENT_URL (optional, empty = gate disabled)
	EntitlementToken string        // JOBS_ENTITLEMENT_TOKEN (bearer token for entitlement and auth services)
	AuthURL          string        // JOBS_AUTH_URL (optional, empty = logout is local only)
	VerifyTimeout    time.Duration // JOBS_VERIFY_TIMEOUT (default 10s)
	GatePolicy       string        // JOBS_GATE_POLICY (default "fail-closed")

	// Job intake
	SeedFile    string // JOBS_SEED_FILE (optional TOML or YAML file of pending jobs)
	IngestTopic string // JOBS_INGEST_TOPIC (default "jobs.ingest"; needs JOBS_NATS_URL)

	PresenceDeadAfter time.Duration // JOBS_PRESENCE_DEAD_AFTER (default 15m)

	// Sync settings
	SyncInterval   time.Duration // JOBS_SYNC_INTERVAL (default 3m; 0 = disabled)
	SyncS3Bucket   string        // JOBS_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // JOBS_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // JOBS_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // JOBS_SYNC_S3_KEY (default "jobs/lanes.jsonl")
	SyncGitRepo    string        // JOBS_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // JOBS_SYNC_GIT_FILE (default "lanes.jsonl")
	SyncGitBranch  string        // JOBS_SYNC_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:      os.Getenv("JOBS_DATABASE_URL"),
		GRPCAddr:         envOrDefault("JOBS_GRPC_ADDR", ":9090"),
		HTTPAddr:         envOrDefault("JOBS_HTTP_ADDR", ":8080"),
		NATSURL:          os.Getenv("JOBS_NATS_URL"),
		AuthToken:        os.Getenv("JOBS_AUTH_TOKEN"),
		EntitlementURL:   os.Getenv("JOBS_ENTITLEMENT_URL"),
		EntitlementToken: os.Getenv("JOBS_ENTITLEMENT_TOKEN"),
		AuthURL:          os.Getenv("JOBS_AUTH_URL"),
		GatePolicy:       envOrDefault("JOBS_GATE_POLICY", PolicyFailClosed),
		SeedFile:         os.Getenv("JOBS_SEED_FILE"),
		IngestTopic:      envOrDefault("JOBS_INGEST_TOPIC", "jobs.ingest"),
		SyncS3Bucket:     os.Getenv("JOBS_SYNC_S3_BUCKET"),
		SyncS3Endpoint:   os.Getenv("JOBS_SYNC_S3_ENDPOINT"),
		SyncS3Region:     envOrDefault("JOBS_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:        envOrDefault("JOBS_SYNC_S3_KEY", "jobs/lanes.jsonl"),
		SyncGitRepo:      os.Getenv("JOBS_SYNC_GIT_REPO"),
		SyncGitFile:      envOrDefault("JOBS_SYNC_GIT_FILE", "lanes.jsonl"),
		SyncGitBranch:    envOrDefault("JOBS_SYNC_GIT_BRANCH", "main"),
	}

	switch c.GatePolicy {
	case PolicyFailClosed, PolicyFailOpen:
	default:
		return nil, fmt.Errorf("JOBS_GATE_POLICY: unknown policy %q (want %s or %s)",
			c.GatePolicy, PolicyFailClosed, PolicyFailOpen)
	}

	var err error
	if c.VerifyTimeout, err = durationEnv("JOBS_VERIFY_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if c.VerifyTimeout <= 0 {
		return nil, fmt.Errorf("JOBS_VERIFY_TIMEOUT must be positive, got %s", c.VerifyTimeout)
	}
	if c.PresenceDeadAfter, err = durationEnv("JOBS_PRESENCE_DEAD_AFTER", "15m"); err != nil {
		return nil, err
	}
	if c.SyncInterval, err = durationEnv("JOBS_SYNC_INTERVAL", "3m"); err != nil {
		return nil, err
	}

	return c, nil
}

// GateEnabled reports whether lane access is gated on a verified session.
func (c *Config) GateEnabled() bool {
	return c.EntitlementURL != ""
}

func durationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
