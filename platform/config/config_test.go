package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/nemt")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("DATASTORE_URL", "https://datastore.example.com/v0/base/")
	t.Setenv("DATASTORE_API_KEY", "key")
	t.Setenv("ZONE_LOOKUP_WEBHOOK_URL", "https://hooks.example.com/zones")
	t.Setenv("PRODUCT_LOOKUP_WEBHOOK_URL", "https://hooks.example.com/products")
	t.Setenv("DISPATCH_WEBHOOK_URL", "https://hooks.example.com/dispatch")
	t.Setenv("CORS_ORIGINS", "https://dashboard.example.com")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.DatastoreURL != "https://datastore.example.com/v0/base" {
		t.Fatalf("expected trailing slash to be trimmed, got %q", cfg.DatastoreURL)
	}
	if cfg.DatastoreTables.Clients != "Clients" || cfg.DatastoreTables.Addresses != "Addresses" {
		t.Fatalf("unexpected default table names: %+v", cfg.DatastoreTables)
	}
	if cfg.WebhookTimeout.Seconds() != 30 {
		t.Fatalf("expected 30s webhook timeout, got %s", cfg.WebhookTimeout)
	}
	if cfg.IsSignatureExportEnabled() {
		t.Fatal("expected signature export to be disabled without URL and redis")
	}
}

func TestLoadRequiresDispatchWebhook(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DISPATCH_WEBHOOK_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when dispatch webhook URL is missing")
	}
}

func TestLoadRejectsWildcardCORSWithCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for wildcard CORS with credentials")
	}
}

func TestLoadRejectsNonPositiveDurations(t *testing.T) {
	cases := map[string]string{
		"WIZARD_SESSION_TTL":        "abc",
		"SUBMISSION_LOCK_TTL":       "0s",
		"WEBHOOK_TIMEOUT":           "-5s",
		"HISTORY_RETENTION_FAILURE": "forever",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(name, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", name, value)
			}
		})
	}
}

func TestLoadParsesLockAndSessionTTL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WIZARD_SESSION_TTL", "45m")
	t.Setenv("SUBMISSION_LOCK_TTL", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.WizardSessionTTL.Minutes() != 45 || cfg.SubmissionLockTTL.Seconds() != 90 {
		t.Fatalf("unexpected TTLs: session=%s lock=%s", cfg.WizardSessionTTL, cfg.SubmissionLockTTL)
	}
}
