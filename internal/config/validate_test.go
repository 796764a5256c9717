package config

import (
	"errors"
	"strings"
	"testing"
)

func defaultSettings(t *testing.T) Settings {
	t.Helper()
	c, err := Open(t.TempDir() + "/config.yaml")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	s, err := c.Settings()
	if err != nil {
		t.Fatalf("Settings() error: %v", err)
	}
	return s
}

func TestValidateIssues(t *testing.T) {
	s := defaultSettings(t)
	s.Temperature = 2
	s.TopK = 0

	err := s.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
	paths := map[string]string{}
	for _, is := range ve.Issues {
		paths[is.Path] = is.Keyword
	}
	if paths["/temperature"] != "maximum" {
		t.Errorf("temperature issue = %q, issues %+v", paths["/temperature"], ve.Issues)
	}
	if paths["/topK"] != "exclusiveMinimum" {
		t.Errorf("topK issue = %q, issues %+v", paths["/topK"], ve.Issues)
	}
	if !strings.HasPrefix(err.Error(), "invalid settings: ") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidateS3RequiresBucket(t *testing.T) {
	s := defaultSettings(t)
	s.VaultBackend = BackendS3
	if err := s.Validate(); err == nil {
		t.Fatal("s3 backend without endpoint and bucket should be rejected")
	}
	s.S3Endpoint = "localhost:9000"
	s.S3Bucket = "notes"
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}

func TestValidateCustomFolderEscape(t *testing.T) {
	s := defaultSettings(t)
	s.CustomFolder = "../outside"
	if err := s.Validate(); err == nil {
		t.Fatal("folder escaping the vault should be rejected")
	}
	s.CustomFolder = "notes/..hidden"
	if err := s.Validate(); err != nil {
		t.Fatalf("dot-prefixed names are fine: %v", err)
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{"1.0.0", false},
		{"v1.4.2", false},
		{"0.9.0", false},
		{"2.0.0", true},
		{"not-a-version", true},
	}
	for _, tt := range tests {
		err := CheckVersion(tt.version)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckVersion(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
		}
	}
}

func TestSnake(t *testing.T) {
	tests := map[string]string{
		"model":           "MODEL",
		"serviceUrl":      "SERVICE_URL",
		"s3AccessKey":     "S3_ACCESS_KEY",
		"s3UseSSL":        "S3_USE_SSL",
		"topK":            "TOP_K",
		"capitalizeLinks": "CAPITALIZE_LINKS",
	}
	for in, want := range tests {
		if got := snake(in); got != want {
			t.Errorf("snake(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSettingsConversions(t *testing.T) {
	s := defaultSettings(t)
	s.CapitalizeLinks = false
	if r := s.Rules(); r.Capitalize || !r.Singularize {
		t.Errorf("Rules() = %+v", r)
	}
	s.GenerationTimeout = 5
	if p := s.RetryPolicy(); p.Timeout.Seconds() != 5 {
		t.Errorf("RetryPolicy().Timeout = %v", p.Timeout)
	}
	if o := s.GenerateOptions(); o.Model != s.Model || o.TopK != s.TopK {
		t.Errorf("GenerateOptions() = %+v", o)
	}
}
