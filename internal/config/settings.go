package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/linkmend/linkmend/internal/branding"
	"github.com/linkmend/linkmend/internal/generate"
	"github.com/linkmend/linkmend/internal/normalize"
)

// Settings is the typed view of the configuration.
type Settings struct {
	CapitalizeLinks       bool    `mapstructure:"capitalizeLinks" json:"capitalizeLinks" yaml:"capitalizeLinks"`
	SingularizeLinks      bool    `mapstructure:"singularizeLinks" json:"singularizeLinks" yaml:"singularizeLinks"`
	UseHostDefaultFolder  bool    `mapstructure:"useHostDefaultFolder" json:"useHostDefaultFolder" yaml:"useHostDefaultFolder"`
	CustomFolder          string  `mapstructure:"customFolder" json:"customFolder" yaml:"customFolder"`
	UseExternalGeneration bool    `mapstructure:"useExternalGeneration" json:"useExternalGeneration" yaml:"useExternalGeneration"`
	Provider              string  `mapstructure:"provider" json:"provider" yaml:"provider"`
	ServiceURL            string  `mapstructure:"serviceUrl" json:"serviceUrl" yaml:"serviceUrl"`
	Model                 string  `mapstructure:"model" json:"model" yaml:"model"`
	Temperature           float64 `mapstructure:"temperature" json:"temperature" yaml:"temperature"`
	MaxTokens             int     `mapstructure:"maxTokens" json:"maxTokens" yaml:"maxTokens"`
	TopK                  int     `mapstructure:"topK" json:"topK" yaml:"topK"`
	TopP                  float64 `mapstructure:"topP" json:"topP" yaml:"topP"`
	GenerationTimeout     int     `mapstructure:"generationTimeout" json:"generationTimeout" yaml:"generationTimeout"`
	Vault                 string  `mapstructure:"vault" json:"vault" yaml:"vault"`
	VaultBackend          string  `mapstructure:"vaultBackend" json:"vaultBackend" yaml:"vaultBackend"`
	S3Endpoint            string  `mapstructure:"s3Endpoint" json:"s3Endpoint" yaml:"s3Endpoint"`
	S3Bucket              string  `mapstructure:"s3Bucket" json:"s3Bucket" yaml:"s3Bucket"`
	S3AccessKey           string  `mapstructure:"s3AccessKey" json:"s3AccessKey" yaml:"s3AccessKey"`
	S3SecretKey           string  `mapstructure:"s3SecretKey" json:"s3SecretKey" yaml:"s3SecretKey"`
	S3UseSSL              bool    `mapstructure:"s3UseSSL" json:"s3UseSSL" yaml:"s3UseSSL"`
	SettingsVersion       string  `mapstructure:"settingsVersion" json:"settingsVersion" yaml:"settingsVersion"`
}

// Provider names accepted by the provider key.
const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

// Vault backends accepted by the vaultBackend key.
const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

type kind int

const (
	kindString kind = iota
	kindBool
	kindInt
	kindFloat
)

// Key describes one configuration key.
type Key struct {
	Name    string
	Default any
	Help    string
	Secret  bool

	kind kind
}

// EnvVar is the environment variable that overrides the key,
// e.g. LINKMEND_SERVICE_URL for serviceUrl.
func (k Key) EnvVar() string {
	return branding.EnvVar(snake(k.Name))
}

var keys = []Key{
	{Name: "capitalizeLinks", Default: true, kind: kindBool, Help: "uppercase the first letter of link targets"},
	{Name: "singularizeLinks", Default: true, kind: kindBool, Help: "reduce plural link targets to singular"},
	{Name: "useHostDefaultFolder", Default: true, kind: kindBool, Help: "create notes next to the scanned note"},
	{Name: "customFolder", Default: "", kind: kindString, Help: "folder for new notes when useHostDefaultFolder is false"},
	{Name: "useExternalGeneration", Default: false, kind: kindBool, Help: "draft new notes with a generation service"},
	{Name: "provider", Default: ProviderOllama, kind: kindString, Help: "generation provider: ollama or gemini"},
	{Name: "serviceUrl", Default: generate.DefaultURL, kind: kindString, Help: "generate endpoint of the ollama-style service"},
	{Name: "model", Default: "llama3", kind: kindString, Help: "model name sent to the generation service"},
	{Name: "temperature", Default: 0.7, kind: kindFloat, Help: "sampling temperature in [0,1]"},
	{Name: "maxTokens", Default: 512, kind: kindInt, Help: "maximum generated tokens"},
	{Name: "topK", Default: 40, kind: kindInt, Help: "top-k sampling"},
	{Name: "topP", Default: 0.9, kind: kindFloat, Help: "nucleus sampling in [0,1]"},
	{Name: "generationTimeout", Default: 60, kind: kindInt, Help: "seconds allowed per generation attempt"},
	{Name: "vault", Default: ".", kind: kindString, Help: "vault root directory, or key prefix for s3"},
	{Name: "vaultBackend", Default: BackendFS, kind: kindString, Help: "vault backend: fs or s3"},
	{Name: "s3Endpoint", Default: "", kind: kindString, Help: "object storage endpoint (host:port)"},
	{Name: "s3Bucket", Default: "", kind: kindString, Help: "object storage bucket"},
	{Name: "s3AccessKey", Default: "", kind: kindString, Help: "object storage access key", Secret: true},
	{Name: "s3SecretKey", Default: "", kind: kindString, Help: "object storage secret key", Secret: true},
	{Name: "s3UseSSL", Default: true, kind: kindBool, Help: "use TLS for object storage"},
	{Name: "settingsVersion", Default: SettingsVersion, kind: kindString, Help: "format version of this settings file"},
}

// Keys lists every known key in display order.
func Keys() []Key {
	return slices.Clone(keys)
}

// Lookup finds a key by name, ignoring case.
func Lookup(name string) (Key, bool) {
	for _, k := range keys {
		if strings.EqualFold(k.Name, name) {
			return k, true
		}
	}
	return Key{}, false
}

// parse converts a command-line value to the key's type.
func (k Key) parse(value string) (any, error) {
	switch k.kind {
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s expects true or false, got %q", k.Name, value)
		}
		return b, nil
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s expects an integer, got %q", k.Name, value)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%s expects a number, got %q", k.Name, value)
		}
		return f, nil
	default:
		return value, nil
	}
}

// snake turns camelCase into upper snake case: s3UseSSL -> S3_USE_SSL.
func snake(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && !unicode.IsUpper(runes[i-1]) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Rules returns the normalization rules the settings enable.
func (s Settings) Rules() normalize.Rules {
	return normalize.Rules{Capitalize: s.CapitalizeLinks, Singularize: s.SingularizeLinks}
}

// GenerateOptions returns the model and sampling parameters.
func (s Settings) GenerateOptions() generate.Options {
	return generate.Options{
		Model:       s.Model,
		Temperature: s.Temperature,
		TopP:        s.TopP,
		TopK:        s.TopK,
		MaxTokens:   s.MaxTokens,
	}
}

// RetryPolicy returns the default retry policy with the configured
// per-attempt timeout.
func (s Settings) RetryPolicy() generate.RetryPolicy {
	p := generate.DefaultRetryPolicy()
	if s.GenerationTimeout > 0 {
		p.Timeout = time.Duration(s.GenerationTimeout) * time.Second
	}
	return p
}
