// Package config manages user-level settings stored at ~/.linkmend/config.yaml.
// Values can be overridden through LINKMEND_* environment variables, which
// are also read from a .env file. Every change is validated against an
// embedded JSON schema before it is written.
package config
