// Package generate talks to the optional text-generation service used to
// draft new notes. The default backend speaks the Ollama-style
// /api/generate JSON contract over HTTP; a Gemini backend is also
// available. Every failure is returned as an error for the caller to
// degrade on; nothing here is fatal.
package generate
