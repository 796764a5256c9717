// Package vault is the document store behind reference resolution. A vault
// holds Markdown notes addressed by slash-separated paths relative to the
// vault root. Two backends are provided: a filesystem vault built on afero
// (the local notes directory, or an in-memory tree in tests) and an
// object-storage vault on an S3-compatible bucket.
package vault
