// Package client provides HTTP access to the fluently daemon API for the CLI
// and other local tooling. It wraps the JSON endpoints with typed methods and
// distinguishes unreachable-daemon failures from API-level errors.
package client
