// Package giterror provides error inspection capabilities for GitHub API errors.
// It centralizes the logic for identifying different types of errors returned by
// the GitHub REST and GraphQL APIs, so transports map failures onto the engine's
// error taxonomy without scattering string checks through the codebase.
package giterror
