// Package api exposes the application service facade and its wire-format
// types. It translates internal recording models into transport-friendly DTOs
// that the HTTP layer and CLI can render without coupling to internal types.
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums surface as lowercase strings. Timestamps use RFC3339 in UTC.
package api
