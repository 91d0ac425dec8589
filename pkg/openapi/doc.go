// Package openapi adapts OpenAPI documents to the form engine: an operation's
// request body becomes the form schema and the whole document becomes the
// root its $refs resolve against. The kin-openapi backed parser lives under
// internal/openapi so consumers only see these contracts.
package openapi
