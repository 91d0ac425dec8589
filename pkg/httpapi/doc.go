// Package httpapi exposes the orchestrator over HTTP. Every endpoint takes a
// JSON body naming a schema (inline or by source) plus optional uiSchema and
// form data, and answers with JSON.
package httpapi
