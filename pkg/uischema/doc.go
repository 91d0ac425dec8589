// Package uischema parses the sparse presentation tree that accompanies a
// form schema. The engine only reads ui:order from it; every other ui: key is
// carried through untouched for whatever renders the resolved form.
package uischema
