// Package prompt fills form data interactively from a terminal. A Filler
// walks the field tree the engine resolves, asks for each editable field
// through a Driver and resolves the form again after every answer.
package prompt
