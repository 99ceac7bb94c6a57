// Package form describes the target side of a mapping run: the named fields
// of a manufacturer's form template and the registry that serves them.
//
// Field specs are read-only to the mapping engine. StaticRegistry loads them
// from YAML and keeps the declaration order, which is the order the
// orchestrator resolves and reports fields in.
package form
