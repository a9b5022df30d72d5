package persistence

import (
	_ "embed"
)

//go:embed schema/sharing-schema.sql
var schemaSQL string

// Schema returns the DDL for the four tables this module owns. The
// business_relationships table belongs to the relationship-management
// subsystem and is not included.
func Schema() string {
	return schemaSQL
}
