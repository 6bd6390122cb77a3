// Package db provides the embedded schema and seed catalog.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedProducts is the sample catalog loaded by seed-db, as a JSON array.
//
//go:embed seed/products.json
var SeedProducts []byte
