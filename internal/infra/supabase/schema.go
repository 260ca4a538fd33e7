package supabase

import _ "embed"

// Schema is the DDL the PostgREST backend expects. The cascades it declares
// are what make DeleteClient and DeleteOperation remove dependent rows.
//
//go:embed schema.sql
var Schema string
