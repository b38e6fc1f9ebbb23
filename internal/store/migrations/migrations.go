// Package migrations embeds the Postgres schema shared by the SQL drivers.
package migrations

import _ "embed"

// Initial creates the teams, players and auctions tables. Every statement is
// idempotent so it can run on each start.
//
//go:embed 001_initial.sql
var Initial string
