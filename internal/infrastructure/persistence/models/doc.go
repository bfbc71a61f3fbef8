// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free of ORM
// concerns; each model converts to and from its domain entity with ToDomain/FromDomain.
//
// Structure:
// - base.go: owner-scoped base model
// - session.go: receipts, passports and unrecognized images
// - reference.go: uploaded sales ledger rows
// - match_log.go: insert-only matching decisions
// - archive.go: session archives and matching histories
package models
