// Package models contains GORM persistence models that map to database tables.
// These models are separate from domain types so the domain layer stays free
// of ORM tags.
//
// Structure:
//   - base.go: shared id, timestamp and version columns
//   - case_document.go: the case document table, one row per case
//   - user.go: staff profiles
//   - outbox.go: transactional outbox for domain events
package models
