// Package cache holds the short-lived shared state the service keeps outside
// the case store: handled outbox event ids and per-user last activity. Each
// has a Redis implementation for multi-instance deployments and an in-memory
// one for single instances and tests.
package cache
