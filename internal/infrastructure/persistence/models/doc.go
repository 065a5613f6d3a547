// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities are free of GORM tags and infrastructure concerns
// 2. Persistence models carry all GORM annotations and table mappings
// 3. ToDomain / FromDomain convert between the two
// 4. Repositories only ever hand domain types to callers
//
// Structure:
// - base.go: BaseModel and AggregateModel
// - identity.go: users, teams and reseller memberships
// - fulfilment.go: orders with their passes and access lists, disputes, chat
// - catalog.go: order categories
// - attachment.go: uploaded files and their linkage
// - audit.go: the append-only audit log
package models
