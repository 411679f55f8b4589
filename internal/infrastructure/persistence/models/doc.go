// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - base.go: Base persistence models (BaseModel)
// - ledger.go: Outstanding invoices read by the allocation engine
// - payment.go: Submitted payments and their allocation lines
package models
