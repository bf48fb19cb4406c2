// Package models contains GORM persistence models for the ledger tables.
// Domain entities stay free of ORM tags; each model carries ToDomain and
// FromDomain mappers used by the repositories.
package models
