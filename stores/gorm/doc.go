//go:build !wasm
// +build !wasm

// Package gorm provides GORM-based implementations of the authcore store
// interfaces. It supports any database that GORM supports (PostgreSQL, MySQL,
// SQLite, etc.) and is suitable for production deployments requiring
// relational database storage.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: User accounts (email unique)
//   - federated_links: Provider identity bindings ((provider, subject) unique)
//   - sessions: Refresh-token revocation registry
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
//	gormstore.AutoMigrate(db)
//	userStore := gormstore.NewUserStore(db)
//	linkStore := gormstore.NewLinkStore(db)
//	revocations := gormstore.NewRevocationStore(db)
//
// TranslateError must be enabled so unique-constraint violations surface as
// authcore.ErrDuplicate.
package gorm
