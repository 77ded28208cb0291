// Package database provides PostgreSQL connectivity and repositories.
//
// Uses pgx for connection pooling and tern for embedded migrations run under
// an advisory lock. Repositories implement the domain interfaces:
// TweetRepository, MentionRepository, UserRepository, SkillStore.
package database
