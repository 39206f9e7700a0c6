//go:build integration

// Package containers manages shared test containers for integration tests.
// Containers are started once per test binary and shared across suites; Ryuk
// reaps them when the run ends.
package containers

import (
	"sync"
	"testing"
)

type Manager struct {
	redisOnce    sync.Once
	redis        *RedisContainer
	postgresOnce sync.Once
	postgres     *PostgresContainer
}

var manager = &Manager{}

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	return manager
}

// GetRedis returns the shared Redis container, starting it on first use.
func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	m.redisOnce.Do(func() {
		m.redis = NewRedisContainer(t)
	})
	return m.redis
}

// GetPostgres returns the shared Postgres container, starting it on first use.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.postgresOnce.Do(func() {
		m.postgres = NewPostgresContainer(t)
	})
	return m.postgres
}
