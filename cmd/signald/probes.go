package main

import (
	"database/sql"

	goredis "github.com/go-redis/redis/v8"

	redisstore "nifty-signal/internal/store/redis"
	sqlitestore "nifty-signal/internal/store/sqlite"
)

// cacheClient returns the Redis client behind c, or nil when Redis is disabled.
func cacheClient(c *redisstore.Cache) *goredis.Client {
	if c == nil {
		return nil
	}
	return c.Client()
}

// sqlDB returns the archive handle behind w, or nil when the archive is disabled.
func sqlDB(w *sqlitestore.Writer) *sql.DB {
	if w == nil {
		return nil
	}
	return w.DB()
}
