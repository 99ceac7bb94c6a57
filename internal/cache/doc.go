// Package cache stores serialized mapping results for a bounded TTL.
//
// MemoryCache keeps entries in process; RedisCache shares them across
// processes through a Redis server.
package cache
