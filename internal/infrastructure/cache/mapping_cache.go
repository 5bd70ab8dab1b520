// Package cache provides caching infrastructure: the logical-to-physical
// mapping cache with PostgreSQL LISTEN/NOTIFY invalidation and a short-TTL
// result cache for finished aggregations.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mercatus/internal/domain/schema"
	"mercatus/pkg/logger"
)

// Compile-time check that MappingCache implements schema.Resolver.
var _ schema.Resolver = (*MappingCache)(nil)

// MappingCache serves logical-to-physical name mappings from a configuration
// table, invalidated via PostgreSQL LISTEN/NOTIFY rather than TTL polling.
// Resolve hands out an immutable snapshot, so a reload never changes names
// mid-request.
type MappingCache struct {
	pool     *pgxpool.Pool
	fallback schema.Resolver

	mu       sync.RWMutex
	snapshot *schemaSnapshot

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

type schemaSnapshot struct {
	namespace string
	entities  map[string]schema.Mapping
	resolved  *schema.StaticResolver
}

// NewMappingCache creates the cache. Until Start succeeds, Resolve serves
// the stock mapping set.
func NewMappingCache(pool *pgxpool.Pool) *MappingCache {
	return &MappingCache{pool: pool, fallback: schema.NewDefault()}
}

// Resolve returns the current mapping snapshot.
func (c *MappingCache) Resolve(ctx context.Context) (*schema.Resolved, error) {
	c.mu.RLock()
	snap := c.snapshot
	c.mu.RUnlock()
	if snap == nil {
		return c.fallback.Resolve(ctx)
	}
	return snap.resolved.Resolve(ctx)
}

// Start loads the initial mapping set and begins listening for NOTIFY
// events on the mapping channel.
func (c *MappingCache) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.lifecycleMu.Lock()
	if c.started {
		c.lifecycleMu.Unlock()
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true
	c.lifecycleMu.Unlock()

	if err := c.load(c.ctx); err != nil {
		c.Stop()
		return fmt.Errorf("load schema mappings: %w", err)
	}

	c.wg.Add(1)
	go c.listenLoop()
	logger.Info(c.ctx, "mapping cache started")
	return nil
}

// Stop gracefully stops the listener.
func (c *MappingCache) Stop() {
	c.lifecycleMu.Lock()
	if !c.started {
		c.lifecycleMu.Unlock()
		return
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	logger.Info(context.Background(), "mapping cache stopped")
}

// listenLoop holds a dedicated connection on LISTEN, reconnecting on error.
func (c *MappingCache) listenLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		conn, err := c.pool.Acquire(c.ctx)
		if err != nil {
			logger.Error(c.ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}

		_, err = conn.Exec(c.ctx, "LISTEN schema_mapping_changed;")
		if err != nil {
			logger.Error(c.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}

		logger.Info(c.ctx, "listening for schema_mapping_changed notifications")
		c.waitForNotifications(conn)
		conn.Release()
	}
}

func (c *MappingCache) waitForNotifications(conn *pgxpool.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		// Timeout keeps shutdown responsive; hitting it is expected.
		ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			continue
		}

		logger.Debug(c.ctx, "received notification",
			"channel", notification.Channel, "payload", notification.Payload)

		if err := c.load(c.ctx); err != nil {
			// Keep serving the previous snapshot.
			logger.Error(c.ctx, "failed to reload schema mappings", "error", err)
		}
	}
}

// load reads the full mapping table and swaps the snapshot in one step.
func (c *MappingCache) load(ctx context.Context) error {
	rows, err := c.pool.Query(ctx, `
		SELECT namespace, entity_name, table_name, field_name, column_name
		FROM sys_schema_mappings
		WHERE is_active = TRUE
		ORDER BY entity_name, field_name
	`)
	if err != nil {
		return fmt.Errorf("query schema mappings: %w", err)
	}
	defer rows.Close()

	namespace := ""
	entities := make(map[string]schema.Mapping)
	for rows.Next() {
		var ns, entity, table, field, column string
		if err := rows.Scan(&ns, &entity, &table, &field, &column); err != nil {
			return fmt.Errorf("scan schema mapping: %w", err)
		}
		namespace = ns
		m, ok := entities[entity]
		if !ok {
			m = schema.Mapping{Table: table, Columns: make(map[string]string)}
		}
		m.Columns[field] = column
		entities[entity] = m
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate schema mappings: %w", err)
	}

	if len(entities) == 0 {
		// Empty table means the deployment runs on the stock layout.
		entities = schema.DefaultMappings()
		namespace = "intersolid"
	}

	snap := &schemaSnapshot{
		namespace: namespace,
		entities:  entities,
		resolved:  schema.NewStatic(namespace, entities),
	}

	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()

	logger.Info(ctx, "schema mappings loaded",
		"entities", len(entities), "namespace", strings.ToLower(namespace))
	return nil
}
