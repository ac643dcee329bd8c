// internal/pkg/redis/client.go
package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client 包装 go-redis，并维护一个按名字索引的 Lua 脚本表。
// 需要原子性的读改写逻辑（比如限次核销）都通过脚本执行。
type Client struct {
	rdb *redis.Client

	mu      sync.RWMutex
	scripts map[string]*redis.Script
}

// NewClient 创建一个 redis 客户端包装。
func NewClient(addr string) *Client {
	return &Client{
		rdb:     redis.NewClient(&redis.Options{Addr: addr}),
		scripts: make(map[string]*redis.Script),
	}
}

// LoadScriptFromContent 注册一段 Lua 脚本。重复注册同名脚本会覆盖。
func (c *Client) LoadScriptFromContent(name, content string) error {
	if content == "" {
		return fmt.Errorf("script %q has empty content", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[name] = redis.NewScript(content)
	return nil
}

// RunScript 执行一个已注册的脚本。
// redis.Script 内部先 EVALSHA、未命中再退回 EVAL。
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	c.mu.RLock()
	script, ok := c.scripts[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("lua script %q is not loaded", name)
	}
	return script.Run(ctx, c.rdb, keys, args...).Result()
}

// GetClient 暴露底层客户端，pipeline 等高级用法直接走这里。
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close 关闭底层连接。
func (c *Client) Close() error {
	return c.rdb.Close()
}
