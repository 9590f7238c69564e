package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"evoting-backend/config"
	"evoting-backend/models"
)

// 计票快照缓存的默认过期时间
const resultsExpiration = 30 * time.Second

// Cache 封装Redis客户端，Redis不可用时退化为进程内模拟模式
type Cache struct {
	client *redis.Client

	// 模拟模式相关
	mockMode bool
	mockMu   sync.Mutex
	mockData map[string]string
}

// NewCache 初始化Redis连接
// 连接失败时进入模拟模式，缓存功能退化但不影响主流程
func NewCache(cfg *config.Config) *Cache {
	c := &Cache{
		mockData: make(map[string]string),
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 3 * time.Second,
		ReadTimeout: 3 * time.Second,
		PoolSize:    10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("Redis连接失败: %v，将使用模拟模式", err)
		c.mockMode = true
		return c
	}

	c.client = client
	log.Println("Redis连接初始化成功")
	return c
}

// NewMockCache 创建纯进程内模拟缓存，供测试使用
func NewMockCache() *Cache {
	return &Cache{
		mockMode: true,
		mockData: make(map[string]string),
	}
}

// Client 获取底层Redis客户端，模拟模式下返回错误
func (c *Cache) Client() (*redis.Client, error) {
	if c.mockMode {
		return nil, ErrRedisNotAvailable
	}
	return c.client, nil
}

// Close 关闭Redis连接
func (c *Cache) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func resultsKey(pollID uint) string {
	return fmt.Sprintf("poll:%d:results", pollID)
}

// SetPollResults 缓存计票快照
func (c *Cache) SetPollResults(ctx context.Context, results *models.PollResults) error {
	data, err := json.Marshal(results)
	if err != nil {
		return err
	}

	key := resultsKey(results.PollID)
	if c.mockMode {
		c.mockMu.Lock()
		c.mockData[key] = string(data)
		c.mockMu.Unlock()
		return nil
	}

	return c.client.Set(ctx, key, data, resultsExpiration).Err()
}

// GetPollResults 读取缓存的计票快照，未命中返回ErrKeyNotFound
func (c *Cache) GetPollResults(ctx context.Context, pollID uint) (*models.PollResults, error) {
	key := resultsKey(pollID)

	var data string
	if c.mockMode {
		c.mockMu.Lock()
		val, ok := c.mockData[key]
		c.mockMu.Unlock()
		if !ok {
			return nil, ErrKeyNotFound
		}
		data = val
	} else {
		val, err := c.client.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil, ErrKeyNotFound
		}
		if err != nil {
			return nil, err
		}
		data = val
	}

	var results models.PollResults
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// InvalidatePollResults 删除计票快照缓存，投票或管理操作后调用
func (c *Cache) InvalidatePollResults(ctx context.Context, pollID uint) {
	key := resultsKey(pollID)

	if c.mockMode {
		c.mockMu.Lock()
		delete(c.mockData, key)
		c.mockMu.Unlock()
		return
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		log.Printf("删除计票缓存失败 [Poll ID: %d]: %v", pollID, err)
	}
}
