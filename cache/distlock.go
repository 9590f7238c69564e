package cache

import (
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
)

// DistributedLockService 分布式锁服务
// Redis不可用时退化为进程内互斥锁，单实例部署下语义不变
type DistributedLockService struct {
	rs *redsync.Redsync

	localMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewLockService 创建分布式锁服务
func NewLockService(c *Cache) *DistributedLockService {
	s := &DistributedLockService{
		locks: make(map[string]*sync.Mutex),
	}

	client, err := c.Client()
	if err == nil {
		pool := goredis.NewPool(client)
		s.rs = redsync.New(pool)
	}

	return s
}

// WithLock 在锁内执行操作
func (s *DistributedLockService) WithLock(lockName string, expiry time.Duration, action func() error) error {
	if s.rs == nil {
		return s.withLocalLock(lockName, action)
	}

	mutex := s.rs.NewMutex(lockName,
		redsync.WithExpiry(expiry),
		redsync.WithTries(5),
		redsync.WithRetryDelay(50*time.Millisecond),
		redsync.WithDriftFactor(0.01),
	)

	if err := mutex.Lock(); err != nil {
		return ErrLockNotAcquired
	}
	defer func() {
		_, _ = mutex.Unlock()
	}()

	return action()
}

// withLocalLock 进程内互斥锁兜底实现
func (s *DistributedLockService) withLocalLock(lockName string, action func() error) error {
	s.localMu.Lock()
	mu, ok := s.locks[lockName]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[lockName] = mu
	}
	s.localMu.Unlock()

	mu.Lock()
	defer mu.Unlock()

	return action()
}
