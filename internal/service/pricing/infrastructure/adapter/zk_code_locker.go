// internal/service/pricing/infrastructure/adapter/zk_code_locker.go
package adapter

import (
	"fmt"

	"bazaar/internal/zookeeper"
)

// ZkCodeLocker 是 port.CodeLocker 的 ZooKeeper 实现。
// 同一 scope（比如一家店铺的券码命名空间）内的写入被串成临界区。
type ZkCodeLocker struct {
	conn *zookeeper.Conn
}

func NewZkCodeLocker(conn *zookeeper.Conn) *ZkCodeLocker {
	return &ZkCodeLocker{conn: conn}
}

// WithLock 持锁执行 fn。解锁失败会随连接关闭自动释放（临时节点）。
func (l *ZkCodeLocker) WithLock(scope string, fn func() error) error {
	lock, err := zookeeper.NewDistributedLock(l.conn, scope)
	if err != nil {
		return fmt.Errorf("failed to set up lock for %q: %w", scope, err)
	}
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock for %q: %w", scope, err)
	}
	defer lock.Unlock()
	return fn()
}
