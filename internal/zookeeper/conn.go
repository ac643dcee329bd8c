// internal/zookeeper/conn.go
package zookeeper

import (
	"time"

	"github.com/go-zookeeper/zk"

	"bazaar/internal/pkg/logger"
)

// Conn 是 zk.Conn 的轻量包装，统一连接参数并让锁代码可替换底层实现。
type Conn struct {
	*zk.Conn
}

// Connect 建立到 ZooKeeper 集群的连接。
func Connect(servers []string) (*Conn, error) {
	conn, _, err := zk.Connect(servers, 10*time.Second, zk.WithLogger(logger.L()))
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn}, nil
}

// Close 关闭连接，持有的临时节点随之消失。
func (c *Conn) Close() {
	c.Conn.Close()
}
