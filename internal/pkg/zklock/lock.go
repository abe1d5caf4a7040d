// internal/pkg/zklock/lock.go
package zklock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const lockRoot = "/stockbridge_locks"

// Connect 建立一条 ZooKeeper 连接。
func Connect(servers []string) (*zk.Conn, error) {
	conn, _, err := zk.Connect(servers, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}
	return conn, nil
}

// Lock 是基于临时顺序节点的分布式锁。
// 对账服务用它保证同一商品同一时刻只有一个实例在向目录侧推送库存。
type Lock struct {
	conn     *zk.Conn
	path     string // 锁的父路径，例如 /stockbridge_locks/stock-sync-42
	lockNode string // 成功获取锁后自己创建的节点路径
}

// New 为某个资源创建锁实例，并确保父路径存在。
func New(conn *zk.Conn, resourceID string) (*Lock, error) {
	if err := ensureNode(conn, lockRoot); err != nil {
		return nil, err
	}
	lockPath := lockRoot + "/" + resourceID
	if err := ensureNode(conn, lockPath); err != nil {
		return nil, err
	}
	return &Lock{conn: conn, path: lockPath}, nil
}

func ensureNode(conn *zk.Conn, path string) error {
	exists, _, err := conn.Exists(path)
	if err != nil {
		return fmt.Errorf("failed to check lock node %s: %w", path, err)
	}
	if exists {
		return nil
	}
	_, err = conn.Create(path, []byte(""), 0, zk.WorldACL(zk.PermAll))
	if err != nil && err != zk.ErrNodeExists {
		return fmt.Errorf("failed to create lock node %s: %w", path, err)
	}
	return nil
}

// Lock 尝试获取锁，获取不到则阻塞等待，直到 ctx 到期。
func (l *Lock) Lock(ctx context.Context) error {
	// 1. 创建临时顺序节点
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath

	for {
		// 2. 取出所有竞争者并排序
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			return fmt.Errorf("failed to get children nodes: %w", err)
		}
		sort.Strings(children)

		// 3. 自己是最小节点即持有锁
		myNodeName := strings.TrimPrefix(l.lockNode, l.path+"/")
		if myNodeName == children[0] {
			return nil
		}

		// 4. 否则监听前一个节点
		prevNodeIndex := -1
		for i, child := range children {
			if child == myNodeName {
				prevNodeIndex = i - 1
				break
			}
		}
		if prevNodeIndex < 0 {
			return errors.New("cannot find previous node, something is wrong")
		}
		prevNodePath := l.path + "/" + children[prevNodeIndex]

		exists, _, eventChan, err := l.conn.ExistsW(prevNodePath)
		if err != nil {
			if err == zk.ErrNoNode {
				continue
			}
			return fmt.Errorf("failed to watch previous node: %w", err)
		}
		if !exists {
			continue
		}

		select {
		case event := <-eventChan:
			if event.Type == zk.EventNodeDeleted {
				continue
			}
		case <-ctx.Done():
			// 超时放弃，删掉自己的节点避免留下僵尸竞争者
			_ = l.conn.Delete(l.lockNode, -1)
			l.lockNode = ""
			return ctx.Err()
		}
	}
}

// Unlock 释放锁。
func (l *Lock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}

// Locker 是对账服务依赖的抽象，便于测试注入空实现。
type Locker interface {
	WithLock(ctx context.Context, resourceID string, fn func() error) error
}

// ZKLocker 用 ZooKeeper 实现 Locker。
type ZKLocker struct {
	conn *zk.Conn
}

func NewZKLocker(conn *zk.Conn) *ZKLocker {
	return &ZKLocker{conn: conn}
}

func (z *ZKLocker) WithLock(ctx context.Context, resourceID string, fn func() error) error {
	lock, err := New(z.conn, resourceID)
	if err != nil {
		return err
	}
	if err := lock.Lock(ctx); err != nil {
		return err
	}
	defer lock.Unlock()
	return fn()
}

// NopLocker 不做任何互斥，单实例部署和测试用。
type NopLocker struct{}

func (NopLocker) WithLock(ctx context.Context, resourceID string, fn func() error) error {
	return fn()
}
