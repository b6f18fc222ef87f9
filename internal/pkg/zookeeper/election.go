// internal/pkg/zookeeper/election.go
package zookeeper

import (
	"fmt"
	"time"

	"github.com/go-zookeeper/zk"
)

const electionRoot = "/mall_leaders"

// Election 基于 ZooKeeper 临时节点实现的简单主节点选举。
// 定时任务部署多副本时，只有持有临时节点的副本执行扫描，
// 避免多副本同时扫到同一批订单（真正的防重还是靠状态守卫更新）。
type Election struct {
	conn *zk.Conn
	path string
	id   string
}

// NewElection 连接 ZooKeeper 并准备好选举路径。
// name 区分不同的任务组，id 标识当前实例（通常是 ip:port）。
func NewElection(servers []string, name, id string) (*Election, error) {
	conn, _, err := zk.Connect(servers, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}

	// 确保根节点存在
	if _, err := conn.Create(electionRoot, []byte(""), 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
		conn.Close()
		return nil, fmt.Errorf("failed to create election root node: %w", err)
	}

	return &Election{
		conn: conn,
		path: electionRoot + "/" + name,
		id:   id,
	}, nil
}

// IsLeader 判断当前实例此刻是否是主节点。
// 没有主节点时尝试上位；临时节点随会话断开自动删除，无需显式交接。
func (e *Election) IsLeader() bool {
	_, err := e.conn.Create(e.path, []byte(e.id), zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err == nil {
		return true
	}
	if err != zk.ErrNodeExists {
		return false
	}
	data, _, err := e.conn.Get(e.path)
	if err != nil {
		return false
	}
	return string(data) == e.id
}

// Resign 主动放弃主节点身份。
func (e *Election) Resign() {
	if e.IsLeader() {
		_ = e.conn.Delete(e.path, -1)
	}
}

// Close 关闭会话，持有的临时节点随之删除。
func (e *Election) Close() {
	e.conn.Close()
}
