package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/net"
)

const establishedStatus = "ESTABLISHED"

// ConnectionCounter считает установленные TCP соединения с портами БД
type ConnectionCounter struct {
	ports map[uint32]struct{}
	list  func(ctx context.Context, kind string) ([]net.ConnectionStat, error)
}

// NewConnectionCounter создает счетчик для заданных портов
func NewConnectionCounter(ports []uint32) *ConnectionCounter {
	set := make(map[uint32]struct{}, len(ports))
	for _, p := range ports {
		set[p] = struct{}{}
	}
	return &ConnectionCounter{ports: set, list: net.ConnectionsWithContext}
}

// Sample возвращает количество соединений, у которых локальный или удаленный порт из списка
func (c *ConnectionCounter) Sample(ctx context.Context) (float64, error) {
	conns, err := c.list(ctx, "tcp")
	if err != nil {
		return 0, err
	}

	count := 0
	for _, conn := range conns {
		if conn.Status != establishedStatus {
			continue
		}
		_, local := c.ports[conn.Laddr.Port]
		_, remote := c.ports[conn.Raddr.Port]
		if local || remote {
			count++
		}
	}

	return float64(count), nil
}
