// Package notify 在产物生成后向消息总线广播通知。
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/iabetor/aistory/internal/logger"
)

const (
	// DefaultSubject 默认发布主题。
	DefaultSubject = "aistory.artifacts"

	connectTimeout = 5 * time.Second
	maxReconnects  = 10
)

// Event 描述一个新产物。
type Event struct {
	Kind      string    `json:"kind"` // audio / gallery
	JobID     string    `json:"jobId,omitempty"`
	Path      string    `json:"path"`
	Sections  int       `json:"sections,omitempty"`
	Failed    int       `json:"failed,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Publisher 发布产物通知。
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// Noop 不发送任何通知，未配置 NATS 时使用。
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close()                               {}

// conn 是 *nats.Conn 中用到的方法。
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher 通过 core NATS 发布 JSON 通知。
type NATSPublisher struct {
	nc      conn
	subject string
}

// Connect 连接 NATS。url 为空时返回 Noop。
func Connect(url, subject string) (Publisher, error) {
	if url == "" {
		return Noop{}, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("aistory"),
		nats.Timeout(connectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("[notify] 与 NATS 断开: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infof("[notify] 已重新连接 NATS: %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("连接 NATS 失败: %w", err)
	}
	logger.Infof("[notify] 已连接 NATS: %s (subject=%s)", url, subjectOr(subject))
	return newNATSPublisher(nc, subject), nil
}

func newNATSPublisher(nc conn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subjectOr(subject)}
}

// Publish 发布到 <subject>.<kind>。
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("序列化通知失败: %w", err)
	}
	subject := p.subject
	if e.Kind != "" {
		subject += "." + e.Kind
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("发布通知失败: %w", err)
	}
	logger.Debugf("[notify] 已发布 %s: %s", subject, e.Path)
	return nil
}

// Close 清空缓冲并断开连接。
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		logger.Warnf("[notify] 关闭 NATS 连接失败: %v", err)
	}
}

func subjectOr(s string) string {
	if s == "" {
		return DefaultSubject
	}
	return s
}
