package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	sessionKeyPrefix  = "biostats:session:"
	progressKeyPrefix = "biostats:progress:"
)

// DashboardState 一个会话的面板选择
// Fetched 在第一次点击 fetch 后置位，之后每次重新渲染都会重新统计
type DashboardState struct {
	Dataset     string    `json:"dataset"`
	Config      string    `json:"config"`
	CounterType string    `json:"counter_type"`
	Fetched     bool      `json:"fetched"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SessionStore 基于Redis的会话状态
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore 创建会话状态存储
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Get 读取会话状态，不存在时返回零值
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*DashboardState, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return &DashboardState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话失败: %w", err)
	}

	var state DashboardState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("解析会话失败: %w", err)
	}
	return &state, nil
}

// Save 写入会话状态并刷新过期时间
func (s *SessionStore) Save(ctx context.Context, sessionID string, state *DashboardState) error {
	state.UpdatedAt = time.Now()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("写入会话失败: %w", err)
	}
	return nil
}

// Delete 清除会话状态
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
}

// ProgressState 一个会话当前的统计进度
type ProgressState struct {
	Split     string    `json:"split"`
	Done      int       `json:"done"`
	Total     int       `json:"total"`
	Finished  bool      `json:"finished"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressStore 基于Redis的进度存储，SSE 接口轮询读取
type ProgressStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProgressStore 创建进度存储
func NewProgressStore(client *redis.Client, ttl time.Duration) *ProgressStore {
	return &ProgressStore{client: client, ttl: ttl}
}

// Get 读取进度，不存在时返回 nil
func (p *ProgressStore) Get(ctx context.Context, sessionID string) (*ProgressState, error) {
	data, err := p.client.Get(ctx, progressKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取进度失败: %w", err)
	}

	var state ProgressState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("解析进度失败: %w", err)
	}
	return &state, nil
}

// Set 写入进度
func (p *ProgressStore) Set(ctx context.Context, sessionID string, state *ProgressState) error {
	state.UpdatedAt = time.Now()
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, progressKeyPrefix+sessionID, data, p.ttl).Err()
}

// Finish 标记统计结束
func (p *ProgressStore) Finish(ctx context.Context, sessionID string, cause error) error {
	state := &ProgressState{Finished: true}
	if cause != nil {
		state.Error = cause.Error()
	}
	return p.Set(ctx, sessionID, state)
}
