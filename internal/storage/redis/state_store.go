package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taoyao-code/novastar-ctl/internal/controller"
	"github.com/taoyao-code/novastar-ctl/internal/protocol/novastar"
)

// ErrStateNotFound 该输出口尚无成功下发记录
var ErrStateNotFound = errors.New("display state not found")

// DisplayState 输出口最近一次成功下发的亮度与测试画面
type DisplayState struct {
	OutputPort  int               `json:"output_port"`
	Brightness  *int              `json:"brightness,omitempty"`
	Pattern     *novastar.Pattern `json:"pattern,omitempty"`
	LastCommand string            `json:"last_command_id"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// StateStore 显示状态缓存（实现 controller.Recorder）
// key: {prefix}state:{port}  hash 字段: brightness / pattern / command_id / updated_at
type StateStore struct {
	client *Client
	ttl    time.Duration
}

// NewStateStore ttl<=0 表示不过期
func NewStateStore(client *Client, ttl time.Duration) *StateStore {
	return &StateStore{client: client, ttl: ttl}
}

func (s *StateStore) key(port int) string {
	return s.client.Key(fmt.Sprintf("state:%d", port))
}

// PoolStats 连接池统计
func (s *StateStore) PoolStats() *redis.PoolStats { return s.client.PoolStats() }

func (s *StateStore) Name() string { return "redis" }

// Record 仅缓存写出成功的命令
func (s *StateStore) Record(ctx context.Context, rec controller.CommandRecord) error {
	if !rec.Success() {
		return nil
	}

	var field string
	switch rec.Command {
	case controller.CommandBrightness:
		field = "brightness"
	case controller.CommandTestPattern:
		field = "pattern"
	default:
		return nil
	}

	key := s.key(rec.Port)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		field, rec.Value,
		"command_id", rec.ID,
		"updated_at", rec.SentAt.UTC().Format(time.RFC3339Nano),
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Get 读取输出口显示状态
func (s *StateStore) Get(ctx context.Context, port int) (*DisplayState, error) {
	vals, err := s.client.HGetAll(ctx, s.key(port)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, ErrStateNotFound
	}
	return parseState(port, vals)
}

// Ports 已缓存状态的输出口，按 SCAN 遍历 {prefix}state:* 键空间
func (s *StateStore) Ports(ctx context.Context) ([]int, error) {
	var ports []int
	iter := s.client.Scan(ctx, 0, s.client.Key("state:*"), 100).Iterator()
	for iter.Next(ctx) {
		suffix := strings.TrimPrefix(iter.Val(), s.client.Key("state:"))
		port, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		ports = append(ports, port)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Ints(ports)
	return ports, nil
}

func parseState(port int, vals map[string]string) (*DisplayState, error) {
	st := &DisplayState{OutputPort: port, LastCommand: vals["command_id"]}

	if v, ok := vals["brightness"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse brightness %q: %w", v, err)
		}
		st.Brightness = &n
	}
	if v, ok := vals["pattern"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse pattern %q: %w", v, err)
		}
		p := novastar.Pattern(n)
		st.Pattern = &p
	}
	if v, ok := vals["updated_at"]; ok {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at %q: %w", v, err)
		}
		st.UpdatedAt = t
	}
	return st, nil
}

var _ controller.Recorder = (*StateStore)(nil)
