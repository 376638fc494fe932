package api

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/novastar-ctl/internal/controller"
	"github.com/taoyao-code/novastar-ctl/internal/protocol/novastar"
	pgstorage "github.com/taoyao-code/novastar-ctl/internal/storage/pg"
	redisstorage "github.com/taoyao-code/novastar-ctl/internal/storage/redis"
)

// CommandApplier 下发命令的客户端
type CommandApplier interface {
	Apply(ctx context.Context, cmd controller.Command) (*controller.Result, error)
	Port() int
}

// StateReader 显示状态缓存
type StateReader interface {
	Get(ctx context.Context, port int) (*redisstorage.DisplayState, error)
}

// CommandLister 命令日志查询
type CommandLister interface {
	ListRecent(ctx context.Context, port int, limit int) ([]pgstorage.CommandLogEntry, error)
}

// ControlDeps 控制API依赖，States/Commands 为空表示对应存储未启用
type ControlDeps struct {
	Client   CommandApplier
	States   StateReader
	Commands CommandLister
	Logger   *zap.Logger
}

// ControlHandler 亮度与测试画面控制API
type ControlHandler struct {
	client   CommandApplier
	states   StateReader
	commands CommandLister
	logger   *zap.Logger
}

// NewControlHandler 创建控制API处理器
func NewControlHandler(deps ControlDeps) *ControlHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ControlHandler{
		client:   deps.Client,
		states:   deps.States,
		commands: deps.Commands,
		logger:   logger,
	}
}

// StandardResponse 标准响应格式
type StandardResponse struct {
	Code      int         `json:"code"`           // 0=成功, >0=HTTP状态码
	Message   string      `json:"message"`        // 消息
	Data      interface{} `json:"data,omitempty"` // 业务数据
	RequestID string      `json:"request_id"`     // 请求追踪ID
	Timestamp int64       `json:"timestamp"`      // 时间戳
}

// BrightnessRequest 亮度请求
type BrightnessRequest struct {
	Level *int `json:"level" binding:"required"` // 0-255
}

// PatternRequest 测试画面请求
type PatternRequest struct {
	Pattern string `json:"pattern" binding:"required"` // normal 表示关闭测试画面
}

// CommandResponse 命令下发结果
type CommandResponse struct {
	CommandID  string `json:"command_id"`
	OutputPort int    `json:"output_port"`
	Sequence   uint8  `json:"sequence"`
	Frame      string `json:"frame"` // 十六进制
}

// PatternInfo 测试画面名称与编码
type PatternInfo struct {
	Name string `json:"name"`
	Code uint8  `json:"code"`
}

// SetBrightness 设置全局亮度
// POST /api/v1/brightness {"level":128}
func (h *ControlHandler) SetBrightness(c *gin.Context) {
	requestID := requestIDFrom(c)

	var req BrightnessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondWithError(c, http.StatusBadRequest, requestID, fmt.Sprintf("无效的请求: %v", err))
		return
	}

	h.apply(c, requestID, controller.Brightness(*req.Level))
}

// ShowPattern 切换测试画面
// POST /api/v1/pattern {"pattern":"red"}
func (h *ControlHandler) ShowPattern(c *gin.Context) {
	requestID := requestIDFrom(c)

	var req PatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondWithError(c, http.StatusBadRequest, requestID, fmt.Sprintf("无效的请求: %v", err))
		return
	}

	p, err := novastar.ParsePattern(req.Pattern)
	if err != nil {
		h.respondWithError(c, http.StatusBadRequest, requestID, err.Error())
		return
	}

	h.apply(c, requestID, controller.TestPattern(p))
}

func (h *ControlHandler) apply(c *gin.Context, requestID string, cmd controller.Command) {
	res, err := h.client.Apply(c.Request.Context(), cmd)
	if err != nil {
		status := statusForError(err)
		h.logger.Warn("command failed",
			zap.String("request_id", requestID),
			zap.String("command", cmd.Name),
			zap.Int("value", cmd.Value),
			zap.Int("status", status),
			zap.Error(err),
		)
		h.respondWithError(c, status, requestID, err.Error())
		return
	}

	h.logger.Info("command applied",
		zap.String("request_id", requestID),
		zap.String("command_id", res.CommandID),
		zap.String("command", cmd.Name),
		zap.Int("value", cmd.Value),
		zap.Int("output", h.client.Port()),
	)

	c.JSON(http.StatusOK, StandardResponse{
		Code:    0,
		Message: "命令已下发",
		Data: CommandResponse{
			CommandID:  res.CommandID,
			OutputPort: h.client.Port(),
			Sequence:   res.Sequence,
			Frame:      hex.EncodeToString(res.Frame),
		},
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	})
}

// ListPatterns 测试画面列表
// GET /api/v1/patterns
func (h *ControlHandler) ListPatterns(c *gin.Context) {
	list := make([]PatternInfo, 0, len(novastar.Patterns()))
	for _, p := range novastar.Patterns() {
		list = append(list, PatternInfo{Name: p.String(), Code: uint8(p)})
	}
	c.JSON(http.StatusOK, StandardResponse{
		Code:      0,
		Message:   "ok",
		Data:      list,
		RequestID: requestIDFrom(c),
		Timestamp: time.Now().Unix(),
	})
}

// GetState 当前输出口最近一次成功下发的状态
// GET /api/v1/state
func (h *ControlHandler) GetState(c *gin.Context) {
	requestID := requestIDFrom(c)
	if h.states == nil {
		h.respondWithError(c, http.StatusServiceUnavailable, requestID, "状态缓存未启用")
		return
	}

	st, err := h.states.Get(c.Request.Context(), h.client.Port())
	if errors.Is(err, redisstorage.ErrStateNotFound) {
		h.respondWithError(c, http.StatusNotFound, requestID, "尚无下发记录")
		return
	}
	if err != nil {
		h.logger.Error("read display state failed", zap.String("request_id", requestID), zap.Error(err))
		h.respondWithError(c, http.StatusInternalServerError, requestID, err.Error())
		return
	}

	c.JSON(http.StatusOK, StandardResponse{
		Code:      0,
		Message:   "ok",
		Data:      st,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	})
}

// ListCommands 最近的命令日志
// GET /api/v1/commands?limit=50
func (h *ControlHandler) ListCommands(c *gin.Context) {
	requestID := requestIDFrom(c)
	if h.commands == nil {
		h.respondWithError(c, http.StatusServiceUnavailable, requestID, "命令日志未启用")
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.respondWithError(c, http.StatusBadRequest, requestID, fmt.Sprintf("无效的limit: %q", v))
			return
		}
		limit = n
	}

	list, err := h.commands.ListRecent(c.Request.Context(), h.client.Port(), limit)
	if err != nil {
		h.logger.Error("list command log failed", zap.String("request_id", requestID), zap.Error(err))
		h.respondWithError(c, http.StatusInternalServerError, requestID, err.Error())
		return
	}

	c.JSON(http.StatusOK, StandardResponse{
		Code:      0,
		Message:   "ok",
		Data:      gin.H{"commands": list},
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	})
}

func (h *ControlHandler) respondWithError(c *gin.Context, status int, requestID, message string) {
	c.JSON(status, StandardResponse{
		Code:      status,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	})
}

// statusForError 校验失败400，限速429，其余视为串口故障502
func statusForError(err error) int {
	switch {
	case errors.Is(err, novastar.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, controller.ErrThrottled):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func requestIDFrom(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}
