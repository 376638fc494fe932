package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateInstanceID 生成实例ID，写入命令日志 instance_id 列
// 优先使用环境变量 NOVASTAR_INSTANCE_ID，否则 novastar-{hostname}-{uuid前8位}
func GenerateInstanceID() string {
	if id := os.Getenv("NOVASTAR_INSTANCE_ID"); id != "" {
		return id
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	shortUUID := uuid.New().String()[:8]
	return fmt.Sprintf("novastar-%s-%s", hostname, shortUUID)
}
