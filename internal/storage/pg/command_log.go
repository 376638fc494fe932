package pg

import (
	"context"
	"embed"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/novastar-ctl/internal/controller"
	"github.com/taoyao-code/novastar-ctl/internal/migrate"
)

// Migrations 命令日志表结构
//
//go:embed migrations/*.sql
var Migrations embed.FS

// Migrate 执行内置迁移
func Migrate(ctx context.Context, db *pgxpool.Pool) ([]int64, error) {
	return migrate.Runner{FS: Migrations}.Up(ctx, db)
}

// CommandLogEntry 命令日志行
type CommandLogEntry struct {
	CommandID  string    `json:"command_id"`
	InstanceID string    `json:"instance_id"`
	OutputPort int       `json:"output_port"`
	Command    string    `json:"command"`
	Register   uint32    `json:"register"`
	Value      int       `json:"value"`
	Sequence   int       `json:"sequence"`
	Frame      []byte    `json:"frame"`
	Success    bool      `json:"success"`
	Error      *string   `json:"error,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// CommandLog 命令审计日志（实现 controller.Recorder）
type CommandLog struct {
	Pool       *pgxpool.Pool
	InstanceID string
}

func (r *CommandLog) Name() string { return "postgres" }

// Record 插入一条命令日志
func (r *CommandLog) Record(ctx context.Context, rec controller.CommandRecord) error {
	const q = `INSERT INTO command_log
               (command_id, instance_id, output_port, command, register, value, sequence, frame, success, error, sent_at)
               VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	var errText *string
	if rec.Err != nil {
		s := rec.Err.Error()
		errText = &s
	}
	_, err := r.Pool.Exec(ctx, q,
		rec.ID, r.InstanceID, rec.Port, rec.Command, int64(rec.Register), rec.Value,
		int16(rec.Sequence), rec.Frame, rec.Success(), errText, rec.SentAt,
	)
	return err
}

// ListRecent 按发送时间倒序列出某输出口最近的命令
func (r *CommandLog) ListRecent(ctx context.Context, port int, limit int) ([]CommandLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	const q = `SELECT command_id::text, instance_id, output_port, command, register, value, sequence, frame, success, error, sent_at
               FROM command_log
               WHERE output_port=$1
               ORDER BY sent_at DESC, id DESC
               LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, port, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CommandLogEntry, 0, limit)
	for rows.Next() {
		var e CommandLogEntry
		var reg int64
		var seq int16
		if err := rows.Scan(&e.CommandID, &e.InstanceID, &e.OutputPort, &e.Command, &reg, &e.Value,
			&seq, &e.Frame, &e.Success, &e.Error, &e.SentAt); err != nil {
			return nil, err
		}
		e.Register = uint32(reg)
		e.Sequence = int(seq)
		out = append(out, e)
	}
	return out, rows.Err()
}
