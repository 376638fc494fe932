package novastar

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FrameDump 命令帧按字段拆解后的可读形式（用于 dry-run 输出与排查）
type FrameDump struct {
	Kind           string `yaml:"kind"`
	Ack            uint8  `yaml:"ack"`
	Sequence       uint8  `yaml:"sequence"`
	Source         string `yaml:"source"`
	Destination    string `yaml:"destination"`
	DeviceType     string `yaml:"device_type"`
	Port           int    `yaml:"port"`
	Board          string `yaml:"board"`
	Direction      string `yaml:"direction"`
	Register       string `yaml:"register"`
	RegisterName   string `yaml:"register_name"`
	DeclaredLength string `yaml:"declared_length"`
	Payload        string `yaml:"payload"`
	Checksum       string `yaml:"checksum"`
	ChecksumOK     bool   `yaml:"checksum_ok"`
	Raw            string `yaml:"raw"`
}

// Describe 拆解 BuildFrame 产出的帧
// 载荷按整帧长度切分，不依赖声明长度字段（masked 编码下高字节不可信）
func Describe(frame []byte) (*FrameDump, error) {
	if len(frame) < HeaderLength+ChecksumLength {
		return nil, ErrFrameTooShort
	}

	d := &FrameDump{
		Ack:            frame[offsetAck],
		Sequence:       frame[offsetSequence],
		Source:         fmt.Sprintf("0x%02X", frame[offsetSource]),
		Destination:    fmt.Sprintf("0x%02X", frame[offsetDest]),
		DeviceType:     deviceTypeName(frame[offsetDevice]),
		Port:           int(frame[offsetPort]) + 1,
		Board:          hex.EncodeToString(frame[offsetBoard : offsetBoard+2]),
		DeclaredLength: hex.EncodeToString(frame[offsetLength : offsetLength+2]),
		Payload:        hex.EncodeToString(frame[HeaderLength : len(frame)-ChecksumLength]),
		ChecksumOK:     VerifyChecksum(frame) == nil,
		Raw:            fmt.Sprintf("% x", frame),
	}

	switch {
	case frame[0] == MarkerCommand0 && frame[1] == MarkerCommand1:
		d.Kind = "command"
	case frame[0] == MarkerResponse0 && frame[1] == MarkerResponse1:
		d.Kind = "response"
	default:
		d.Kind = "unknown"
	}

	if frame[offsetDirection] == DirectionWrite {
		d.Direction = "write"
	} else {
		d.Direction = "read"
	}

	reg := binary.LittleEndian.Uint32(frame[offsetRegister:])
	d.Register = fmt.Sprintf("0x%08X", reg)
	d.RegisterName = RegisterName(reg)
	d.Checksum = fmt.Sprintf("0x%04X", binary.LittleEndian.Uint16(frame[len(frame)-ChecksumLength:]))

	return d, nil
}

// YAML 渲染为 YAML 文档
func (d *FrameDump) YAML() ([]byte, error) {
	return yaml.Marshal(d)
}

func deviceTypeName(b byte) string {
	switch b {
	case DeviceSender:
		return "sender"
	case DeviceReceiver:
		return "receiver"
	case DeviceFunction:
		return "function"
	default:
		return fmt.Sprintf("0x%02X", b)
	}
}
