package novastar

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// NovaStar 帧格式常量
const (
	// 魔术字
	MarkerCommand0  = 0x55 // 命令帧 55 aa
	MarkerCommand1  = 0xAA
	MarkerResponse0 = 0xAA // 应答帧 aa 55
	MarkerResponse1 = 0x55

	// 地址
	AddrHost       = 0xFE // 源地址：上位机
	AddrController = 0x00 // 目的地址：控制器

	// 设备类型
	DeviceSender   = 0x00 // 发送卡
	DeviceReceiver = 0x01 // 接收卡
	DeviceFunction = 0x02 // 多功能卡

	// 读写方向
	DirectionRead  = 0x00
	DirectionWrite = 0x01

	// 固定头长度 (marker+ack+seq+src+dst+type+port+board+dir+reserved+reg+len)
	HeaderLength = 2 + 1 + 1 + 1 + 1 + 1 + 1 + 2 + 1 + 1 + 4 + 2 // = 18

	ChecksumLength = 2

	// 校验从流水号字段开始
	checksumStart = 3

	MaxPort          = 256
	MaxPayloadLength = 0xFFFF
)

// 帧内字段偏移
const (
	offsetAck       = 2
	offsetSequence  = 3
	offsetSource    = 4
	offsetDest      = 5
	offsetDevice    = 6
	offsetPort      = 7
	offsetBoard     = 8
	offsetDirection = 10
	offsetReserved  = 11
	offsetRegister  = 12
	offsetLength    = 16
)

// LengthEncoding 数据长度字段的编码方式
type LengthEncoding int

const (
	// LengthMasked 高字节取自低字节右移8位（恒为0），与现网控制器固件行为一致
	LengthMasked LengthEncoding = iota
	// LengthLittleEndian 标准16位小端编码
	LengthLittleEndian
)

func (e LengthEncoding) String() string {
	switch e {
	case LengthMasked:
		return "masked"
	case LengthLittleEndian:
		return "le"
	default:
		return fmt.Sprintf("LengthEncoding(%d)", int(e))
	}
}

// ParseLengthEncoding 解析配置中的编码名称，空串视为 masked
func ParseLengthEncoding(s string) (LengthEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "masked":
		return LengthMasked, nil
	case "le", "little-endian", "littleendian":
		return LengthLittleEndian, nil
	}
	return 0, invalid("length_encoding", s, "want masked or le")
}

func (e LengthEncoding) append(buf []byte, n uint16) []byte {
	if e == LengthLittleEndian {
		return binary.LittleEndian.AppendUint16(buf, n)
	}
	return append(buf, byte(n&0xFF), byte((n&0xFF)>>8))
}

// FrameRequest 单寄存器命令的构帧参数
// 零值即默认：命令帧、写操作、不要求应答、masked 长度编码
type FrameRequest struct {
	Sequence       int    // 帧流水号 0-255
	Register       uint32 // 寄存器地址
	DeclaredLength int    // 数据长度字段声明值，由调用方保证与载荷一致
	Payload        []byte // 载荷，nil 时不写入任何字节
	Port           int    // 输出口，从1开始
	Ack            int    // 应答标志
	Response       bool   // true 时按应答帧构造魔术字与板卡地址
	Read           bool   // true 时方向为读
	LengthEncoding LengthEncoding
}

// Validate 检查各字段是否能放入对应的线上宽度
func (r FrameRequest) Validate() error {
	if err := CheckRange("sequence", r.Sequence, 0, 0xFF); err != nil {
		return err
	}
	if err := CheckRange("port", r.Port, 1, MaxPort); err != nil {
		return err
	}
	if err := CheckRange("ack", r.Ack, 0, 0xFF); err != nil {
		return err
	}
	if err := CheckRange("data_length", r.DeclaredLength, 0, 0xFFFF); err != nil {
		return err
	}
	if len(r.Payload) > MaxPayloadLength {
		return invalid("payload", len(r.Payload), "longer than %d bytes", MaxPayloadLength)
	}
	if r.LengthEncoding != LengthMasked && r.LengthEncoding != LengthLittleEndian {
		return invalid("length_encoding", int(r.LengthEncoding), "unknown encoding")
	}
	return nil
}

// BuildFrame 构造NovaStar单寄存器命令帧
// 格式：55aa(2) + ack(1) + seq(1) + src(1) + dst(1) + type(1) + port(1) + board(2) +
// dir(1) + reserved(1) + reg(4 LE) + len(2) + data(N) + checksum(2 LE)
func BuildFrame(req FrameRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, HeaderLength+len(req.Payload)+ChecksumLength)

	// 魔术字
	if req.Response {
		buf = append(buf, MarkerResponse0, MarkerResponse1)
	} else {
		buf = append(buf, MarkerCommand0, MarkerCommand1)
	}

	buf = append(buf, byte(req.Ack), byte(req.Sequence))
	buf = append(buf, AddrHost, AddrController, DeviceReceiver, byte(req.Port-1))

	// 板卡地址：命令帧广播
	if req.Response {
		buf = append(buf, 0x00, 0x00)
	} else {
		buf = append(buf, 0xFF, 0xFF)
	}

	if req.Read {
		buf = append(buf, DirectionRead)
	} else {
		buf = append(buf, DirectionWrite)
	}
	buf = append(buf, 0x00) // reserved

	buf = binary.LittleEndian.AppendUint32(buf, req.Register)
	buf = req.LengthEncoding.append(buf, uint16(req.DeclaredLength))
	buf = append(buf, req.Payload...)

	return binary.LittleEndian.AppendUint16(buf, Checksum(buf[checksumStart:])), nil
}

// FrameLength 给定载荷长度的整帧字节数
func FrameLength(payloadLen int) int {
	return HeaderLength + payloadLen + ChecksumLength
}
