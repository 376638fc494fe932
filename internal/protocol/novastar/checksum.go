package novastar

import "encoding/binary"

// checksumBias 累加和的固定偏置
const checksumBias = 0x5555

// Checksum 计算NovaStar校验和
// 算法：对数据区所有字节做无符号累加，加上 0x5555 后截断为16位
// 数据区：从流水号字段开始，到载荷结束（不含魔术字与ack）
func Checksum(data []byte) uint16 {
	sum := uint32(checksumBias)
	for _, b := range data {
		sum += uint32(b)
	}
	return uint16(sum)
}

// VerifyChecksum 校验完整帧末尾的两字节小端校验和
func VerifyChecksum(frame []byte) error {
	if len(frame) < HeaderLength+ChecksumLength {
		return ErrFrameTooShort
	}
	end := len(frame) - ChecksumLength
	received := binary.LittleEndian.Uint16(frame[end:])
	if received != Checksum(frame[checksumStart:end]) {
		return ErrChecksumMismatch
	}
	return nil
}
