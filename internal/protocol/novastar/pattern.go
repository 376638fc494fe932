package novastar

import "strings"

// 寄存器地址
const (
	RegisterBrightness  uint32 = 0x02000001 // 全局亮度
	RegisterTestPattern uint32 = 0x02000101 // 测试画面
)

// RegisterName 返回已知寄存器的名称
func RegisterName(reg uint32) string {
	switch reg {
	case RegisterBrightness:
		return "brightness"
	case RegisterTestPattern:
		return "test_pattern"
	default:
		return "unknown"
	}
}

// Pattern 控制器内置测试画面
type Pattern uint8

const (
	PatternNormal     Pattern = iota + 1 // 关闭测试画面
	PatternRed                           // 纯红
	PatternGreen                         // 纯绿
	PatternBlue                          // 纯蓝
	PatternWhite                         // 纯白
	PatternHorizontal                    // 水平扫描线
	PatternVertical                      // 垂直扫描线
	PatternSlash                         // 斜线
	PatternGrayscale                     // 灰度渐变
)

var patternNames = [...]string{
	PatternNormal:     "normal",
	PatternRed:        "red",
	PatternGreen:      "green",
	PatternBlue:       "blue",
	PatternWhite:      "white",
	PatternHorizontal: "horizontal",
	PatternVertical:   "vertical",
	PatternSlash:      "slash",
	PatternGrayscale:  "grayscale",
}

// Patterns 按编码顺序列出全部测试画面
func Patterns() []Pattern {
	out := make([]Pattern, 0, len(patternNames)-1)
	for p := PatternNormal; p <= PatternGrayscale; p++ {
		out = append(out, p)
	}
	return out
}

// Valid 是否为已定义的测试画面编码
func (p Pattern) Valid() bool {
	return p >= PatternNormal && p <= PatternGrayscale
}

func (p Pattern) String() string {
	if !p.Valid() {
		return "unknown"
	}
	return patternNames[p]
}

// ParsePattern 按名称查找测试画面（忽略大小写）
func ParsePattern(name string) (Pattern, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range Patterns() {
		if patternNames[p] == key {
			return p, nil
		}
	}
	return 0, invalid("pattern", name, "unknown test pattern")
}

// MarshalText 以名称形式输出，便于 JSON/YAML 绑定
func (p Pattern) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, invalid("pattern", int(p), "unknown test pattern")
	}
	return []byte(p.String()), nil
}

func (p *Pattern) UnmarshalText(text []byte) error {
	v, err := ParsePattern(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
