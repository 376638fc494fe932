package main

import (
	"fmt"
	"io"

	"github.com/taoyao-code/novastar-ctl/internal/protocol/novastar"
)

// frameDumper 代替串口：每帧输出一个 YAML 文档
type frameDumper struct {
	w io.Writer
}

func (d *frameDumper) Write(p []byte) (int, error) {
	dump, err := novastar.Describe(p)
	if err != nil {
		return 0, err
	}
	out, err := dump.YAML()
	if err != nil {
		return 0, err
	}
	if _, err := fmt.Fprintf(d.w, "---\n%s", out); err != nil {
		return 0, err
	}
	return len(p), nil
}
