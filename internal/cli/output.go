// internal/cli/output.go
package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// output 包裝文字與 JSON 輸出；第一個寫入錯誤會保留在 err。
type output struct {
	w   io.Writer
	err error
}

func newOutput(w io.Writer) *output {
	return &output{w: w}
}

func (o *output) printf(format string, args ...any) {
	if o.err != nil {
		return
	}
	_, o.err = fmt.Fprintf(o.w, format, args...)
}

func (o *output) json(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
