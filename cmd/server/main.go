// cmd/server/main.go

// transferd 程式進入點：所有子指令（serve、seed、accounts）定義於 internal/cli。
// 設定來自環境變數與可選的 .env，詳見 internal/config。

package main

import (
	"os"

	"transferd/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
