package main

import (
	"fmt"
	"os"

	"github.com/SlpAus/omikuji-record-backend/internal/admin"
)

func main() {
	if err := admin.NewRootCmd(admin.LoadEnv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}
