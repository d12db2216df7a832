package main

import (
	"fmt"
	"os"

	"github.com/sandeepkv93/otp-account-service/internal/tools/common"
	tool "github.com/sandeepkv93/otp-account-service/internal/tools/migrate"
)

func main() {
	if err := tool.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(common.ExitFailure)
	}
}
