// cmd/crashlens/main.go
package main

import (
	"github.com/xkilldash9x/crashlens/cmd"
)

func main() {
	cmd.Execute()
}
