package main

import (
	"github.com/stealthrocket/synctrace/cmd"
)

func main() {
	cmd.Execute()
}
