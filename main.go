package main

import "github.com/Unreal-Works/roblox-coverage-patch/cmd"

func main() {
	cmd.Execute()
}
