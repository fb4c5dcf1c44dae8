package main

import "skillswap-gateway/cmd"

func main() {
	cmd.Run()
}
