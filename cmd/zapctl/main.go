package main

import "github.com/kislikjeka/zapfeed/cmd/zapctl/cmd"

func main() {
	cmd.Execute()
}
