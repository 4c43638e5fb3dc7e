package main

import "github.com/nicelab/nicebids/cmd"

func main() {
	cmd.Execute()
}
