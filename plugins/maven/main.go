package main

import "github.com/relicta-tech/flowline/pkg/plugin"

func main() {
	plugin.Serve(New())
}
