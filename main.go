package main

import "github.com/moodydev/evolvisense-pipeline/cmd"

func main() {
	cmd.Execute()
}
