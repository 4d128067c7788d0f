package main

import "identityrecon/cmd"

func main() {
	cmd.Execute()
}
