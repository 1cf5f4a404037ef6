package main

import "github.com/CodeMonkeyCybersecurity/gmapper/cmd"

func main() {
	cmd.Execute()
}
