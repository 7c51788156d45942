/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "crosswire/cmd"

func main() {
	cmd.Execute()
}
