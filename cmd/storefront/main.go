package main

import "github.com/safar/storefront/internal/cmd"

func main() {
	cmd.Execute()
}
