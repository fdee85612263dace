// ABOUTME: Entry point for the LeadLab CRM client
// ABOUTME: Hands the process arguments to the cobra command tree
package main

import "github.com/harperreed/leadlab/cli"

const version = "0.1.3"

func main() {
	cli.Main(version)
}
