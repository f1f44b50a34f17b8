// The rwpairctl command provides a command-line interface for pairing
// devices to RestWell accounts and managing the device registry.
package main

import "github.com/restwell/restwell-pairing/internal/rwpairctl/cmd"

func main() {
	cmd.Execute()
}
