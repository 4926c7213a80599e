// This program provides offline administration against the peer database.
package main

import "github.com/ethernova/explorer/app/tooling/explorer-admin/cmd"

func main() {
	cmd.Execute()
}
