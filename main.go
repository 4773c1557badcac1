package main

import "github.com/frahmantamala/spine-admin/cmd"

func main() {
	cmd.Execute()
}
