package cmd

import (
	"fmt"
)

const banner = `
  __  __             _      _     _       _
 |  \/  | __ _  __ _(_) ___| |   (_)_ __ | | __
 | |\/| |/ _` + "`" + ` |/ _` + "`" + ` | |/ __| |   | | '_ \| |/ /
 | |  | | (_| | (_| | | (__| |___| | | | |   <
 |_|  |_|\__,_|\__, |_|\___|_____|_|_| |_|_|\_\
               |___/
`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Passwordless Sign-in Service - Version %s\x1b[0m\n\n", Version)
}
