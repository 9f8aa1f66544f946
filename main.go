// Command preserver archives primary-source publications as validated PDFs.
package main

import "github.com/mweiler/primary-preserver/cmd"

func main() {
	cmd.Execute()
}
