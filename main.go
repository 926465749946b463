// Command linkcheck reports the page title of every URL in a text file.
package main

import "github.com/JakeFAU/linkcheck/cmd"

func main() {
	cmd.Execute()
}
