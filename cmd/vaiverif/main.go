// Command vaiverif runs the constrained random verification of the AES core.
package main

func main() {
	Execute()
}
