// Command fhdlc compiles FHDL source into a Factorio blueprint.
package main

func main() {
	Execute()
}
