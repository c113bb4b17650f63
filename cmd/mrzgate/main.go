// Command mrzgate reads passport machine-readable zones from photos and
// derives the chip access keys.
package main

func main() {
	Execute()
}
