/*
Copyright © 2026 Nordic Lab Systems <engineering@nordiclab.io>
*/
package main

func main() {
	Execute()
}
