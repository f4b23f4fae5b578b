// Command claims submits expense claims to the accounting webhook, either as
// an HTTP service (claims serve) or one claim at a time from a JSON file.
package main

func main() {
	Execute()
}
