// Command toastui shows ephemeral toast notifications in the terminal and,
// optionally, on the desktop.
package main

func main() {
	Execute()
}
