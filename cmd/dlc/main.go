// SPDX-License-Identifier: MPL-2.0

// Command dlc is the in-container supervisor. It replaces an image's
// original entrypoint, installs itself into a shared volume so future
// containers can reuse the binary without a network fetch, and drives one
// child process through readiness evaluation while streaming lifecycle
// events to the host-side controller.
package main

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fatalf("%v", err)
	}
}
