// Package watch delivers debounced change notifications for a Go source
// tree, driving the test command's watch mode.
//
// A Watcher observes every non-excluded directory under the project root
// recursively. Rapid saves of the same file collapse into one
// notification: changes are held until they settle past the debounce
// window, then delivered as a batch on the Changes channel. Directories
// created while watching are picked up on the fly.
//
// The Watcher runs one goroutine between Start and Stop and does not
// leak it: Stop (or context cancellation) terminates the loop and waits
// for it to finish.
package watch
