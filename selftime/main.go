// The selftime command converts a folded-stack time profile from inclusive
// to exclusive durations, so that flamegraph tooling does not double count
// nested time.
package main

import "github.com/sarchlab/memtrace/selftime/cmd"

func main() {
	cmd.Execute()
}
