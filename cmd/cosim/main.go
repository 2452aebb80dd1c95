// Command cosim runs schedules on the behavioural accelerator model and
// reports what the kernel did.
package main

import "github.com/sarchlab/cosim/cmd/cosim/cmd"

func main() {
	cmd.Execute()
}
