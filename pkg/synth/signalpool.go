package synth

import "github.com/dthusian/k2se/pkg/netlist"

// virtualSignalPool returns the fixed 36-entry pool of virtual signals
// (signal-A through signal-Z, then signal-0 through signal-9) that Single
// nets are assigned from, in allocation order.
func virtualSignalPool() []netlist.Signal {
	pool := make([]netlist.Signal, 0, 36)

	for c := 'A'; c <= 'Z'; c++ {
		pool = append(pool, netlist.Signal{Kind: netlist.Virtual, Name: "signal-" + string(c)})
	}

	for d := '0'; d <= '9'; d++ {
		pool = append(pool, netlist.Signal{Kind: netlist.Virtual, Name: "signal-" + string(d)})
	}

	return pool
}
