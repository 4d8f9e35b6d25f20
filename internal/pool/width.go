package pool

import "runtime"

// Workload is a resource hint for choosing a pool width
type Workload int

const (
	// IOBound work mostly waits on the network
	IOBound Workload = iota
	// CPUBound work keeps a core busy
	CPUBound
	// Mixed work alternates between I/O and computation
	Mixed
	// Lightweight work is short and cheap
	Lightweight
)

const minWorkers = 2

func (w Workload) String() string {
	switch w {
	case CPUBound:
		return "cpu_bound"
	case Mixed:
		return "mixed"
	case Lightweight:
		return "lightweight"
	default:
		return "io_bound"
	}
}

// Width picks a concurrency width for n items of the given workload.
// A positive limit caps the result. The width never exceeds n.
func Width(n int, w Workload, limit int) int {
	return widthFor(n, w, limit, runtime.NumCPU())
}

func widthFor(n int, w Workload, limit, cpus int) int {
	if n <= 0 {
		return 0
	}
	if cpus < 1 {
		cpus = 1
	}

	var base, ceiling int
	switch w {
	case CPUBound:
		base, ceiling = min(n, cpus), cpus+2
	case Mixed:
		base, ceiling = min(n, cpus*2), cpus*3
	case Lightweight:
		base, ceiling = min(n, cpus*8), cpus*10
	default:
		base, ceiling = min(n, cpus*5), min(100, cpus*10)
	}

	width := min(base, ceiling)
	if limit > 0 {
		width = min(width, limit)
	}
	width = max(width, min(minWorkers, n))
	return min(width, n)
}
