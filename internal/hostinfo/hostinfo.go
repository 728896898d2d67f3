package hostinfo

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Info describes the host the daemon runs on, logged once at startup
type Info struct {
	CPUModel   string
	CPUThreads int
	RAMBytes   uint64
	OS         string
	Arch       string
}

// Detect collects host information. Detection failures degrade to partial
// info rather than erroring; this is log-only data.
func Detect() *Info {
	info := &Info{
		CPUModel:   "Unknown",
		CPUThreads: runtime.NumCPU(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	}

	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.RAMBytes = vm.Total
	}

	return info
}

// String formats the info for a single startup log line
func (i *Info) String() string {
	return fmt.Sprintf("%s (%d threads), %s RAM, %s/%s",
		i.CPUModel, i.CPUThreads, FormatRAM(i.RAMBytes), i.OS, i.Arch)
}

// FormatRAM formats bytes as a human-readable size
func FormatRAM(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	if gb >= 1 {
		return fmt.Sprintf("%.1f GB", gb)
	}
	mb := float64(bytes) / (1024 * 1024)
	return fmt.Sprintf("%.0f MB", mb)
}
