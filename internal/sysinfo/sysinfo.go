// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

// Package sysinfo collects a read-only snapshot of host telemetry.
package sysinfo

import (
	"context"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/samber/oops"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// DefaultCPUSampleInterval is how long CPU usage is sampled per snapshot.
const DefaultCPUSampleInterval = time.Second

const gib = 1 << 30

// Snapshot is a point-in-time view of the host.
type Snapshot struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	CPU       CPUInfo       `json:"cpu"`
	Memory    MemoryInfo    `json:"memory"`
	Disk      DiskInfo      `json:"disk"`
	Network   NetworkInfo   `json:"network"`
	System    SystemInfo    `json:"system"`
	Processes ProcessesInfo `json:"processes"`
}

// CPUInfo describes processor load.
type CPUInfo struct {
	UsagePercent float64  `json:"usage_percent"`
	Cores        int      `json:"cores"`
	FrequencyMHz *float64 `json:"frequency_mhz"`
}

// MemoryInfo describes virtual memory, in GiB.
type MemoryInfo struct {
	TotalGB      float64 `json:"total_gb"`
	UsedGB       float64 `json:"used_gb"`
	AvailableGB  float64 `json:"available_gb"`
	UsagePercent float64 `json:"usage_percent"`
}

// DiskInfo describes the root filesystem, in GiB.
type DiskInfo struct {
	Path         string  `json:"path"`
	TotalGB      float64 `json:"total_gb"`
	UsedGB       float64 `json:"used_gb"`
	FreeGB       float64 `json:"free_gb"`
	UsagePercent float64 `json:"usage_percent"`
}

// NetworkInfo holds counters summed over all interfaces.
type NetworkInfo struct {
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
}

// SystemInfo describes the platform.
type SystemInfo struct {
	Platform        string    `json:"platform"`
	PlatformVersion string    `json:"platform_version"`
	KernelVersion   string    `json:"kernel_version"`
	Architecture    string    `json:"architecture"`
	Hostname        string    `json:"hostname"`
	GoVersion       string    `json:"go_version"`
	BootTime        time.Time `json:"boot_time"`
	UptimeHours     float64   `json:"uptime_hours"`
}

// ProcessesInfo counts running processes.
type ProcessesInfo struct {
	Count int `json:"count"`
}

// Source provides raw host readings.
type Source interface {
	CPUPercent(ctx context.Context, interval time.Duration) (float64, error)
	CPUCores(ctx context.Context) (int, error)
	CPUFrequency(ctx context.Context) (float64, bool)
	VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error)
	DiskUsage(ctx context.Context, path string) (*disk.UsageStat, error)
	NetIO(ctx context.Context) (*net.IOCountersStat, error)
	Host(ctx context.Context) (*host.InfoStat, error)
	ProcessCount(ctx context.Context) (int, error)
}

// Collector builds Snapshots from a Source.
type Collector struct {
	source         Source
	sampleInterval time.Duration
	diskPath       string
	now            func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithSource replaces the gopsutil-backed source.
func WithSource(s Source) Option {
	return func(c *Collector) { c.source = s }
}

// WithCPUSampleInterval sets the CPU sampling window.
func WithCPUSampleInterval(d time.Duration) Option {
	return func(c *Collector) { c.sampleInterval = d }
}

// WithDiskPath sets the filesystem whose usage is reported.
func WithDiskPath(path string) Option {
	return func(c *Collector) { c.diskPath = path }
}

// NewCollector creates a Collector.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		source:         gopsutilSource{},
		sampleInterval: DefaultCPUSampleInterval,
		diskPath:       rootPath(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func rootPath() string {
	if runtime.GOOS == "windows" {
		return `C:\`
	}
	return "/"
}

// Snapshot collects the current host telemetry. Any failing reading fails
// the snapshot, except CPU frequency which is reported as null when unknown.
func (c *Collector) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Status: "ok", Timestamp: c.now().UTC()}

	usage, err := c.source.CPUPercent(ctx, c.sampleInterval)
	if err != nil {
		return nil, collectErr("cpu_percent", err)
	}
	cores, err := c.source.CPUCores(ctx)
	if err != nil {
		return nil, collectErr("cpu_cores", err)
	}
	snap.CPU = CPUInfo{UsagePercent: usage, Cores: cores}
	if mhz, ok := c.source.CPUFrequency(ctx); ok {
		snap.CPU.FrequencyMHz = &mhz
	}

	vm, err := c.source.VirtualMemory(ctx)
	if err != nil {
		return nil, collectErr("virtual_memory", err)
	}
	snap.Memory = MemoryInfo{
		TotalGB:      toGB(vm.Total),
		UsedGB:       toGB(vm.Used),
		AvailableGB:  toGB(vm.Available),
		UsagePercent: round(vm.UsedPercent, 1),
	}

	du, path, err := c.diskUsage(ctx)
	if err != nil {
		return nil, collectErr("disk_usage", err)
	}
	snap.Disk = DiskInfo{
		Path:    path,
		TotalGB: toGB(du.Total),
		UsedGB:  toGB(du.Used),
		FreeGB:  toGB(du.Free),
	}
	if du.Total > 0 {
		snap.Disk.UsagePercent = round(float64(du.Used)/float64(du.Total)*100, 1)
	}

	nio, err := c.source.NetIO(ctx)
	if err != nil {
		return nil, collectErr("net_io", err)
	}
	snap.Network = NetworkInfo{
		BytesSent:   nio.BytesSent,
		BytesRecv:   nio.BytesRecv,
		PacketsSent: nio.PacketsSent,
		PacketsRecv: nio.PacketsRecv,
	}

	hi, err := c.source.Host(ctx)
	if err != nil {
		return nil, collectErr("host", err)
	}
	snap.System = SystemInfo{
		Platform:        hi.OS,
		PlatformVersion: hi.PlatformVersion,
		KernelVersion:   hi.KernelVersion,
		Architecture:    runtime.GOARCH,
		Hostname:        hi.Hostname,
		GoVersion:       runtime.Version(),
		BootTime:        time.Unix(int64(hi.BootTime), 0).UTC(), //nolint:gosec // boot time fits in int64
		UptimeHours:     round(float64(hi.Uptime)/3600, 1),
	}

	count, err := c.source.ProcessCount(ctx)
	if err != nil {
		return nil, collectErr("process_count", err)
	}
	snap.Processes = ProcessesInfo{Count: count}

	return snap, nil
}

// diskUsage falls back to the working directory when the configured path
// cannot be read.
func (c *Collector) diskUsage(ctx context.Context) (*disk.UsageStat, string, error) {
	du, err := c.source.DiskUsage(ctx, c.diskPath)
	if err == nil {
		return du, c.diskPath, nil
	}
	wd, wdErr := os.Getwd()
	if wdErr != nil || wd == c.diskPath {
		return nil, "", err
	}
	du, fbErr := c.source.DiskUsage(ctx, wd)
	if fbErr != nil {
		return nil, "", err
	}
	return du, wd, nil
}

func collectErr(source string, err error) error {
	return oops.Code("SYSINFO_COLLECT_FAILED").With("source", source).Wrap(err)
}

func toGB(b uint64) float64 {
	return round(float64(b)/gib, 2)
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// gopsutilSource reads the host through gopsutil.
type gopsutilSource struct{}

func (gopsutilSource) CPUPercent(ctx context.Context, interval time.Duration) (float64, error) {
	pcts, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		return 0, err //nolint:wrapcheck // wrapped by Snapshot
	}
	if len(pcts) == 0 {
		return 0, nil
	}
	return round(pcts[0], 1), nil
}

func (gopsutilSource) CPUCores(ctx context.Context) (int, error) {
	return cpu.CountsWithContext(ctx, true) //nolint:wrapcheck // wrapped by Snapshot
}

func (gopsutilSource) CPUFrequency(ctx context.Context) (float64, bool) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil || len(infos) == 0 || infos[0].Mhz == 0 {
		return 0, false
	}
	return infos[0].Mhz, true
}

func (gopsutilSource) VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx) //nolint:wrapcheck // wrapped by Snapshot
}

func (gopsutilSource) DiskUsage(ctx context.Context, path string) (*disk.UsageStat, error) {
	return disk.UsageWithContext(ctx, path) //nolint:wrapcheck // wrapped by Snapshot
}

func (gopsutilSource) NetIO(ctx context.Context) (*net.IOCountersStat, error) {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by Snapshot
	}
	if len(counters) == 0 {
		return &net.IOCountersStat{}, nil
	}
	return &counters[0], nil
}

func (gopsutilSource) Host(ctx context.Context) (*host.InfoStat, error) {
	return host.InfoWithContext(ctx) //nolint:wrapcheck // wrapped by Snapshot
}

func (gopsutilSource) ProcessCount(ctx context.Context) (int, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return 0, err //nolint:wrapcheck // wrapped by Snapshot
	}
	return len(pids), nil
}
