package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net" //cloudwatch

	"github.com/aws/aws-sdk-go-v2/aws"                              //cloudwatch
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types" //cloudwatch
)

type channelStat struct {
	messages int64
	bytes    int64
}

var (
	errorsPacker    int64
	errorsReplay    int64
	warnsPacker     int64
	warnsReplay     int64
	updatesRead     int64
	envelopesPacked int64
	decodeFailures  int64
	emitterWrites   int64
	channels        sync.Map // map[string]*channelStat
)

func recordWarn(component string) {
	if strings.Contains(component, "packer") {
		atomic.AddInt64(&warnsPacker, 1)
	} else if strings.Contains(component, "replay") {
		atomic.AddInt64(&warnsReplay, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "packer") {
		atomic.AddInt64(&errorsPacker, 1)
	} else if strings.Contains(component, "replay") {
		atomic.AddInt64(&errorsReplay, 1)
	}
}

// IncrementUpdateRead records one domain update read into the pipeline.
func IncrementUpdateRead(size int) {
	atomic.AddInt64(&updatesRead, 1)
	recordChannel("replay_updates", size)
}

// IncrementEnvelopePacked records one envelope produced by the packer.
func IncrementEnvelopePacked(size int) {
	atomic.AddInt64(&envelopesPacked, 1)
	recordChannel("packed_envelopes", size)
}

// IncrementDecodeFailure records one binary entry that degraded to an
// empty blob during envelope verification.
func IncrementDecodeFailure() {
	atomic.AddInt64(&decodeFailures, 1)
}

// IncrementEmitterWrite records one envelope written by the emitter.
func IncrementEmitterWrite(size int) {
	atomic.AddInt64(&emitterWrites, 1)
	recordChannel("emitter_writes", size)
}

func RecordChannelMessage(name string, size int) {
	recordChannel(name, size)
}

func recordChannel(name string, size int) {
	v, _ := channels.LoadOrStore(name, &channelStat{})
	cs := v.(*channelStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.bytes, int64(size))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and channel statistics.
// It exposes the internal startReport function for use by other packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	netStats, _ := gnet.IOCounters(false)
	channelData := map[string]map[string]int64{}
	channels.Range(func(k, v any) bool {
		name := k.(string)
		cs := v.(*channelStat)
		channelData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"bytes":    atomic.LoadInt64(&cs.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	fields := Fields{
		"errors_packer":    atomic.LoadInt64(&errorsPacker),
		"errors_replay":    atomic.LoadInt64(&errorsReplay),
		"warns_packer":     atomic.LoadInt64(&warnsPacker),
		"warns_replay":     atomic.LoadInt64(&warnsReplay),
		"updates_read":     atomic.LoadInt64(&updatesRead),
		"envelopes_packed": atomic.LoadInt64(&envelopesPacked),
		"decode_failures":  atomic.LoadInt64(&decodeFailures),
		"emitter_writes":   atomic.LoadInt64(&emitterWrites),
		"goroutines":       runtime.NumGoroutine(),
		"cpu_percent":      cpuPct,
		"memory_mb":        int64(memStats.Used) / 1024 / 1024,
		"disk_mb":          int64(diskStats.Used) / 1024 / 1024,
		"channels":         channelData,
		"net_bytes_sent":   int64(bytesSent),
		"net_bytes_recv":   int64(bytesRecv),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("FeedFlow-CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("FeedFlow-MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("FeedFlow-DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("FeedFlow-ErrorsPacker"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_packer"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("FeedFlow-ErrorsReplay"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_replay"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("FeedFlow-WarnsPacker"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_packer"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("FeedFlow-WarnsReplay"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_replay"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("FeedFlow-UpdatesRead"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["updates_read"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("FeedFlow-EnvelopesPacked"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["envelopes_packed"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("FeedFlow-DecodeFailures"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["decode_failures"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("FeedFlow-EmitterWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["emitter_writes"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("FeedFlow-NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		cwtypes.MetricDatum{MetricName: aws.String("FeedFlow-NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	)

	for name, stats := range channelData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("FeedFlow-ChannelMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("FeedFlow-ChannelBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
