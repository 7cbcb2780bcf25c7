package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	uploadFilesTotal       atomic.Uint64
	uploadFilesFailedTotal atomic.Uint64
	uploadBatchesTotal     atomic.Uint64
	locateRequestsTotal    atomic.Uint64

	uploadBatchDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncUploadFiles adds to the per-file upload counters.
func IncUploadFiles(succeeded, failed uint64) {
	uploadFilesTotal.Add(succeeded + failed)
	uploadFilesFailedTotal.Add(failed)
}

// IncUploadBatch increments the batch counter.
func IncUploadBatch() {
	uploadBatchesTotal.Add(1)
}

// IncLocateRequests increments the document-locate counter.
func IncLocateRequests() {
	locateRequestsTotal.Add(1)
}

// ObserveUploadBatchDurationMs records a batch upload duration in milliseconds.
func ObserveUploadBatchDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	uploadBatchDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "upload_files_total", "Total files submitted for upload", uploadFilesTotal.Load())
	writeCounter(&buf, "upload_files_failed_total", "Total files that failed upload", uploadFilesFailedTotal.Load())
	writeCounter(&buf, "upload_batches_total", "Total upload batches processed", uploadBatchesTotal.Load())
	writeCounter(&buf, "locate_requests_total", "Total document locate requests", locateRequestsTotal.Load())
	writeHistogram(&buf, "upload_batch_duration_ms", "Upload batch duration in milliseconds", uploadBatchDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
