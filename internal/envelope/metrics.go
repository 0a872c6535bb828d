package envelope

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

var (
	encodesTotal      = metrics.GetOrCreateCounter("kvserde_encodes_total")
	encodeErrorsTotal = metrics.GetOrCreateCounter("kvserde_encode_errors_total")
	decodesTotal      = metrics.GetOrCreateCounter("kvserde_decodes_total")
	decodeErrorsTotal = metrics.GetOrCreateCounter("kvserde_decode_errors_total")
	emptyDecodesTotal = metrics.GetOrCreateCounter("kvserde_empty_decodes_total")
	compressedTotal   = metrics.GetOrCreateCounter("kvserde_compressed_payloads_total")
	textBytesTotal    = metrics.GetOrCreateCounter("kvserde_text_bytes_total")
	wireBytesTotal    = metrics.GetOrCreateCounter("kvserde_wire_bytes_total")
)

// WriteMetrics writes the engine counters in Prometheus text format.
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
}
