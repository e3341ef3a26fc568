// Package metrics records jigsaw and upload events as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/observability"
)

var (
	_ observability.JigsawHooks = (*Recorder)(nil)
	_ observability.UploadHooks = (*Recorder)(nil)
)

// Recorder implements observability.JigsawHooks and observability.UploadHooks.
type Recorder struct {
	piecesBuilt   prometheus.Counter
	buildSeconds  prometheus.Histogram
	connectors    *prometheus.CounterVec
	piecesSaved   prometheus.Counter
	saveFailures  prometheus.Counter
	saveSeconds   prometheus.Histogram
	uploads       *prometheus.CounterVec
	uploadedBytes prometheus.Counter
}

// NewRecorder creates a Recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		piecesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jigsaw_pieces_built_total",
			Help: "Padded piece canvases created.",
		}),
		buildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jigsaw_build_seconds",
			Help:    "Time spent cropping and padding a grid.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		connectors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jigsaw_connectors_total",
			Help: "Connector tabs cut, by edge orientation and donor side.",
		}, []string{"edge", "donor"}),
		piecesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jigsaw_pieces_saved_total",
			Help: "Piece images written.",
		}),
		saveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jigsaw_save_failures_total",
			Help: "Save batches aborted by an error.",
		}),
		saveSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jigsaw_save_seconds",
			Help:    "Time spent writing all pieces of a grid.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jigsaw_uploads_total",
			Help: "Objects uploaded to storage, by result.",
		}, []string{"result"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jigsaw_uploaded_bytes_total",
			Help: "Bytes uploaded to storage.",
		}),
	}
	reg.MustRegister(r.piecesBuilt, r.buildSeconds, r.connectors, r.piecesSaved,
		r.saveFailures, r.saveSeconds, r.uploads, r.uploadedBytes)
	return r
}

func (r *Recorder) OnBuildComplete(pieces int, d time.Duration) {
	r.piecesBuilt.Add(float64(pieces))
	r.buildSeconds.Observe(d.Seconds())
}

// OnConnector labels the donor by its side of the edge: "left"/"right" for
// vertical edges, "up"/"down" for horizontal ones.
func (r *Recorder) OnConnector(edge string, donorX, donorY, receiverX, receiverY int) {
	var donor string
	switch {
	case donorX < receiverX:
		donor = "left"
	case donorX > receiverX:
		donor = "right"
	case donorY < receiverY:
		donor = "up"
	default:
		donor = "down"
	}
	r.connectors.WithLabelValues(edge, donor).Inc()
}

func (r *Recorder) OnPieceSaved(int, int) { r.piecesSaved.Inc() }

func (r *Recorder) OnSaveComplete(_ int, d time.Duration, err error) {
	if err != nil {
		r.saveFailures.Inc()
		return
	}
	r.saveSeconds.Observe(d.Seconds())
}

func (r *Recorder) OnUpload(_ string, size int64, err error) {
	if err != nil {
		r.uploads.WithLabelValues("error").Inc()
		return
	}
	r.uploads.WithLabelValues("ok").Inc()
	r.uploadedBytes.Add(float64(size))
}

// WriteFile dumps everything gathered by g to path in the text exposition
// format, for node_exporter's textfile collector.
func WriteFile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
