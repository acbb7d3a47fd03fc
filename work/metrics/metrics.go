package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UploadsTotal counts processed playlist uploads. The "result" label separates
// accepted uploads from rejected ones (bad file, oversize) and processing
// failures.
var UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptv_catalog_uploads_total",
	Help: "Number of playlist uploads by result",
}, []string{"result"})

// UploadDuration observes the wall time of a full upload run: parse, classify
// and catalog replacement together.
var UploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "iptv_catalog_upload_duration_seconds",
	Help:    "Time spent processing an uploaded playlist",
	Buckets: prometheus.DefBuckets,
})

// ChannelsParsed tracks the channel count of the currently loaded catalog.
// Set wholesale after every successful upload.
var ChannelsParsed = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "iptv_catalog_channels",
	Help: "Number of channels in the active catalog",
})

// CategoriesParsed tracks the category count of the currently loaded catalog.
var CategoriesParsed = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "iptv_catalog_categories",
	Help: "Number of categories in the active catalog",
})

// ShardReads counts category shard lookups. The "result" label is "hit" when
// the shard came from the in-memory cache and "miss" when it was read from
// disk.
var ShardReads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptv_catalog_shard_reads_total",
	Help: "Number of category shard reads",
}, []string{"result"})

// RequestsTotal counts HTTP requests by route pattern and status code.
var RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptv_catalog_http_requests_total",
	Help: "Number of HTTP requests served",
}, []string{"route", "status"})
