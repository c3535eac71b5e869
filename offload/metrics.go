package offload

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	// NetlinkOps counts every TC netlink exchange by operation and outcome.
	NetlinkOps *prometheus.CounterVec

	// AttachedFilters is 1 while a filter is installed on an interface's hook.
	AttachedFilters *prometheus.GaugeVec

	RxBytes *prometheus.GaugeVec
	TxBytes *prometheus.GaugeVec
}

func newMetrics() *metrics {
	return &metrics{
		NetlinkOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clat_offload_netlink_ops_total",
			Help: "TC netlink operations by outcome",
		}, []string{"op", "result"}),

		AttachedFilters: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clat_offload_attached_filters",
			Help: "Installed translation filters",
		}, []string{"interface", "direction"}),

		RxBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clat_offload_interface_rx_bytes",
			Help: "Received bytes on offloaded interfaces [B]",
		}, []string{"interface"}),
		TxBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clat_offload_interface_tx_bytes",
			Help: "Transmitted bytes on offloaded interfaces [B]",
		}, []string{"interface"}),
	}
}

func (m *metrics) register(reg *prometheus.Registry) error {
	for _, c := range []prometheus.Collector{m.NetlinkOps, m.AttachedFilters, m.RxBytes, m.TxBytes} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("error registering collector: %w", err)
		}
	}
	return nil
}

func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	handler := http.NewServeMux()
	handler.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return &http.Server{
		Addr:    addr,
		Handler: handler,
	}
}
