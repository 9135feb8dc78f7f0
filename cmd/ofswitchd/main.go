// Command ofswitchd runs a standalone OpenFlow 1.1 switch datapath,
// listening for a single controller connection and driving every
// accepted packet through the table pipeline.
package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	of "github.com/netrack/ofswitch"
	"github.com/netrack/ofswitch/datapath"
	"github.com/netrack/ofswitch/metrics"
)

func main() {
	addr := flag.String("listen", "0.0.0.0:6633", "address the switch listens for a controller on")
	metricsAddr := flag.String("metrics-listen", "0.0.0.0:9090", "address the Prometheus metrics endpoint listens on")
	tables := flag.Int("tables", 4, "number of flow tables in the pipeline")
	invalidTTLToController := flag.Bool("invalid-ttl-to-controller", false, "report TTL-exhausted packets to the controller instead of dropping them")
	expireInterval := flag.Duration("expire-interval", 5*time.Second, "interval between idle/hard timeout sweeps")
	logFile := flag.String("log-file", "", "file to write logs to, rotated via lumberjack; stderr when empty")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *logFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		})
	}

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)
	ports := datapath.NewMapPorts()
	buffers := datapath.NewMapBuffers()

	dp := datapath.NewDatapath(*tables, ports, buffers, log, reg)
	dp.InvalidTTLToController = *invalidTTLToController

	handler := &of.DatapathHandler{Datapath: dp, Log: log}

	srv := &of.Server{
		Addr:    *addr,
		Handler: handler,
		ConnState: func(c of.Conn, state of.ConnState) {
			switch state {
			case of.StateHelloReceived:
				handler.Track(c)
			case of.StateClosed:
				handler.Untrack(c)
			}
		},
	}

	go func() {
		ticker := time.NewTicker(*expireInterval)
		defer ticker.Stop()
		for now := range ticker.C {
			dp.Expire(now)
		}
	}()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.WithField("addr", *metricsAddr).Info("serving metrics")
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			log.WithError(err).Error("metrics server stopped")
		}
	}()

	log.WithFields(logrus.Fields{
		"addr":   *addr,
		"tables": *tables,
	}).Info("starting openflow datapath")

	if err := srv.ListenAndServe(); err != nil {
		log.WithError(err).Fatal("datapath server stopped")
	}
}
