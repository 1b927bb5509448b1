package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

func main() {
	config := &CheckConfig{}
	config.Parse()

	if err := config.Validate(); err != nil {
		log.Fatalf("Problem with config! %v", err)
	}

	instances, err := config.Instances()
	if err != nil {
		log.Fatalf("Problem with instances config! %v", err)
	}

	for _, inst := range instances {
		if _, err := inst.Settings(); err != nil {
			log.Fatalf("Problem with instance config! %v", err)
		}
	}

	filter, err := NewTopicFilter(config.Exclude)
	if err != nil {
		log.Fatalf("Problem with topic filter! %v", err)
	}

	observer := NewObserver()
	if config.CanWriteToStatsD() {
		writer, err := NewStatsDWriter(&config.StatsD)
		if err != nil {
			log.Panicf("Problem with StatsD config! %v", err)
		}

		observer.AddWriter(writer)
	}

	if config.CanWriteToInfluxDB() {
		writer, err := NewInfluxDBWriter(&config.InfluxDB)
		if err != nil {
			log.Panicf("Problem with InfluxDB config! %v", err)
		}

		observer.AddWriter(writer)
	}

	if config.CanWriteToPrometheus() {
		writer, err := NewPrometheusExporter(&config.Prometheus)
		if err != nil {
			log.Panicf("Problem with Prometheus config! %v", err)
		}

		observer.AddWriter(writer)
	}

	if config.CanWriteToDatadog() {
		writer, err := NewDatadogWriter(&config.Datadog)
		if err != nil {
			log.Panicf("Problem with Datadog config! %v", err)
		}

		observer.AddWriter(writer)
	}

	runner := NewRunner(observer, instances, filter)

	if config.Once {
		failed := runner.Observe(context.Background())
		observer.Close()
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	log.Infof("Starting rumour-check")
	go func() {
		runner.Run(ctx, config.Interval)
		close(done)
	}()

	termCh := make(chan os.Signal, 1)
	signal.Notify(termCh, os.Interrupt, syscall.SIGTERM)
	<-termCh

	log.Infof("Stopping rumour-check")
	cancel()
	<-done
	observer.Close()

	log.Infof("Done!")
}
