package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jamiealquiza/envy"
	log "github.com/sirupsen/logrus"
)

type CheckConfig struct {
	ConfigFile string
	Instance   Instance
	Timeout    int
	Interval   time.Duration
	Once       bool
	Exclude    StringArray
	LogLevel   string
	LogFormat  string
	StatsD     StatsDConfig
	InfluxDB   InfluxDBConfig
	Prometheus PrometheusConfig
	Datadog    DatadogConfig
}

const LogFormatText = "text"
const LogFormatJSON = "json"

const envPrefix = "RUMOUR_CHECK"

// StringArray collects a repeatable string flag.
type StringArray []string

func (a *StringArray) String() string {
	return strings.Join(*a, ",")
}

func (a *StringArray) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*a = append(*a, v)
		}
	}

	return nil
}

func (config *CheckConfig) Parse() {
	config.parse(flag.CommandLine, os.Args[1:])
}

func (config *CheckConfig) parse(fs *flag.FlagSet, args []string) {
	var clusters, tags StringArray

	fs.StringVar(&config.ConfigFile,
		"config", "", "Path to a YAML file with an instances list; overrides -url, -cluster, -tag and -timeout")
	fs.StringVar(&config.Instance.URL,
		"url", "", "The http://hostname:port of the Rumour service")
	fs.Var(&clusters,
		"cluster", "A cluster to check; other clusters will be ignored")
	fs.Var(&tags,
		"tag", "A tag to add to every metric, as key:value")
	fs.IntVar(&config.Timeout,
		"timeout", int(DefaultTimeout/time.Second), "Request timeout in seconds")
	fs.DurationVar(&config.Interval,
		"interval", 15*time.Second, "Time between checks")
	fs.BoolVar(&config.Once,
		"once", false, "Run a single check and exit")
	fs.Var(&config.Exclude,
		"exclude.topic", "A glob pattern of topic names to skip")

	fs.StringVar(&config.StatsD.Addr,
		"statsd.addr", "", "The hostname:port of a StatsD or DogStatsD endpoint")
	fs.StringVar(&config.StatsD.Namespace,
		"statsd.namespace", "", "A prefix for every StatsD metric name")
	fs.StringVar(&config.StatsD.TagFormat,
		"statsd.tag-format", TagFormatDatadog, "StatsD tag format: datadog, plain")

	fs.StringVar(&config.InfluxDB.UDPConfig.Addr,
		"influxdb.udp.addr", "", "The hostname:port of an InfluxDB UDP endpoint")
	fs.StringVar(&config.InfluxDB.HTTPConfig.Addr,
		"influxdb.http.url", "", "The http://hostname:port of an InfluxDB HTTP endpoint")
	fs.IntVar(&config.InfluxDB.BufferSize,
		"influxdb.buffer-size", 1000, "The maximum number of points to buffer before flushing to InfluxDB")
	fs.IntVar(&config.InfluxDB.FlushInterval,
		"influxdb.flush-interval", 60, "The number of seconds to wait before flushing to InfluxDB")
	fs.StringVar(&config.InfluxDB.Database,
		"influxdb.database", "", "The target InfluxDB database name")
	fs.StringVar(&config.InfluxDB.RetentionPolicy,
		"influxdb.retention-policy", "", "The target InfluxDB database retention policy name")
	fs.StringVar(&config.InfluxDB.Precision,
		"influxdb.precision", "us", "The precision of points written to InfluxDB: \"s\", \"ms\", \"us\"")

	fs.StringVar(&config.Prometheus.WebAddr,
		"prometheus.addr", "", "The hostname:port to serve Prometheus metrics on")
	fs.StringVar(&config.Prometheus.WebPath,
		"prometheus.path", "/metrics", "The path to serve Prometheus metrics on")
	fs.StringVar(&config.Prometheus.Namespace,
		"prometheus.namespace", defaultNamespace, "The namespace of the observation metrics")

	fs.StringVar(&config.Datadog.APIKey,
		"datadog.api-key", "", "Datadog API key; enables posting to the Datadog API")
	fs.StringVar(&config.Datadog.AppKey,
		"datadog.app-key", "", "Datadog app key")
	fs.StringVar(&config.Datadog.Host,
		"datadog.host", "", "Host name reported to the Datadog API")

	fs.StringVar(&config.LogLevel, "log.level", log.InfoLevel.String(), "Logging level: debug, info, warning, error")
	fs.StringVar(&config.LogFormat, "log.format", LogFormatText, "Logging format: text, json")

	showVersion := fs.Bool("version", false, "Print the current version")

	if fs == flag.CommandLine {
		envy.Parse(envPrefix)
	}
	fs.Parse(args)

	config.Instance.Clusters = clusters
	config.Instance.Tags = tags
	if config.Timeout != 0 {
		timeout := config.Timeout
		config.Instance.Timeout = &timeout
	}

	if *showVersion {
		PrintVersion(os.Stdout)
		os.Exit(0)
	}

	SetLogFormat(config.LogFormat)
	SetLogLevel(config.LogLevel)
}

// Validate rejects runtime settings the runner can't work with.
func (config *CheckConfig) Validate() error {
	if !config.Once && config.Interval <= 0 {
		return &ConfigurationError{Message: fmt.Sprintf("Invalid interval %v: must be positive", config.Interval)}
	}

	return nil
}

// Instances returns the instances to check, from the
// instances file when one is configured.
func (config *CheckConfig) Instances() ([]Instance, error) {
	if config.ConfigFile != "" {
		return LoadInstances(config.ConfigFile)
	}

	return []Instance{config.Instance}, nil
}

func (config *CheckConfig) CanWriteToStatsD() bool {
	return config.StatsD.Addr != ""
}

func (config *CheckConfig) CanWriteToInfluxDB() bool {
	return config.InfluxDB.HTTPConfig.Addr != "" || config.InfluxDB.UDPConfig.Addr != ""
}

func (config *CheckConfig) CanWriteToPrometheus() bool {
	return config.Prometheus.WebAddr != ""
}

func (config *CheckConfig) CanWriteToDatadog() bool {
	return config.Datadog.APIKey != ""
}

func SetLogFormat(f string) {
	if f == LogFormatJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{})
	}
}

func SetLogLevel(l string) {
	level, err := log.ParseLevel(l)
	if err != nil {
		log.Fatalf("Oops! %v", err)
	}

	log.SetLevel(level)
}
