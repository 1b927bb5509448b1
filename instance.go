package main

import (
	"fmt"
	"io/ioutil"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTimeout applies when an
// instance doesn't set its own.
const DefaultTimeout = 5 * time.Second

// Instance is a single check instance as it appears in
// the instances file or on the command line.
type Instance struct {
	URL      string   `yaml:"url"`
	Clusters []string `yaml:"clusters"`
	Tags     []string `yaml:"tags"`
	Timeout  *int     `yaml:"timeout"`
}

type instancesFile struct {
	InitConfig map[string]interface{} `yaml:"init_config"`
	Instances  []Instance             `yaml:"instances"`
}

// Settings are the resolved form of an Instance.
type Settings struct {
	URL      *url.URL
	Clusters []string
	Tags     []string
	Timeout  time.Duration
}

// Settings validates the instance and applies defaults.
func (i Instance) Settings() (*Settings, error) {
	if i.URL == "" {
		return nil, &ConfigurationError{Message: "A url must be specified"}
	}

	base, err := url.Parse(i.URL)
	if err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("Invalid url %q: %v", i.URL, err)}
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, &ConfigurationError{Message: fmt.Sprintf("Invalid url %q: must be absolute", i.URL)}
	}

	timeout := DefaultTimeout
	if i.Timeout != nil {
		if *i.Timeout <= 0 {
			return nil, &ConfigurationError{Message: fmt.Sprintf("Invalid timeout %d: must be positive", *i.Timeout)}
		}
		timeout = time.Duration(*i.Timeout) * time.Second
	}

	return &Settings{
		URL:      base,
		Clusters: i.Clusters,
		Tags:     uniqueTags(i.Tags),
		Timeout:  timeout,
	}, nil
}

func uniqueTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tags))
	unique := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		unique = append(unique, tag)
	}

	return unique
}

// LoadInstances reads a conf.d style YAML file.
func LoadInstances(path string) ([]Instance, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return parseInstances(data)
}

func parseInstances(data []byte) ([]Instance, error) {
	var f instancesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("Invalid instances file: %v", err)}
	}

	if len(f.Instances) == 0 {
		return nil, &ConfigurationError{Message: "No instances configured"}
	}

	return f.Instances, nil
}
