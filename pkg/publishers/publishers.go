// Package publishers notifies external sinks (HTTP endpoints, SQS, SNS, Pub/Sub) that a
// report has been written.
package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Supported publisher types.
	TypeQueue = "queue"
	TypeHTTP  = "http"

	// Supported queue providers.
	QueueProviderAWSSQS = "aws-sqs"
	QueueProviderAWSSNS = "aws-sns"
	QueueProviderGCP    = "gcp"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// configFile is the layout of the publishers file.
type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig is one publisher entry.
type PublisherConfig struct {
	ID      string                `json:"id" yaml:"id"`
	Type    string                `json:"type" yaml:"type"`
	Enabled *bool                 `json:"enabled" yaml:"enabled"`
	Queue   *QueuePublisherConfig `json:"queue" yaml:"queue"`
	HTTP    *HTTPPublisherConfig  `json:"http" yaml:"http"`
}

// QueuePublisherConfig selects a cloud queue provider.
type QueuePublisherConfig struct {
	Provider string          `json:"provider" yaml:"provider"`
	SQS      *AWSQueueConfig `json:"sqs" yaml:"sqs"`
	SNS      *AWSQueueConfig `json:"sns" yaml:"sns"`
	GCP      *GCPQueueConfig `json:"gcp" yaml:"gcp"`
}

// AWSQueueConfig addresses an SQS queue (Target = queue url) or SNS topic (Target = topic arn).
type AWSQueueConfig struct {
	Target          string `json:"target" yaml:"target"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// GCPQueueConfig addresses a Pub/Sub topic.
type GCPQueueConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPPublisherConfig holds webhook settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// EnabledValue returns the enabled flag, defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// LoadConfigs reads, env-expands, normalizes and validates a YAML or JSON publishers file
// and returns the enabled entries.
func LoadConfigs(path string) ([]PublisherConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	file, err := decodeConfigFile([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(file.Publishers))
	var enabled []PublisherConfig
	for i, cfg := range file.Publishers {
		cfg = normalize(cfg)
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		if cfg.EnabledValue() {
			enabled = append(enabled, cfg)
		}
	}
	return enabled, nil
}

// decodeConfigFile picks the decoder from the extension, trying YAML then JSON when unknown.
func decodeConfigFile(data []byte, ext string) (configFile, error) {
	decoders := map[string]func([]byte, any) error{
		".yaml": yaml.Unmarshal,
		".yml":  yaml.Unmarshal,
		".json": json.Unmarshal,
	}

	ext = strings.ToLower(strings.TrimSpace(ext))
	if fn, ok := decoders[ext]; ok {
		var file configFile
		if err := fn(data, &file); err != nil {
			return configFile{}, fmt.Errorf("decode publishers file: %w", err)
		}
		return file, nil
	}

	for _, fn := range []func([]byte, any) error{yaml.Unmarshal, json.Unmarshal} {
		var file configFile
		if err := fn(data, &file); err == nil {
			return file, nil
		}
	}
	return configFile{}, errors.New("publishers file format not recognized (expected YAML or JSON)")
}

func normalize(cfg PublisherConfig) PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if cfg.Queue != nil {
		q := *cfg.Queue
		q.Provider = strings.ToLower(strings.TrimSpace(q.Provider))
		q.SQS = normalizeAWS(q.SQS)
		q.SNS = normalizeAWS(q.SNS)
		if q.GCP != nil {
			g := *q.GCP
			g.ProjectID = strings.TrimSpace(g.ProjectID)
			g.Topic = strings.TrimSpace(g.Topic)
			g.CredentialsFile = strings.TrimSpace(g.CredentialsFile)
			q.GCP = &g
		}
		cfg.Queue = &q
	}

	if cfg.HTTP != nil {
		h := *cfg.HTTP
		h.URL = strings.TrimSpace(h.URL)
		h.Method = strings.ToUpper(strings.TrimSpace(h.Method))
		if h.Method == "" {
			h.Method = httpDefaultMethod
		}
		h.Headers = normalizeHeaders(h.Headers)
		if h.TimeoutSeconds <= 0 {
			h.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		cfg.HTTP = &h
	}
	return cfg
}

func normalizeAWS(cfg *AWSQueueConfig) *AWSQueueConfig {
	if cfg == nil {
		return nil
	}
	a := *cfg
	a.Target = strings.TrimSpace(a.Target)
	a.Region = strings.TrimSpace(a.Region)
	a.AccessKeyID = strings.TrimSpace(a.AccessKeyID)
	a.SecretAccessKey = strings.TrimSpace(a.SecretAccessKey)
	return &a
}

// normalizeHeaders trims keys and values and drops empty ones.
func normalizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key, val := strings.TrimSpace(k), strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func validate(cfg PublisherConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}

	switch cfg.Type {
	case TypeQueue:
		if cfg.Queue == nil {
			return fmt.Errorf("queue config required for publisher %q", cfg.ID)
		}
		switch cfg.Queue.Provider {
		case QueueProviderAWSSQS:
			return validateAWS(cfg.ID, "sqs", cfg.Queue.SQS)
		case QueueProviderAWSSNS:
			return validateAWS(cfg.ID, "sns", cfg.Queue.SNS)
		case QueueProviderGCP:
			g := cfg.Queue.GCP
			if g == nil || g.ProjectID == "" || g.Topic == "" {
				return fmt.Errorf("gcp.project_id and gcp.topic are required for publisher %q", cfg.ID)
			}
			return nil
		default:
			return fmt.Errorf("queue provider %q not supported for publisher %q", cfg.Queue.Provider, cfg.ID)
		}
	case TypeHTTP:
		if cfg.HTTP == nil || cfg.HTTP.URL == "" {
			return fmt.Errorf("http.url is required for publisher %q", cfg.ID)
		}
		return nil
	case "":
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	default:
		return fmt.Errorf("type %q not supported for publisher %q", cfg.Type, cfg.ID)
	}
}

func validateAWS(id, name string, cfg *AWSQueueConfig) error {
	if cfg == nil {
		return fmt.Errorf("%s config required for publisher %q", name, id)
	}
	fields := []struct{ name, val string }{
		{"target", cfg.Target},
		{"region", cfg.Region},
		{"access_key_id", cfg.AccessKeyID},
		{"secret_access_key", cfg.SecretAccessKey},
	}
	for _, f := range fields {
		if f.val == "" {
			return fmt.Errorf("%s.%s is required for publisher %q", name, f.name, id)
		}
	}
	return nil
}
