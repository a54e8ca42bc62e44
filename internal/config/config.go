// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the mail-digest service.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration.
type Config struct {
	AWS     AWSConfig     `yaml:"aws"`
	Render  RenderConfig  `yaml:"render"`
	Digest  DigestConfig  `yaml:"digest"`
	Mail    MailConfig    `yaml:"mail"`
	Logging LoggingConfig `yaml:"logging"`
}

// AWSConfig holds the shared AWS client configuration used for S3, SQS and
// Bedrock. Credentials may be left empty to use the default chain.
type AWSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// RenderConfig holds the email rendering pipeline configuration.
type RenderConfig struct {
	QueueURL         string `yaml:"queue_url"`
	HTMLBucket       string `yaml:"html_bucket"`
	AttachmentBucket string `yaml:"attachment_bucket"`
}

// DigestConfig holds the document summarization pipeline configuration.
type DigestConfig struct {
	QueueURL          string   `yaml:"queue_url"`
	ModelID           string   `yaml:"model_id"`
	Prompt            string   `yaml:"prompt"`
	Recipient         string   `yaml:"recipient"`
	CC                string   `yaml:"cc"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// MailConfig selects and configures the outbound email provider.
type MailConfig struct {
	Provider string     `yaml:"provider"`
	SES      SESConfig  `yaml:"ses"`
	SMTP     SMTPConfig `yaml:"smtp"`
}

// SESConfig holds AWS SES delivery configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// SMTPConfig holds SMTP relay delivery configuration.
type SMTPConfig struct {
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	SenderName string `yaml:"sender_name"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// RenderConfigured returns true if the render pipeline can run.
func (c *Config) RenderConfigured() bool {
	return c.Render.QueueURL != "" && c.Render.HTMLBucket != ""
}

// DigestConfigured returns true if the digest pipeline can run.
func (c *Config) DigestConfigured() bool {
	return c.Digest.QueueURL != "" &&
		c.Digest.ModelID != "" &&
		c.Digest.Recipient != ""
}

// SESConfigured returns true if the SES delivery settings are complete.
func (c *Config) SESConfigured() bool {
	return c.Mail.SES.Region != "" && c.Mail.SES.Sender != ""
}

// SMTPConfigured returns true if the SMTP delivery settings are complete.
func (c *Config) SMTPConfigured() bool {
	return c.Mail.SMTP.Host != "" &&
		c.Mail.SMTP.Port != "" &&
		c.Mail.SMTP.Username != "" &&
		c.Mail.SMTP.Password != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.AWS.Region = "us-east-1"
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.AWS.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.AWS.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.AWS.SecretAccessKey = v
	}

	if v := os.Getenv("RENDER_QUEUE_URL"); v != "" {
		c.Render.QueueURL = v
	}
	if v := os.Getenv("HTML_BUCKET"); v != "" {
		c.Render.HTMLBucket = v
	}
	if v := os.Getenv("ATTACHMENT_BUCKET"); v != "" {
		c.Render.AttachmentBucket = v
	}

	if v := os.Getenv("DIGEST_QUEUE_URL"); v != "" {
		c.Digest.QueueURL = v
	}
	if v := os.Getenv("MODEL_ID"); v != "" {
		c.Digest.ModelID = v
	}
	if v := os.Getenv("SUMMARY_PROMPT"); v != "" {
		c.Digest.Prompt = v
	}
	if v := os.Getenv("RECIPIENT_EMAIL"); v != "" {
		c.Digest.Recipient = v
	}
	if v := os.Getenv("CC_EMAIL"); v != "" {
		c.Digest.CC = v
	}
	if v := os.Getenv("ALLOWED_EXTENSIONS"); v != "" {
		c.Digest.AllowedExtensions = splitList(v)
	}

	if v := os.Getenv("MAIL_PROVIDER"); v != "" {
		c.Mail.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("SES_REGION"); v != "" {
		c.Mail.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.Mail.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.Mail.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.Mail.SES.Sender = v
	}
	if v := os.Getenv("SMTP_SERVER"); v != "" {
		c.Mail.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		c.Mail.SMTP.Port = v
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		c.Mail.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Mail.SMTP.Password = v
	}
	if v := os.Getenv("SENDER_NAME"); v != "" {
		c.Mail.SMTP.SenderName = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// splitList splits a comma-separated env value into trimmed entries.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
