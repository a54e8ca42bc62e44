// Package main is the entry point for the mail-digest worker.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/shineum/mail-digest/internal/config"
	"github.com/shineum/mail-digest/internal/pipeline"
	"github.com/shineum/mail-digest/internal/provider"
	"github.com/shineum/mail-digest/internal/provider/ses"
	"github.com/shineum/mail-digest/internal/provider/smtp"
	"github.com/shineum/mail-digest/internal/provider/stdout"
	"github.com/shineum/mail-digest/internal/queue"
	"github.com/shineum/mail-digest/internal/storage"
	"github.com/shineum/mail-digest/internal/summarizer"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	setupLogger(cfg.Logging.Level)

	if !cfg.RenderConfigured() && !cfg.DigestConfigured() {
		slog.Error("no pipeline configured: set RENDER_QUEUE_URL/HTML_BUCKET or DIGEST_QUEUE_URL/MODEL_ID/RECIPIENT_EMAIL")
		os.Exit(1)
	}

	awsCfg, err := loadAWSConfig(cfg)
	if err != nil {
		slog.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	store := storage.New(awsCfg)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, initiating shutdown", "signal", sig)
		cancel()
	}()

	var wg sync.WaitGroup

	if cfg.RenderConfigured() {
		renderer := pipeline.NewRenderer(store, cfg.Render.HTMLBucket)
		var extractor *pipeline.Extractor
		if cfg.Render.AttachmentBucket != "" {
			extractor = pipeline.NewExtractor(store, cfg.Render.AttachmentBucket, cfg.Digest.AllowedExtensions)
		}

		slog.Info("starting render pipeline",
			"queue", cfg.Render.QueueURL,
			"html_bucket", cfg.Render.HTMLBucket,
			"attachment_bucket", cfg.Render.AttachmentBucket,
		)
		runConsumer(ctx, &wg, cancel, queue.New(awsCfg, cfg.Render.QueueURL),
			func(ctx context.Context, refs []queue.ObjectRef) error {
				for _, ref := range refs {
					if err := renderer.Process(ctx, ref.Bucket, ref.Key); err != nil {
						return err
					}
					if extractor != nil {
						if err := extractor.Process(ctx, ref.Bucket, ref.Key); err != nil {
							return err
						}
					}
				}
				return nil
			})
	}

	if cfg.DigestConfigured() {
		mailer := selectProvider(cfg)
		digester := pipeline.NewDigester(pipeline.DigesterConfig{
			Store:             store,
			Summarizer:        summarizer.New(awsCfg, cfg.Digest.ModelID, cfg.Digest.Prompt),
			Mailer:            mailer,
			Recipient:         cfg.Digest.Recipient,
			CC:                cfg.Digest.CC,
			AllowedExtensions: cfg.Digest.AllowedExtensions,
		})

		slog.Info("starting digest pipeline",
			"queue", cfg.Digest.QueueURL,
			"model", cfg.Digest.ModelID,
			"provider", mailer.Name(),
		)
		runConsumer(ctx, &wg, cancel, queue.New(awsCfg, cfg.Digest.QueueURL),
			func(ctx context.Context, refs []queue.ObjectRef) error {
				for _, ref := range refs {
					if err := digester.Process(ctx, ref.Bucket, ref.Key); err != nil {
						return err
					}
				}
				return nil
			})
	}

	wg.Wait()
	slog.Info("mail-digest stopped")
}

// runConsumer starts a queue consumer in its own goroutine. A consumer error
// shuts down the whole worker.
func runConsumer(ctx context.Context, wg *sync.WaitGroup, cancel context.CancelFunc, c *queue.Consumer, handle queue.Handler) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := c.Run(ctx, handle); err != nil {
			slog.Error("consumer error", "error", err)
			cancel()
		}
	}()
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// loadAWSConfig builds the shared AWS client configuration for S3, SQS and
// Bedrock. Explicit credentials take precedence over the default chain.
func loadAWSConfig(cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.AccessKeyID != "" && cfg.AWS.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(context.Background(), opts...)
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectProvider chooses the email delivery backend based on configuration.
// If MAIL_PROVIDER is set, it takes precedence. Otherwise, it falls back to
// auto-detection (SES if configured, then SMTP, else stdout).
func selectProvider(cfg *config.Config) provider.Provider {
	switch cfg.Mail.Provider {
	case "ses":
		if !cfg.SESConfigured() {
			slog.Error("SES provider selected but SES_REGION and SES_SENDER are required")
			os.Exit(1)
		}
		return newSESProvider(cfg)

	case "smtp":
		if !cfg.SMTPConfigured() {
			slog.Error("SMTP provider selected but SMTP_SERVER, SMTP_PORT, SMTP_USER, and SMTP_PASSWORD are required")
			os.Exit(1)
		}
		slog.Info("using SMTP provider", "host", cfg.Mail.SMTP.Host)
		return newSMTPProvider(cfg)

	case "stdout":
		slog.Info("using stdout provider")
		return stdout.New()

	case "":
		// Auto-detection fallback
		if cfg.SESConfigured() {
			return newSESProvider(cfg)
		}
		if cfg.SMTPConfigured() {
			slog.Info("using SMTP provider (auto-detected)", "host", cfg.Mail.SMTP.Host)
			return newSMTPProvider(cfg)
		}
		slog.Info("no mail provider configured, using stdout provider")
		return stdout.New()

	default:
		slog.Error("unknown mail provider", "provider", cfg.Mail.Provider)
		os.Exit(1)
		return nil
	}
}

func newSESProvider(cfg *config.Config) provider.Provider {
	slog.Info("using AWS SES provider",
		"region", cfg.Mail.SES.Region,
		"sender", cfg.Mail.SES.Sender,
	)
	p, err := ses.New(context.Background(), ses.SESProviderConfig{
		Region:          cfg.Mail.SES.Region,
		AccessKeyID:     cfg.Mail.SES.AccessKeyID,
		SecretAccessKey: cfg.Mail.SES.SecretAccessKey,
		Sender:          cfg.Mail.SES.Sender,
	})
	if err != nil {
		slog.Error("failed to create SES provider", "error", err)
		os.Exit(1)
	}
	return p
}

func newSMTPProvider(cfg *config.Config) provider.Provider {
	return smtp.New(smtp.SMTPProviderConfig{
		Host:       cfg.Mail.SMTP.Host,
		Port:       cfg.Mail.SMTP.Port,
		Username:   cfg.Mail.SMTP.Username,
		Password:   cfg.Mail.SMTP.Password,
		SenderName: cfg.Mail.SMTP.SenderName,
	})
}
