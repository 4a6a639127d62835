// command line client for the drug detection backend
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Mars1836/drug-recognition/config"
	"github.com/Mars1836/drug-recognition/internal/client"
	"github.com/Mars1836/drug-recognition/internal/pkg/preview"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	file    string
	mode    string
	apiURL  string
	preview string
	timeout time.Duration
}

// userError carries the message shown to the user; the cause is logged.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "detect",
		Short:         "Detect drugs on an image",
		Long:          `Send a drug label or packaging photo to the detection backend and print the result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, c, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "path to the image")
	cmd.Flags().StringVarP(&opts.mode, "type", "t", "", "detection type: label or packaging")
	cmd.Flags().StringVar(&opts.apiURL, "api-url", "", "backend base URL (overrides backend.base_url and API_URL)")
	cmd.Flags().StringVar(&opts.preview, "preview", "", "write a preview thumbnail to this path")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "request timeout (overrides backend.timeout)")

	return cmd
}

func run(ctx context.Context, c *cobra.Command, opts *options) error {
	viperInstance, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	backendCfg := client.BackendConfig{
		BaseURL:                    cfg.Backend.BaseURL,
		Timeout:                    cfg.Backend.Timeout,
		BreakerEnabled:             cfg.Backend.Breaker.Enabled,
		BreakerConsecutiveFailures: cfg.Backend.Breaker.ConsecutiveFailures,
		BreakerOpenTimeout:         cfg.Backend.Breaker.OpenTimeout,
	}
	if opts.apiURL != "" {
		backendCfg.BaseURL = opts.apiURL
	}
	if opts.timeout > 0 {
		backendCfg.Timeout = opts.timeout
	}

	form := client.NewForm(client.NewBackendClient(backendCfg, nil))

	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		if err := form.SelectFile(filepath.Base(opts.file), data); err != nil {
			return err
		}
		if opts.preview != "" {
			writePreview(c, data, opts.preview)
		}
	}
	if opts.mode != "" {
		if err := form.SelectMode(opts.mode); err != nil {
			return &userError{msg: client.MsgSelectType, err: err}
		}
	}

	err = form.Submit(ctx)
	view := form.View()
	if err != nil {
		return &userError{msg: view.Error, err: err}
	}

	out := c.OutOrStdout()
	if view.ProcessID != "" {
		fmt.Fprintf(out, "Process ID: %s\n", view.ProcessID)
	}
	fmt.Fprintln(out, view.ResultJSON)
	return nil
}

// Превью не обязательно: ошибка не прерывает отправку
func writePreview(c *cobra.Command, data []byte, path string) {
	thumb, err := preview.Thumbnail(data, preview.MaxSide)
	if err == nil {
		err = preview.WriteFile(path, thumb)
	}
	if err != nil {
		logrus.WithError(err).Warn("Failed to write preview")
		return
	}
	c.PrintErrf("Preview written to %s\n", path)
}

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))
	logrus.SetOutput(os.Stderr)

	if err := newRootCmd().Execute(); err != nil {
		var ue *userError
		if errors.As(err, &ue) {
			fmt.Fprintln(os.Stderr, ue.msg)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
