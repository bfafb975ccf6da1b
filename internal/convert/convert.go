// Package convert turns rendered DOCX files into PDF with an external
// office suite.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ErrUnavailable is returned when no converter can run on this host.
var ErrUnavailable = errors.New("converter unavailable")

// Converter converts src into a PDF written to outDir and returns its path.
type Converter interface {
	Convert(ctx context.Context, src, outDir string) (string, error)
}

// Defaults for LibreOffice.
const (
	DefaultCommand = "soffice"
	DefaultTimeout = 2 * time.Minute
)

// LibreOffice runs soffice in headless mode. Every call gets its own user
// profile directory so concurrent conversions do not contend for the lock
// on a shared profile.
type LibreOffice struct {
	command string
	timeout time.Duration
	logger  *log.Logger
}

// Option configures LibreOffice.
type Option func(*LibreOffice)

// WithCommand sets the executable name or path.
func WithCommand(command string) Option {
	return func(c *LibreOffice) {
		if command != "" {
			c.command = command
		}
	}
}

// WithTimeout bounds a single conversion.
func WithTimeout(d time.Duration) Option {
	return func(c *LibreOffice) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *LibreOffice) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewLibreOffice returns a converter using soffice unless configured otherwise.
func NewLibreOffice(opts ...Option) *LibreOffice {
	c := &LibreOffice{
		command: DefaultCommand,
		timeout: DefaultTimeout,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether the executable can be found.
func (c *LibreOffice) Available() error {
	if _, err := exec.LookPath(c.command); err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrUnavailable, c.command)
	}
	return nil
}

// Convert implements Converter.
func (c *LibreOffice) Convert(ctx context.Context, src, outDir string) (string, error) {
	bin, err := exec.LookPath(c.command)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found in PATH", ErrUnavailable, c.command)
	}

	profile, err := os.MkdirTemp("", "docgen-soffice-")
	if err != nil {
		return "", fmt.Errorf("create converter profile: %w", err)
	}
	defer os.RemoveAll(profile)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	profileURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(profile)}
	cmd := exec.CommandContext(ctx, bin,
		"-env:UserInstallation="+profileURL.String(),
		"--headless",
		"--norestore",
		"--convert-to", "pdf",
		"--outdir", outDir,
		src,
	)
	cmd.WaitDelay = 5 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	c.logger.Debug("converting", "src", src, "command", bin)
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s timed out after %s", c.command, c.timeout)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s: %v: %s", c.command, err, strings.TrimSpace(stderr.String()))
	}

	base := filepath.Base(src)
	out := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("%s produced no output for %s: %s", c.command, base, strings.TrimSpace(stderr.String()))
	}
	c.logger.Debug("converted", "pdf", out, "took", time.Since(start))
	return out, nil
}

// Nop is a converter that never converts.
type Nop struct{}

// Convert implements Converter.
func (Nop) Convert(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("%w: conversion disabled", ErrUnavailable)
}
