package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/MrSud0/Base64-to-Zip/internal/archive"
	"github.com/MrSud0/Base64-to-Zip/internal/b64"
	"github.com/MrSud0/Base64-to-Zip/internal/pipeline"
	"github.com/MrSud0/Base64-to-Zip/internal/sniff"
)

const Version = "1.0.0"

// errUsage marks bad command-line input so it exits with code 2.
var errUsage = errors.New("usage")

// Config holds the application configuration
type Config struct {
	Verbose     bool
	Quiet       bool
	JSONOutput  bool
	Keep        bool
	AnalyzeOnly bool
	InputSource string
	OutputDir   string
	Format      string
	Password    string
	MaxSize     string
	Keywords    []string
}

// Logger provides colorized logging functionality with thread safety
type Logger struct {
	config *Config
	mutex  sync.RWMutex
	red    func(a ...interface{}) string
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	blue   func(a ...interface{}) string
	cyan   func(a ...interface{}) string
}

// NewLogger creates a new logger instance
func NewLogger(config *Config) *Logger {
	return &Logger{
		config: config,
		red:    color.New(color.FgRed).SprintFunc(),
		green:  color.New(color.FgGreen).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		blue:   color.New(color.FgBlue).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
	}
}

func (l *Logger) logf(level, format string, color func(a ...interface{}) string, args ...interface{}) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	if !l.config.Quiet {
		fmt.Fprintf(os.Stderr, color("["+level+"] ")+format+"\n", args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.logf("ERROR", format, l.red, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf("WARN", format, l.yellow, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.logf("INFO", format, l.green, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.config.Verbose {
		l.logf("DEBUG", format, l.blue, args...)
	}
}

func (l *Logger) Success(format string, args ...interface{}) {
	l.logf("SUCCESS", format, l.green, args...)
}

// readInput resolves the input source: "-" or empty reads stdin, an
// existing file is read from disk, anything else is treated as a
// literal base64 string.
func readInput(source string, logger *Logger) (string, error) {
	if source == "" || source == "-" {
		logger.Info("Reading base64 data from stdin")
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		logger.Info("Reading base64 data from file: %s", source)
		data, err := os.ReadFile(source)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", source, err)
		}
		return string(data), nil
	}
	logger.Info("Using provided base64 string")
	return source, nil
}

// promptPassword asks for a zip password on the controlling terminal.
// Stdin may already be consumed by the payload, so /dev/tty is opened
// directly; when there is no terminal the caller keeps the original
// PasswordRequired error.
func promptPassword(logger *Logger) (string, bool) {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return "", false
	}
	defer tty.Close()
	if !term.IsTerminal(int(tty.Fd())) {
		return "", false
	}
	fmt.Fprint(os.Stderr, "Archive is encrypted. Password: ")
	pw, err := term.ReadPassword(int(tty.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		logger.Debug("Password prompt failed: %v", err)
		return "", false
	}
	return string(pw), len(pw) > 0
}

// parseSize parses human-friendly byte ceilings like "512M" or "2G".
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, nil
	}
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1<<10, s[:len(s)-1]
	case strings.HasSuffix(s, "M"):
		mult, s = 1<<20, s[:len(s)-1]
	case strings.HasSuffix(s, "G"):
		mult, s = 1<<30, s[:len(s)-1]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}

// formatBytes formats byte size in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// exitCodeFor maps error kinds to stable exit codes for scripting.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, errUsage) {
		return 2
	}
	switch archive.KindOf(err) {
	case archive.InvalidEncoding, archive.EmptyArchive:
		return 3
	case archive.FormatMismatch, archive.UnsupportedFormat:
		return 4
	case archive.PasswordRequired, archive.PasswordIncorrect:
		return 5
	case archive.PathTraversal, archive.SizeLimitExceeded:
		return 6
	case archive.CorruptArchive:
		return 7
	default:
		return 9
	}
}

func run(config *Config) error {
	logger := NewLogger(config)

	input, err := readInput(config.InputSource, logger)
	if err != nil {
		return err
	}

	opts := pipeline.RunOptions{
		OutputDir:   config.OutputDir,
		Password:    config.Password,
		AnalyzeOnly: config.AnalyzeOnly,
		Keep:        config.Keep || config.AnalyzeOnly,
	}
	if config.Format != "" {
		format, ok := sniff.ParseFormat(config.Format)
		if !ok {
			return fmt.Errorf("%w: unknown format %q (choose from %s)", errUsage, config.Format, strings.Join(sniff.Formats(), ", "))
		}
		opts.Format, opts.Forced = format, true
		logger.Info("Forcing archive format: %s", format)
	}
	if config.MaxSize != "" {
		limit, err := parseSize(config.MaxSize)
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		opts.MaxBytes = limit
	}
	if len(config.Keywords) > 0 {
		opts.Keywords = config.Keywords
	}

	var bar *progressbar.ProgressBar
	if !config.Quiet && !config.JSONOutput {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Extracting"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
		)
		opts.Progress = func(archive.Entry) { bar.Add(1) }
	}

	outcome, err := pipeline.Run(input, opts)
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	// Encrypted archive and no password on the command line: ask once
	// on the terminal and re-run. Never fall back to an empty password.
	if archive.IsKind(err, archive.PasswordRequired) && config.Password == "" {
		if pw, ok := promptPassword(logger); ok {
			opts.Password = pw
			outcome, err = pipeline.Run(input, opts)
		}
	}

	if outcome != nil {
		logger.Debug("Decoded %d bytes, format %s", outcome.PayloadSize, outcome.Format)
		if outcome.KeptPath != "" {
			logger.Info("Saved decoded payload: %s", outcome.KeptPath)
		}
	}
	if err != nil {
		return err
	}

	if outcome.Result != nil && outcome.Result.RarDetected {
		logger.Warn("RAR archive detected; extraction is not supported")
	}

	if config.JSONOutput {
		return json.NewEncoder(os.Stdout).Encode(outcome.Report)
	}
	printSummary(logger, config, outcome)
	return nil
}

func printSummary(logger *Logger, config *Config, outcome *pipeline.Outcome) {
	rep := outcome.Report
	verb := "Extracted"
	if config.AnalyzeOnly {
		verb = "Analyzed"
	}
	logger.Success("%s %s archive: %d files, %d directories, %s",
		verb, logger.cyan(rep.Format), rep.TotalFiles, rep.TotalDirs, formatBytes(rep.TotalBytes))
	if rep.Skipped > 0 {
		logger.Info("Skipped %d unsupported entries", rep.Skipped)
	}
	if !config.AnalyzeOnly {
		logger.Success("Output: %s", logger.cyan(config.OutputDir))
	}

	const maxDisplay = 20
	for i, f := range rep.Files {
		if i >= maxDisplay {
			fmt.Printf("  ... and %d more files\n", len(rep.Files)-maxDisplay)
			break
		}
		fmt.Printf("  %8s  %s\n", formatBytes(f.Size), f.Path)
	}
	if len(rep.Interesting) > 0 {
		logger.Warn("Potentially interesting files:")
		for _, path := range rep.Interesting {
			fmt.Printf("  %s\n", logger.yellow(path))
		}
	}
}

func main() {
	app := &cli.Command{
		Name:    "base64-to-zip",
		Usage:   "Decode base64 payloads and safely extract the archive inside",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Input file, '-' for stdin, or a literal base64 string"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "extracted_files", Usage: "Output directory"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Force archive format (" + strings.Join(sniff.Formats(), ", ") + ")"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password for encrypted zip archives"},
			&cli.StringFlag{Name: "max-size", Usage: "Cumulative decompressed size ceiling, e.g. 512M (default 1G)"},
			&cli.StringSliceFlag{Name: "interesting", Usage: "Override the interesting-filename keyword list"},
			&cli.BoolFlag{Name: "keep", Aliases: []string{"k"}, Usage: "Keep the decoded archive file under the output directory"},
			&cli.BoolFlag{Name: "analyze-only", Aliases: []string{"a"}, Usage: "Decode and list contents without extracting"},
			&cli.BoolFlag{Name: "json", Usage: "Emit the summary as JSON on stdout"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Suppress all output except errors"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "Enable debug output"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			config := &Config{
				Verbose:     c.Bool("debug"),
				Quiet:       c.Bool("quiet"),
				JSONOutput:  c.Bool("json"),
				Keep:        c.Bool("keep"),
				AnalyzeOnly: c.Bool("analyze-only"),
				InputSource: c.String("input"),
				OutputDir:   c.String("output"),
				Format:      c.String("format"),
				Password:    c.String("password"),
				MaxSize:     c.String("max-size"),
				Keywords:    c.StringSlice("interesting"),
			}

			args := c.Args()
			if args.Len() > 0 && config.InputSource == "" {
				config.InputSource = args.Get(0)
			}
			if config.Quiet && config.Verbose {
				config.Verbose = false
			}

			if err := run(config); err != nil {
				NewLogger(config).Error("%v", err)
				return cli.Exit("", exitCodeFor(err))
			}
			return nil
		},
		Commands: []*cli.Command{{
			Name:    "sniff",
			Aliases: []string{"detect"},
			Usage:   "Decode the payload and print the detected archive format",
			Action: func(ctx context.Context, c *cli.Command) error {
				config := &Config{Quiet: true, InputSource: c.Args().First()}
				input, err := readInput(config.InputSource, NewLogger(config))
				if err != nil {
					return cli.Exit(err.Error(), 9)
				}
				payload, err := b64.Decode(input)
				if err != nil {
					return cli.Exit(err.Error(), 3)
				}
				fmt.Println(sniff.Detect(payload))
				return nil
			},
		}},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if ec, ok := err.(cli.ExitCoder); ok {
			os.Exit(ec.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
