package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tsawler/markitdown"
	"github.com/tsawler/markitdown/config"
	"github.com/tsawler/markitdown/model"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file|->",
	Short: "Convert a document to Markdown",
	Long: `Converts a file, or standard input when the argument is "-", and writes
the Markdown to standard output or to --output.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

// Flags for the convert command.
var (
	outputPath string
	annotate   bool
	configPath string
	pdfMode    string
	logLevel   string
	logFormat  string
	extension  string
	mimeType   string
)

func init() {
	f := convertCmd.Flags()
	f.StringVarP(&outputPath, "output", "o", "", "Write Markdown to this file instead of stdout")
	f.BoolVar(&annotate, "annotate", false, "Prefix every segment with an annotation line")
	f.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	f.StringVar(&pdfMode, "mode", "", "PDF extraction mode: auto, intelligence, embedded or image-only")
	f.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	f.StringVar(&logFormat, "log-format", "", "Log format: text or json")
	f.StringVarP(&extension, "extension", "x", "", "Extension hint for standard input, such as .html")
	f.StringVar(&mimeType, "mime-type", "", "MIME type hint")

	rootCmd.AddCommand(convertCmd)
}

// loadConfig reads --config, or the defaults, and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("annotate") {
		cfg.Annotate = annotate
	}
	if flags.Changed("mode") {
		cfg.PDF.Mode = pdfMode
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	opts, closer, err := cfg.Options(logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	md := markitdown.New(opts...)
	ctx := cmd.Context()

	var res *model.Result
	if args[0] == "-" {
		info := model.StreamInfo{Extension: extension, MIMEType: mimeType}
		res, err = md.ConvertReader(ctx, cmd.InOrStdin(), info)
	} else {
		res, err = convertPath(cmd, md, args[0])
	}
	if err != nil {
		return err
	}

	if outputPath == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Markdown)
		return err
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, []byte(res.Markdown+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"output":    outputPath,
		"converter": res.Metadata[model.MetaConverter],
		"segments":  len(res.Segments),
	}).Info("converted")
	return nil
}

// convertPath converts a file, honouring the extension and MIME hints.
func convertPath(cmd *cobra.Command, md *markitdown.MarkItDown, path string) (*model.Result, error) {
	if extension == "" && mimeType == "" {
		return md.ConvertFile(cmd.Context(), path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	info := model.StreamInfo{
		Filename:  filepath.Base(path),
		LocalPath: path,
		Extension: extension,
		MIMEType:  mimeType,
	}
	return md.ConvertStream(cmd.Context(), f, info)
}
