package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "markitdown",
	Short:         "Convert documents to Markdown",
	Long:          `Converts PDF, Office, EPUB, HTML, email, archive, text, image and audio files to Markdown.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}
