package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xdevplatform/apisnippets/internal/notebook"
	"github.com/xdevplatform/apisnippets/internal/snippets"
)

// interruptSignals cancel an in-flight fetch; extended per platform.
var interruptSignals = []os.Signal{os.Interrupt}

type globalFlags struct {
	configPath string
	source     string
	debug      bool
}

func main() {
	flags := &globalFlags{}

	var rootCmd = &cobra.Command{
		Use:   "apisnippets",
		Short: "Generate documented Python snippets from an OpenAPI document",
		Long: `Reads an OpenAPI description of a REST API (by default the Onshape API)
and generates one documented Python function per endpoint and method,
collected in a Jupyter notebook grouped by API category.

The generator provides:
  - Request body templates expanded from nested schema references
  - Parameter documentation with required/optional tags and defaults
  - Section headings in the API document's own order
  - Cached document fetching with API key or bearer token auth`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			snippets.SetDebugFlags(flags.debug)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML config file (default: ~/.apisnippets/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flags.source, "source", "s", "", "OpenAPI document URL or file, overriding the config")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable verbose debug logging")

	rootCmd.AddCommand(createGenerateCmd(flags))
	rootCmd.AddCommand(createSnippetCmd(flags))
	rootCmd.AddCommand(createListCmd(flags))
	rootCmd.AddCommand(createRefreshCmd(flags))
	rootCmd.AddCommand(createCacheCmd(flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and applies the --source override.
func (f *globalFlags) loadConfig() (*snippets.GeneratorConfig, error) {
	var config *snippets.GeneratorConfig
	var err error
	if f.configPath != "" {
		config, err = snippets.LoadGeneratorConfigFile(f.configPath)
	} else {
		config, err = snippets.LoadGeneratorConfig()
	}
	if err != nil {
		return nil, err
	}

	if f.source != "" {
		if config.Source == nil {
			config.Source = &snippets.SourceConfig{}
		}
		if u, err := url.Parse(f.source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			config.Source.URL = f.source
			config.Source.File = ""
		} else {
			config.Source.File = f.source
		}
	}
	return config, nil
}

// loadDocument loads the document, cancelling the fetch on interrupt.
func (f *globalFlags) loadDocument(config *snippets.GeneratorConfig, refresh bool) (*snippets.Document, error) {
	ctx, stop := signal.NotifyContext(context.Background(), interruptSignals...)
	defer stop()
	return snippets.LoadDocument(ctx, config, refresh)
}

func createGenerateCmd(flags *globalFlags) *cobra.Command {
	var output string
	var tags []string
	var refresh bool
	var metricsFile string
	var skipValidation bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the snippet notebook",
		Long: `Generate a Jupyter notebook with one documented snippet per API operation.
Operations that cannot be emitted are reported and skipped.`,
		Run: func(cmd *cobra.Command, args []string) {
			config, err := flags.loadConfig()
			if err != nil {
				color.Red("❌ Failed to load config: %v", err)
				os.Exit(1)
			}
			out := config.GetOutputConfig()
			if output != "" {
				out.Path = output
			}
			if len(tags) > 0 {
				out.Tags = tags
			}

			doc, err := flags.loadDocument(config, refresh)
			if err != nil {
				color.Red("❌ Failed to load OpenAPI document: %v", err)
				os.Exit(1)
			}
			color.Green("✅ Loaded OpenAPI document %s (version: %s, %d operations)", doc.Info.Title, doc.Info.Version, len(doc.Operations))

			metrics := snippets.NewMetrics()
			nb := notebook.New(out.Title)
			report, err := snippets.Generate(doc, nb, snippets.GenerateOptions{
				Title:   out.Title,
				BaseURL: out.BaseURL,
				Tags:    out.Tags,
				Emitter: config.NewEmitter(),
				Metrics: metrics,
			})
			if err != nil {
				color.Red("❌ Failed to generate snippets: %v", err)
				os.Exit(1)
			}

			if err := nb.WriteFile(out.Path, out.Validate && !skipValidation); err != nil {
				color.Red("❌ %v", err)
				os.Exit(1)
			}

			for _, skipped := range report.Skipped {
				color.Yellow("⚠️  Skipped %s %s: %v", strings.ToUpper(skipped.Method), skipped.Path, skipped.Err)
			}
			color.Green("✅ Wrote %s: %s", out.Path, report.Summary())

			if metricsFile != "" {
				if err := metrics.WriteToTextfile(metricsFile); err != nil {
					color.Red("❌ Failed to write metrics: %v", err)
					os.Exit(1)
				}
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Notebook file to write (default from config)")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Only generate sections for these tags")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Force refresh of the OpenAPI document cache")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write generation metrics in Prometheus text format")
	cmd.Flags().BoolVar(&skipValidation, "no-validate", false, "Skip notebook schema validation")

	return cmd
}

func createSnippetCmd(flags *globalFlags) *cobra.Command {
	var path string
	var method string

	cmd := &cobra.Command{
		Use:   "snippet",
		Short: "Print the snippet of one operation",
		Long:  "Emit the snippet of a single (path, method) pair to stdout",
		Run: func(cmd *cobra.Command, args []string) {
			config, err := flags.loadConfig()
			if err != nil {
				color.Red("❌ Failed to load config: %v", err)
				os.Exit(1)
			}
			doc, err := flags.loadDocument(config, false)
			if err != nil {
				color.Red("❌ Failed to load OpenAPI document: %v", err)
				os.Exit(1)
			}
			snippet, err := config.NewEmitter().Emit(doc, path, method)
			if err != nil {
				color.Red("❌ %v", err)
				os.Exit(1)
			}
			fmt.Println(snippet.String())
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Endpoint path, e.g. /documents/d/{did}")
	cmd.Flags().StringVarP(&method, "method", "m", "get", "HTTP method")
	cmd.MarkFlagRequired("path")

	return cmd
}

func createListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List operations grouped by tag",
		Long:  "List every operation of the OpenAPI document in declaration order",
		Run: func(cmd *cobra.Command, args []string) {
			config, err := flags.loadConfig()
			if err != nil {
				color.Red("❌ Failed to load config: %v", err)
				os.Exit(1)
			}
			doc, err := flags.loadDocument(config, false)
			if err != nil {
				color.Red("❌ Failed to load OpenAPI document: %v", err)
				os.Exit(1)
			}
			currentTag := ""
			for i, op := range doc.Operations {
				if i == 0 || op.Tag() != currentTag {
					currentTag = op.Tag()
					color.Cyan("%s", currentTag)
				}
				status := ""
				if op.Err() != nil {
					status = color.RedString(" (%v)", op.Err())
				}
				fmt.Printf("  %-7s %s %s%s\n", strings.ToUpper(op.Method), op.Path, op.OperationID, status)
			}
		},
	}
}

func createRefreshCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh OpenAPI document cache",
		Long:  "Force refresh of the cached OpenAPI document",
		Run: func(cmd *cobra.Command, args []string) {
			config, err := flags.loadConfig()
			if err != nil {
				color.Red("❌ Failed to load config: %v", err)
				os.Exit(1)
			}
			if _, err := flags.loadDocument(config, true); err != nil {
				color.Red("❌ Failed to refresh OpenAPI document: %v", err)
				os.Exit(1)
			}
			color.Green("✅ OpenAPI document cache refreshed")
		},
	}
}

func createCacheCmd(flags *globalFlags) *cobra.Command {
	var clearCache bool

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Show or clear the OpenAPI document cache",
		Run: func(cmd *cobra.Command, args []string) {
			config, err := flags.loadConfig()
			if err != nil {
				color.Red("❌ Failed to load config: %v", err)
				os.Exit(1)
			}
			if clearCache {
				if err := snippets.ClearCache(config.GetSourceConfig()); err != nil {
					color.Red("❌ %v", err)
					os.Exit(1)
				}
				color.Green("✅ OpenAPI document cache cleared")
				return
			}
			info := snippets.GetCacheInfo(config)
			if info == nil || !info.Exists {
				color.Yellow("No cached OpenAPI document")
				return
			}
			color.Green("✅ Cached OpenAPI document at %s", info.Path)
			fmt.Printf("   modified %s (age: %s)\n", info.ModTime.Format("2006-01-02 15:04:05"), info.Age.Round(time.Second))
		},
	}

	cmd.Flags().BoolVar(&clearCache, "clear", false, "Remove the cached document")
	return cmd
}
