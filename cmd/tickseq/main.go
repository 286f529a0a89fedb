// Package main is the entry point for the tickseq CLI
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/tickseq/tickseq/pkg/api"
	"github.com/tickseq/tickseq/pkg/batch"
	"github.com/tickseq/tickseq/pkg/converter"
	"github.com/tickseq/tickseq/pkg/logging"
	"github.com/tickseq/tickseq/pkg/mapping"
	"github.com/tickseq/tickseq/pkg/render"
	"github.com/tickseq/tickseq/pkg/sequence"
	"github.com/tickseq/tickseq/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile    string
	mappingsFile  string
	logLevel      string
	resolution    int
	program       int
	defaultBPM    float64
	workers       int
	quantize      bool
	perInstrument bool
	serverPort    int
	imageWidth    int
	imageHeight   int
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tickseq",
	Short: "Convert between MIDI files and quantized tick sequences",
	Long: `tickseq converts standard MIDI files into fixed-resolution tick sequences
(normalized notes, pitch bends and mapped controller values on a tempo-aware
grid) and turns tick sequences back into MIDI files.

Examples:
  tickseq import song.mid -o song.ticks.json
  tickseq export song.ticks.json -o song.mid
  tickseq batch ./songs -o ./ticks --workers 8
  tickseq mappings > mappings.yaml
  tickseq render song.mid -o song.png
  tickseq tui
  tickseq serve --port 8080`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

var importCmd = &cobra.Command{
	Use:   "import <input.mid>",
	Short: "Convert a MIDI file to a tick sequence",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export <input.ticks.json>",
	Short: "Convert a tick sequence to a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Auto-detect and convert between formats",
	Long:  `Automatically detects input format and converts to the output format based on file extension.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Convert every MIDI file in a directory to tick sequences",
	Long: `Converts every .mid/.midi file directly inside dir. Files that cannot be
parsed are logged and skipped; the rest of the batch continues.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Print the controller mapping table as YAML",
	Args:  cobra.NoArgs,
	RunE:  runMappings,
}

var renderCmd = &cobra.Command{
	Use:   "render <input>",
	Short: "Draw a MIDI file or tick sequence as a piano-roll PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&mappingsFile, "mappings", "m", "", "Controller mapping table (YAML); built-in EQ mappings when empty")
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.Float64Var(&defaultBPM, "bpm", sequence.DefaultBPM, "Tempo assumed for files without tempo events")
	pf.BoolVar(&perInstrument, "per-instrument", false, "Look up controller mappings per instrument instead of on instrument 0")
	pf.BoolVar(&quantize, "quantize", false, "Quantize MIDI input before import")
	pf.IntVar(&resolution, "resolution", 0, "Ticks per quarter note of exported MIDI (default: the sequence's own)")
	pf.IntVar(&program, "program", int(converter.DefaultProgram), "General MIDI program of the exported instrument")

	importCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .ticks.json file path")
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")

	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	_ = convertCmd.MarkFlagRequired("output")

	batchCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output directory (default: next to each input)")
	batchCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Files converted at once (default: number of CPUs)")

	mappingsCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the table to a file instead of stdout")

	renderCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .png file path")
	renderCmd.Flags().IntVar(&imageWidth, "width", render.DefaultOptions.Width, "Image width")
	renderCmd.Flags().IntVar(&imageHeight, "height", render.DefaultOptions.Height, "Image height")

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(mappingsCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func setupLogging(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(os.Stderr, logLevel, "tickseq")
	if err != nil {
		return err
	}
	cmd.SetContext(logging.WithContext(cmd.Context(), logger))
	return nil
}

func loadTable() (*mapping.Table, error) {
	if mappingsFile == "" {
		return mapping.Default(), nil
	}
	return mapping.LoadFile(mappingsFile)
}

func importOptions() []converter.ImportOption {
	opts := []converter.ImportOption{converter.WithDefaultBPM(defaultBPM)}
	if perInstrument {
		opts = append(opts, converter.WithPerInstrumentMappings())
	}
	if quantize {
		opts = append(opts, converter.WithQuantize())
	}
	return opts
}

func exportOptions() []converter.ExportOption {
	opts := []converter.ExportOption{converter.WithProgram(uint8(program))}
	if resolution > 0 {
		opts = append(opts, converter.WithResolution(resolution))
	}
	return opts
}

func newConverter() (*converter.Converter, error) {
	table, err := loadTable()
	if err != nil {
		return nil, err
	}
	return converter.New(table, importOptions(), exportOptions()), nil
}

func getOutputPath(input string, to converter.Format) string {
	if outputFile != "" {
		return outputFile
	}
	return converter.OutputPath(input, to)
}

func reportDiagnostics(logger *charmlog.Logger, diag *converter.Diagnostics) {
	if diag == nil || !diag.HasAnomalies() {
		return
	}
	logger.Warn("events skipped", "count", diag.Total(), "kinds", diag.Summary())
	for _, a := range diag.Anomalies {
		logger.Debug(a.Message, "kind", a.Kind, "time", a.Time)
	}
	if diag.Truncated {
		logger.Debug("anomaly list truncated")
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	logger := logging.FromContext(cmd.Context())
	conv, err := newConverter()
	if err != nil {
		return err
	}

	input := args[0]
	output := getOutputPath(input, converter.FormatTicks)
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	seq, diag, err := conv.Importer().ImportMIDI(data)
	if err != nil {
		return err
	}
	if err := sequence.WriteFile(output, seq); err != nil {
		return err
	}

	reportDiagnostics(logger, diag)
	st := seq.Stats()
	logger.Info("converted", "input", input, "output", output, "ticks", st.Ticks, "notes", st.NoteStarts, "ccs", st.ControlChanges)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	logger := logging.FromContext(cmd.Context())
	conv, err := newConverter()
	if err != nil {
		return err
	}

	input := args[0]
	output := getOutputPath(input, converter.FormatMIDI)
	seq, err := sequence.ReadFile(input)
	if err != nil {
		return err
	}

	data, diag, err := conv.Exporter().ExportMIDI(seq)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return err
	}

	reportDiagnostics(logger, diag)
	logger.Info("converted", "input", input, "output", output, "bytes", len(data))
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	logger := logging.FromContext(cmd.Context())
	conv, err := newConverter()
	if err != nil {
		return err
	}

	input := args[0]
	logger.Info("converting", "input", input, "output", outputFile)
	diag, err := conv.ConvertFile(input, outputFile)
	if err != nil {
		return err
	}
	reportDiagnostics(logger, diag)
	logger.Info("conversion complete")
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)
	table, err := loadTable()
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := os.MkdirAll(outputFile, 0755); err != nil {
			return err
		}
	}

	loader := batch.New(converter.NewImporter(table, importOptions()...),
		batch.WithWorkers(workers),
		batch.WithOutput(outputFile))

	report, err := loader.Run(ctx, args[0])
	if report != nil {
		for _, res := range report.Failed() {
			logger.Error("failed", "file", filepath.Base(res.Input), "err", res.Err)
		}
	}
	if err != nil {
		return err
	}
	if report.Succeeded() == 0 && len(report.Results) > 0 {
		return fmt.Errorf("no files converted out of %d", len(report.Results))
	}
	return nil
}

func runMappings(cmd *cobra.Command, args []string) error {
	table, err := loadTable()
	if err != nil {
		return err
	}
	if outputFile == "" {
		return table.Encode(cmd.OutOrStdout())
	}

	f, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	if err := table.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runRender(cmd *cobra.Command, args []string) error {
	logger := logging.FromContext(cmd.Context())
	conv, err := newConverter()
	if err != nil {
		return err
	}

	input := args[0]
	var seq *sequence.Sequence
	switch converter.DetectFormat(input) {
	case converter.FormatTicks:
		seq, err = sequence.ReadFile(input)
	case converter.FormatMIDI:
		var data []byte
		if data, err = os.ReadFile(input); err == nil {
			var diag *converter.Diagnostics
			seq, diag, err = conv.Importer().ImportMIDI(data)
			reportDiagnostics(logger, diag)
		}
	default:
		return fmt.Errorf("cannot determine input format of %s", input)
	}
	if err != nil {
		return err
	}

	output := outputFile
	if output == "" {
		output = strings.TrimSuffix(converter.OutputPath(input, converter.FormatMIDI), ".mid") + ".png"
	}
	opts := render.Options{Width: imageWidth, Height: imageHeight, Labels: true}
	if err := render.SavePNG(output, seq, opts); err != nil {
		return err
	}
	logger.Info("rendered", "input", input, "output", output)
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	conv, err := newConverter()
	if err != nil {
		return err
	}
	return tui.Run(conv)
}

func runServe(cmd *cobra.Command, args []string) error {
	conv, err := newConverter()
	if err != nil {
		return err
	}
	return api.StartServer(serverPort, conv, logging.FromContext(cmd.Context()))
}
