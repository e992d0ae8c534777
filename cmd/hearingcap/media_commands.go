package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hearingcap/internal/convert"
	"hearingcap/internal/extract"
	"hearingcap/internal/logging"
	"hearingcap/internal/services"
)

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "detect <url>",
		Short: "Classify a hearing URL without fetching it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := ctx.buildPipeline()
			if err != nil {
				return err
			}
			detection := p.Orchestrator.DetectPlatform(args[0])
			if asJSON {
				return writeJSON(cmd, detection)
			}
			rows := [][]string{
				{"Platform", detection.Platform},
				{"Type", detection.CongressionalType},
				{"Committee", orDash(detection.Committee)},
				{"Confidence", strconv.FormatFloat(detection.Confidence, 'f', 2, 64)},
				{"Recommended", orDash(detection.RecommendedExtractor)},
				{"Extractors", strings.Join(detection.AvailableExtractors, ", ")},
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var platform string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Find candidate media streams for a hearing page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := ctx.buildPipeline()
			if err != nil {
				return err
			}
			result, err := p.Orchestrator.ExtractStreams(cmd.Context(), args[0], platform)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extractor: %s (%s)\n", result.Extractor, result.Detection.Platform)
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Format", "Source", "URL"},
				streamRows(result.Streams),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "Preferred extractor (isvp, youtube)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		output        string
		format        string
		quality       string
		platform      string
		durationLimit time.Duration
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "convert <url>",
		Short: "Extract a hearing stream and convert it to audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(output) == "" {
				return errors.New("--output is required")
			}
			p, logger, err := ctx.buildPipeline()
			if err != nil {
				return err
			}
			extracted, err := p.Orchestrator.ExtractStreams(cmd.Context(), args[0], platform)
			if err != nil {
				return err
			}
			req := convert.Request{DurationLimit: durationLimit, Format: format, Quality: quality}
			var result convert.ConversionResult
			for _, stream := range extracted.Streams {
				result = p.Converter.Convert(cmd.Context(), stream, output, req)
				if result.Success {
					break
				}
				logger.Warn("stream conversion failed; trying next candidate",
					logging.String(logging.FieldURL, stream.URL),
					logging.String("error_kind", services.Kind(result.Err)),
					logging.String("reason", result.ErrorMessage),
				)
			}
			if asJSON {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else if result.Success {
				printConversion(cmd, result)
			}
			if !result.Success {
				return result.Err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output audio file")
	cmd.Flags().StringVar(&format, "format", "", "Audio format (wav, mp3, flac); defaults to the output extension")
	cmd.Flags().StringVar(&quality, "quality", "", "Quality preset (low, medium, high)")
	cmd.Flags().StringVar(&platform, "platform", "", "Preferred extractor (isvp, youtube)")
	cmd.Flags().DurationVar(&durationLimit, "duration-limit", 0, "Stop after this much audio (e.g. 90s)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printConversion(cmd *cobra.Command, result convert.ConversionResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s (%d bytes)\n", result.OutputPath, result.FileSizeBytes)
	if result.DurationSeconds != nil {
		fmt.Fprintf(out, "Duration: %s\n", (time.Duration(*result.DurationSeconds * float64(time.Second))).Round(time.Second))
	}
}

func streamRows(streams []extract.StreamDescriptor) [][]string {
	rows := make([][]string, 0, len(streams))
	for i, stream := range streams {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			stream.FormatType,
			orDash(stream.Meta(extract.MetaSource)),
			stream.URL,
		})
	}
	return rows
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
