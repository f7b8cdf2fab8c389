package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tracesmith/tracesmith/pkg/blob"
	"github.com/tracesmith/tracesmith/pkg/dataset"
	"github.com/tracesmith/tracesmith/pkg/render"
	"github.com/tracesmith/tracesmith/pkg/reports"
	"github.com/tracesmith/tracesmith/pkg/topology"
	"github.com/tracesmith/tracesmith/pkg/trace"
)

var (
	Version   = "v1.0.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(os.Args[2:])
	case "analyze":
		err = runAnalyze(os.Args[2:])
	case "convert":
		err = runConvert(os.Args[2:])
	case "archive":
		err = runArchive(os.Args[2:])
	case "version":
		fmt.Printf("tracesmith %s (%s, built %s)\n", Version, Commit, BuildTime)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Println("Usage: tracesmith <generate|analyze|convert|archive|version> [flags]")
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var (
		preset       = fs.String("topology", "", "predefined topology: simple|microservices|complex")
		topologyFile = fs.String("topology-file", "", "load topology from a JSON or YAML file")
		randomTopo   = fs.Bool("random-topology", false, "generate a random topology")

		numTraces = fs.Int("num-traces", 1000, "number of traces to generate")
		level     = fs.Float64("randomization", 0.3, "randomization level (0.0 to 1.0)")
		numGroups = fs.Int("num-groups", 3, "number of performance groups")
		seed      = fs.Int64("seed", 0, "random seed for reproducible generation")

		numServices = fs.Int("num-services", 10, "random topology: number of services")
		maxDepth    = fs.Int("max-depth", 3, "random topology: maximum call chain depth")
		maxWidth    = fs.Int("max-width", 3, "random topology: maximum fan-out per service")
		groups      = fs.Int("service-groups", 2, "random topology: number of service groups")
		variability = fs.Float64("variability", 0.3, "random topology: connection variability (0.0 to 1.0)")

		jsonOut      = fs.String("json", "", "output JSON file path")
		csvOut       = fs.String("csv", "", "output CSV file path")
		noPretty     = fs.Bool("no-pretty", false, "don't pretty-print JSON output")
		preview      = fs.Bool("preview", false, "preview generated traces in the console")
		previewMax   = fs.Int("preview-max", 5, "maximum number of traces to preview")
		saveTopology = fs.String("save-topology", "", "save the service topology to a file")
	)
	fs.Parse(args)

	topo, name, err := buildTopology(*preset, *topologyFile, *randomTopo, topology.RandomSpec{
		NumServices: *numServices,
		MaxDepth:    *maxDepth,
		MaxWidth:    *maxWidth,
		NumGroups:   *groups,
		Variability: *variability,
		Seed:        *seed,
	})
	if err != nil {
		return err
	}
	log.Printf("using %s topology with %d services", name, topo.Len())

	if *saveTopology != "" {
		if err := topology.SaveFile(topo, *saveTopology); err != nil {
			return fmt.Errorf("failed to save topology: %w", err)
		}
		log.Printf("saved topology to %s", *saveTopology)
	}

	synth, err := trace.NewSynthesizer(topo, trace.NewProfile(*level, *numGroups), trace.Options{Seed: *seed})
	if err != nil {
		return err
	}
	log.Printf("generating %d traces", *numTraces)
	hierarchies, err := synth.Generate(*numTraces)
	if err != nil {
		return err
	}
	ds := dataset.Assemble(hierarchies)

	if *preview {
		out, err := render.Tree(ds, render.Options{MaxTraces: *previewMax, ShowMetadata: true})
		if err != nil {
			return err
		}
		fmt.Println("=== Trace Preview ===")
		fmt.Print(out)
	}

	if *csvOut != "" {
		if err := writeReport(ds, reports.ReportFormatCSV, *csvOut, reports.ReportParams{}); err != nil {
			return err
		}
		log.Printf("saved %d records to %s", len(ds), *csvOut)
	}

	jsonPath := *jsonOut
	if jsonPath == "" && *csvOut == "" {
		jsonPath = fmt.Sprintf("traces_%s_%d_%s.json", name, *numTraces, time.Now().Format("20060102_150405"))
	}
	if jsonPath != "" {
		if err := writeReport(ds, reports.ReportFormatJSON, jsonPath, reports.ReportParams{Pretty: !*noPretty}); err != nil {
			return err
		}
		log.Printf("saved %d records to %s", len(ds), jsonPath)
	}
	return nil
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	var (
		traceID   = fs.String("trace", "", "trace id to analyze (shows the full hierarchy)")
		maxTraces = fs.Int("max-traces", 10, "maximum number of root traces in the summary")
		regroup   = fs.Bool("regroup", false, "regroup traces by hierarchy and save")
		output    = fs.String("output", "", "output file for regrouped traces (required with -regroup)")
	)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: tracesmith analyze [flags] <input.json>")
	}
	inputFile := fs.Arg(0)

	ds, err := loadDataset(inputFile)
	if err != nil {
		return err
	}
	log.Printf("loaded %d records from %s", len(ds), inputFile)

	if *traceID != "" {
		out, err := render.Hierarchy(ds, *traceID, render.Options{ShowMetadata: true})
		if err != nil {
			return err
		}
		fmt.Printf("=== Trace Hierarchy for ID: %s ===\n", *traceID)
		fmt.Print(out)
	} else {
		if err := writeReportTo(os.Stdout, ds, reports.ReportFormatSummary, reports.ReportParams{MaxTraces: *maxTraces}); err != nil {
			return err
		}
	}

	if *regroup {
		if *output == "" {
			return fmt.Errorf("-output is required with -regroup")
		}
		grouped, err := dataset.Regroup(ds)
		if err != nil {
			return err
		}
		if err := writeReport(grouped, reports.ReportFormatJSON, *output, reports.ReportParams{Pretty: true}); err != nil {
			return err
		}
		log.Printf("regrouped %d records into %s", len(grouped), *output)
	}
	return nil
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	noPretty := fs.Bool("no-pretty", false, "don't pretty-print JSON output")
	fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: tracesmith convert [flags] <input.json> <output.json|output.csv>")
	}
	inputFile, outputFile := fs.Arg(0), fs.Arg(1)

	ds, err := loadDataset(inputFile)
	if err != nil {
		return err
	}

	var format reports.ReportFormat
	switch strings.ToLower(filepath.Ext(outputFile)) {
	case ".json":
		format = reports.ReportFormatJSON
	case ".csv":
		format = reports.ReportFormatCSV
	default:
		return fmt.Errorf("unsupported output extension: %s", filepath.Ext(outputFile))
	}

	if err := writeReport(ds, format, outputFile, reports.ReportParams{Pretty: !*noPretty}); err != nil {
		return err
	}
	log.Printf("converted %d records from %s to %s", len(ds), inputFile, outputFile)
	return nil
}

func runArchive(args []string) error {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	root := fs.String("root", "archives", "blob store root directory")
	fs.Parse(args)
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: tracesmith archive [flags] <export <input.json> | import <key> <output.json> | list>")
	}

	st := blob.NewLocalStore(*root)
	ctx := context.Background()

	switch fs.Arg(0) {
	case "export":
		ds, err := loadDataset(fs.Arg(1))
		if err != nil {
			return err
		}
		key, err := dataset.Export(ctx, st, ds)
		if err != nil {
			return err
		}
		log.Printf("exported %d records to %s", len(ds), key)
		return nil
	case "import":
		if fs.NArg() != 3 {
			return fmt.Errorf("usage: tracesmith archive import <key> <output.json>")
		}
		ds, err := dataset.Import(ctx, st, fs.Arg(1))
		if err != nil {
			return err
		}
		if err := writeReport(ds, reports.ReportFormatJSON, fs.Arg(2), reports.ReportParams{Pretty: true}); err != nil {
			return err
		}
		log.Printf("imported %d records into %s", len(ds), fs.Arg(2))
		return nil
	default:
		return fmt.Errorf("unknown archive action: %s", fs.Arg(0))
	}
}

func buildTopology(preset, file string, random bool, spec topology.RandomSpec) (*topology.Topology, string, error) {
	switch {
	case random:
		topo, err := topology.Generate(spec)
		return topo, "random", err
	case file != "":
		topo, err := topology.LoadFile(file)
		return topo, filepath.Base(file), err
	default:
		if preset == "" {
			preset = string(topology.PresetMicroservices)
		}
		topo, err := topology.FromPreset(topology.Preset(preset))
		return topo, preset, err
	}
}

func loadDataset(path string) (dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return reports.LoadJSON(f)
}

func writeReport(ds dataset.Dataset, format reports.ReportFormat, path string, params reports.ReportParams) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return writeReportTo(f, ds, format, params)
}

func writeReportTo(w io.Writer, ds dataset.Dataset, format reports.ReportFormat, params reports.ReportParams) error {
	gen, err := reports.NewReportGenerator(format, ds)
	if err != nil {
		return err
	}
	out, err := gen.Generate(context.Background(), params)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
