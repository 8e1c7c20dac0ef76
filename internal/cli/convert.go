package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	jsonpatch "github.com/evanphx/json-patch"
	"github.com/flightctl/openapi-parser/internal/config"
	"github.com/flightctl/openapi-parser/internal/instrumentation/metrics"
	"github.com/flightctl/openapi-parser/internal/instrumentation/tracing"
	"github.com/flightctl/openapi-parser/pkg/openapi"
	"github.com/google/renameio"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"
)

const (
	jsonFormat = "json"
	yamlFormat = "yaml"

	serviceName = "openapi-parser"
	stdinName   = "-"
)

var (
	fileExtensions          = []string{".json", ".yaml", ".yml"}
	legalConvertOutputTypes = []string{jsonFormat, yamlFormat}
)

type ConvertOptions struct {
	GlobalOptions

	Filenames       []string
	Output          string
	RootURL         string
	OutputFile      string
	MergePatch      string
	MetricsTextfile string
}

func DefaultConvertOptions() *ConvertOptions {
	return &ConvertOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Filenames:     []string{},
		Output:        yamlFormat,
	}
}

func NewCmdConvert() *cobra.Command {
	o := DefaultConvertOptions()
	cmd := &cobra.Command{
		Use:   "convert -f FILENAME",
		Short: "Parse Swagger 2.0 or OpenAPI 3 documents and print them as OpenAPI 3.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ConvertOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringSliceVarP(&o.Filenames, "filename", "f", o.Filenames, "The documents to parse, or - for stdin.")
	annotations := make([]string, 0, len(fileExtensions))
	for _, ext := range fileExtensions {
		annotations = append(annotations, strings.TrimLeft(ext, "."))
	}
	if err := fs.SetAnnotation("filename", cobra.BashCompFilenameExt, annotations); err != nil {
		log.Fatalf("setting filename flag annotation: %v", err)
	}
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalConvertOutputTypes, ", ")))
	fs.StringVar(&o.RootURL, "root-url", o.RootURL, "Location references are resolved against. Defaults to the file URL of each input.")
	fs.StringVar(&o.OutputFile, "output-file", o.OutputFile, "Write the result atomically to this file instead of stdout.")
	fs.StringVar(&o.MergePatch, "merge-patch", o.MergePatch, "A JSON or YAML merge patch (RFC 7386) applied to every result.")
	fs.StringVar(&o.MetricsTextfile, "metrics-textfile", o.MetricsTextfile, "Write parse metrics to this .prom file when done.")
}

func (o *ConvertOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *ConvertOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if len(o.Filenames) == 0 {
		return fmt.Errorf("must specify -f FILENAME")
	}
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v (did you forget to quote wildcards?)", args)
	}
	if !slices.Contains(legalConvertOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of (%s)", strings.Join(legalConvertOutputTypes, ", "))
	}
	if lo.Count(o.Filenames, stdinName) > 1 {
		return fmt.Errorf("stdin can only be read once")
	}
	if o.OutputFile != "" && (len(o.Filenames) > 1 || strings.ContainsAny(o.Filenames[0], "*?[")) {
		return fmt.Errorf("output-file requires exactly one input document")
	}
	if o.MetricsTextfile != "" && filepath.Ext(o.MetricsTextfile) != ".prom" {
		return fmt.Errorf("metrics-textfile must end in .prom")
	}
	return nil
}

type inputDocument struct {
	name    string
	rootURL string
	data    []byte
}

func (o *ConvertOptions) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	cfg, err := o.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := o.NewLogger(cfg)
	if err != nil {
		return err
	}
	shutdown := tracing.InitTracer(logger, cfg, serviceName)
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("flushing traces")
		}
	}()

	var patch []byte
	if o.MergePatch != "" {
		if patch, err = readMergePatch(o.MergePatch); err != nil {
			return err
		}
	}

	collector := metrics.NewParserCollector(logger)
	parser := openapi.NewParser(logger,
		openapi.WithConvertOptions(convertOptionsFromConfig(cfg)),
		openapi.WithV3Parser(openapi.NewLoaderV3Parser(logger, v3OptionsFromConfig(cfg))),
		openapi.WithObserver(collector),
	)

	inputs, errs := o.readInputs(stdin)
	outputs := make([][]byte, 0, len(inputs))
	for _, in := range inputs {
		out, err := o.convert(ctx, parser, in, patch)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", in.name, err))
			continue
		}
		logger.WithField("input", in.name).Infof("converted %s to %s of OpenAPI 3", humanize.Bytes(uint64(len(in.data))), humanize.Bytes(uint64(len(out))))
		outputs = append(outputs, out)
	}

	if err := o.writeOutputs(stdout, outputs); err != nil {
		errs = append(errs, err)
	}

	textfile := o.MetricsTextfile
	if textfile == "" && cfg.Metrics != nil {
		textfile = cfg.Metrics.TextfilePath
	}
	if textfile != "" {
		if err := metrics.WriteTextfile(ctx, textfile, collector); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (o *ConvertOptions) readInputs(stdin io.Reader) ([]inputDocument, []error) {
	inputs := []inputDocument{}
	errs := make([]error, 0)
	for _, filename := range o.Filenames {
		if filename == stdinName {
			data, err := io.ReadAll(stdin)
			if err != nil {
				errs = append(errs, fmt.Errorf("reading stdin: %w", err))
				continue
			}
			inputs = append(inputs, inputDocument{name: "<stdin>", rootURL: o.RootURL, data: data})
			continue
		}
		expandedFilenames, err := expandIfFilePattern(filename)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, filename := range expandedFilenames {
			data, err := os.ReadFile(filename)
			if err != nil {
				errs = append(errs, fmt.Errorf("the path %q cannot be read: %w", filename, err))
				continue
			}
			rootURL := o.RootURL
			if rootURL == "" {
				rootURL = fileURL(filename)
			}
			inputs = append(inputs, inputDocument{name: filename, rootURL: rootURL, data: data})
		}
	}
	return inputs, errs
}

func (o *ConvertOptions) convert(ctx context.Context, parser *openapi.Parser, in inputDocument, patch []byte) ([]byte, error) {
	doc, err := parser.Parse(ctx, openapi.ParseInput{Value: in.data, RootURL: in.rootURL})
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(doc.Spec)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	if patch != nil {
		if out, err = jsonpatch.MergePatch(out, patch); err != nil {
			return nil, fmt.Errorf("applying merge patch: %w", err)
		}
	}
	switch o.Output {
	case yamlFormat:
		return yaml.JSONToYAML(out)
	default:
		var buf bytes.Buffer
		if err := json.Indent(&buf, out, "", "  "); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	}
}

func (o *ConvertOptions) writeOutputs(stdout io.Writer, outputs [][]byte) error {
	if len(outputs) == 0 {
		return nil
	}
	if o.OutputFile != "" {
		if err := renameio.WriteFile(o.OutputFile, outputs[0], 0o644); err != nil {
			return fmt.Errorf("writing %q: %w", o.OutputFile, err)
		}
		return nil
	}
	for i, out := range outputs {
		if i > 0 && o.Output == yamlFormat {
			if _, err := io.WriteString(stdout, "---\n"); err != nil {
				return err
			}
		}
		if _, err := stdout.Write(out); err != nil {
			return err
		}
	}
	return nil
}

func readMergePatch(path string) ([]byte, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading merge patch: %w", err)
	}
	patch, err := yaml.YAMLToJSON(contents)
	if err != nil {
		return nil, fmt.Errorf("decoding merge patch: %w", err)
	}
	return patch, nil
}

func convertOptionsFromConfig(cfg *config.Config) openapi.ConvertOptions {
	opts := openapi.DefaultConvertOptions()
	c := cfg.Conversion
	if c == nil {
		return opts
	}
	opts.ResolveExternalReferences = lo.FromPtrOr(c.ResolveExternalReferences, opts.ResolveExternalReferences)
	opts.ResolveInternalReferences = lo.FromPtrOr(c.ResolveInternalReferences, opts.ResolveInternalReferences)
	opts.LaxDefaults = lo.FromPtrOr(c.LaxDefaults, opts.LaxDefaults)
	opts.LaxURLs = lo.FromPtrOr(c.LaxURLs, opts.LaxURLs)
	opts.Lint = lo.FromPtrOr(c.Lint, opts.Lint)
	opts.PreValidate = lo.FromPtrOr(c.PreValidate, opts.PreValidate)
	opts.AllowStructuralAnchors = lo.FromPtrOr(c.AllowStructuralAnchors, opts.AllowStructuralAnchors)
	opts.PatchInPlace = lo.FromPtrOr(c.PatchInPlace, opts.PatchInPlace)
	return opts
}

func v3OptionsFromConfig(cfg *config.Config) openapi.V3ParserOptions {
	if cfg.Parser == nil {
		return openapi.V3ParserOptions{}
	}
	return openapi.V3ParserOptions{
		AllowExternalRefs:         cfg.Parser.AllowExternalRefs,
		DisableValidation:         cfg.Parser.DisableValidation,
		DisableExamplesValidation: cfg.Parser.DisableExamplesValidation,
	}
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

func expandIfFilePattern(pattern string) ([]string, error) {
	if _, err := os.Stat(pattern); os.IsNotExist(err) {
		matches, err := filepath.Glob(pattern)
		if err == nil && len(matches) == 0 {
			return nil, fmt.Errorf("the path %q does not exist", pattern)
		}
		if err == filepath.ErrBadPattern {
			return nil, fmt.Errorf("pattern %q is not valid: %w", pattern, err)
		}
		return matches, err
	}
	return []string{pattern}, nil
}
