package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/flightctl/openapi-parser/pkg/openapi"
	"github.com/flightctl/openapi-parser/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"
)

var (
	legalVersionOutputTypes = []string{jsonFormat, yamlFormat}
)

type VersionOptions struct {
	Output string
}

const (
	cliVersionTitle     = "openapi-parser version"
	conversionTitle     = "conversion options"
	conversionVerFormat = "%s: v%d %s\n"
)

type conversionInfo struct {
	Version  int                    `json:"version"`
	Defaults openapi.ConvertOptions `json:"defaults"`
}

func DefaultVersionOptions() *VersionOptions {
	return &VersionOptions{
		Output: "",
	}
}

func NewCmdVersion() *cobra.Command {
	o := DefaultVersionOptions()
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print openapi-parser version information.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *VersionOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalVersionOutputTypes, ", ")))
}

func (o *VersionOptions) Complete(cmd *cobra.Command, args []string) error {
	return nil
}

func (o *VersionOptions) Validate(args []string) error {
	if len(o.Output) > 0 && !slices.Contains(legalVersionOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of (%s)", strings.Join(legalVersionOutputTypes, ", "))
	}
	return nil
}

func (o *VersionOptions) Run(ctx context.Context, w io.Writer) error {
	cliVersion := version.Get()
	conversion := conversionInfo{
		Version:  openapi.ConvertOptionsVersion,
		Defaults: openapi.DefaultConvertOptions(),
	}
	versions := map[string]any{
		cliVersionTitle: &cliVersion,
		conversionTitle: &conversion,
	}

	switch o.Output {
	case "":
		defaults, err := json.Marshal(conversion.Defaults)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %s\n", cliVersionTitle, cliVersion.String())
		fmt.Fprintf(w, conversionVerFormat, conversionTitle, conversion.Version, defaults)
	case yamlFormat:
		marshalled, err := yaml.Marshal(&versions)
		if err != nil {
			return err
		}
		fmt.Fprint(w, string(marshalled))
	case jsonFormat:
		marshalled, err := json.MarshalIndent(&versions, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(marshalled))
	default:
		// There is a bug in the program if we hit this case.
		// However, we follow a policy of never panicking.
		return fmt.Errorf("VersionOptions were not validated: --output=%q should have been rejected", o.Output)
	}

	return nil
}
