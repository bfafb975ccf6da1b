package cli

import (
	"cmp"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sistemadual/docgen/internal/marker"
	"github.com/sistemadual/docgen/internal/preprocess"
	"github.com/sistemadual/docgen/pkg/docgen"
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

func (c *CLI) inspectCommand() *cobra.Command {
	var profileName string
	cmd := &cobra.Command{
		Use:   "inspect TEMPLATE",
		Short: "List the markers a template contains",
		Long: `List the row markers and cell sentinels the structural passes would act
on, without changing the template.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			path, err := c.generator(logger).ResolveTemplate(args[0])
			if err != nil {
				return err
			}
			profile := marker.ForTemplate(path)
			if profileName != "" {
				profile = marker.Lookup(profileName)
			}
			findings, err := inspectTemplate(path, profile)
			if err != nil {
				return err
			}

			printTitle(c.out, path)
			printKeyValue(c.out, "profile", cmp.Or(profile.Name, "none"))
			if len(findings) == 0 {
				printInfo(c.out, "no markers found")
				return nil
			}
			for _, f := range findings {
				printKeyValue(c.out, f.Location, fmt.Sprintf("%s  %q", f.Kind, f.Text))
			}
			printInfo(c.out, "%d markers", len(findings))
			return nil
		},
	}
	cmd.Flags().StringVar(&profileName, "profile", "", "marker profile (anexo51, anexo54)")
	return cmd
}

func inspectTemplate(path string, profile marker.Profile) ([]preprocess.Finding, error) {
	pkg, err := docgen.OpenFile(path)
	if err != nil {
		return nil, err
	}
	tree, err := pkg.Document()
	if err != nil {
		return nil, err
	}
	body := xml.Body(tree.Root())
	if body == nil {
		return nil, fmt.Errorf("%s has no document body", path)
	}
	return preprocess.Inspect(body, profile), nil
}
