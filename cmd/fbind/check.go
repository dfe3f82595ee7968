package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/vango-dev/fbind/internal/errors"
	"github.com/vango-dev/fbind/pkg/compiler"
	"github.com/vango-dev/fbind/pkg/dom"
)

func checkCmd(flags *globalFlags) *cobra.Command {
	var (
		scopeLoc string
		selector string
	)

	cmd := &cobra.Command{
		Use:   "check <template>...",
		Short: "Report directive errors in templates",
		Long: `Compile each template and report directives that cannot be
compiled: unknown kinds, f-if combined with f-for, missing properties,
unparsable expressions and similar.

Exits non-zero when any problem is found.

Examples:
  fbind check page.html
  fbind check templates/*.html --scope data.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			loader := newLoader(cmd, cfg, logger)
			out := cmd.OutOrStdout()
			s, err := loader.Scope(ctx, scopeLoc)
			if err != nil {
				return err
			}

			total := 0
			for _, template := range args {
				doc, err := loader.Template(ctx, template)
				if err != nil {
					return err
				}
				container := dom.Find(doc, selector)
				if container == nil {
					return errors.New("B009").WithDetailf("selector %q matched nothing in %s", selector, template)
				}

				comp := compiler.New(compilerOptions(cfg, logger)...)
				directives := countDirectives(container, comp.Classifier())
				view, err := comp.Mount(ctx, container, s)
				if err != nil {
					return err
				}
				problems := view.Errors()
				bindings := view.Bindings()
				view.Destroy()

				if len(problems) == 0 {
					success(out, "%s: %d directive(s), %d binding(s)", template, directives, bindings)
					continue
				}
				warn(out, "%s: %d problem(s)", template, len(problems))
				for _, perr := range problems {
					info(out, "%s", perr)
				}
				total += len(problems)
			}

			if total > 0 {
				return errors.Newf(errors.CategoryBinding, "%d problem(s) found", total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scopeLoc, "scope", "", "Scope data location")
	cmd.Flags().StringVar(&selector, "el", "body", "Container to mount: #id, .class or tag")

	return cmd
}

func countDirectives(root *html.Node, cl compiler.Classifier) int {
	n := 0
	dom.Walk(root, func(node *html.Node) bool {
		if node.Type != html.ElementNode {
			return true
		}
		for _, a := range node.Attr {
			if _, ok := cl.Classify(a.Key); ok {
				n++
			}
		}
		return true
	})
	return n
}
