package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/fbind/internal/errors"
	"github.com/vango-dev/fbind/pkg/compiler"
	"github.com/vango-dev/fbind/pkg/dom"
	"github.com/vango-dev/fbind/pkg/scope"
	"github.com/vango-dev/fbind/pkg/source"
)

type renderOptions struct {
	scope    string
	sets     []string
	selector string
	output   string
	fragment bool
	annotate bool
	strict   bool
}

func renderCmd(flags *globalFlags) *cobra.Command {
	opts := renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Compile a template against scope data and print the result",
		Long: `Compile a template against scope data and print the rendered HTML.

The template may be a file, "-" for standard input, or an s3:// URL.
Scope data is JSON, or YAML for .yaml/.yml locations. Individual values
can be set with --set; values are parsed as JSON and fall back to strings.

Examples:
  fbind render page.html --scope data.json
  fbind render page.html --set user.name=Ada --set items='[1,2,3]'
  fbind render s3://site/page.html --el "#app" --fragment`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, flags, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.scope, "scope", "", "Scope data location")
	cmd.Flags().StringArrayVar(&opts.sets, "set", nil, "Set a scope value (path=value)")
	cmd.Flags().StringVar(&opts.selector, "el", "body", "Container to mount: #id, .class or tag")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write to a file instead of standard output")
	cmd.Flags().BoolVar(&opts.fragment, "fragment", false, "Print only the container's content")
	cmd.Flags().BoolVar(&opts.annotate, "annotate", false, "Mark elements with listeners with "+dom.IDAttr)
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when any directive could not be compiled")

	return cmd
}

func runRender(cmd *cobra.Command, flags *globalFlags, opts renderOptions, template string) error {
	cfg, logger, err := flags.setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	loader := newLoader(cmd, cfg, logger)

	doc, err := loader.Template(ctx, template)
	if err != nil {
		return err
	}
	s, err := loader.Scope(ctx, opts.scope)
	if err != nil {
		return err
	}
	if err := applySets(s, opts.sets); err != nil {
		return err
	}

	container := dom.Find(doc, opts.selector)
	if container == nil {
		return errors.New("B009").WithDetailf("selector %q matched nothing in %s", opts.selector, template)
	}

	comp := compiler.New(compilerOptions(cfg, logger)...)
	view, err := comp.Mount(ctx, container, s)
	if err != nil {
		return err
	}
	defer view.Destroy()

	problems := view.Errors()
	for _, perr := range problems {
		warn(cmd.ErrOrStderr(), "%s", perr)
	}

	var out string
	switch {
	case opts.fragment && opts.annotate:
		out, err = view.RenderAnnotated()
	case opts.fragment:
		out, err = view.Render()
	case opts.annotate:
		out, err = comp.Document().RenderAnnotated(doc)
	default:
		out, err = dom.Render(doc)
	}
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(out+"\n"), 0644); err != nil {
			return errors.FromError(err, "S200").WithDetail(opts.output)
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}

	if opts.strict && len(problems) > 0 {
		return errors.Newf(errors.CategoryBinding, "%d directive error(s) in %s", len(problems), template)
	}
	return nil
}

// applySets writes "path=value" assignments into s.
func applySets(s *scope.Object, sets []string) error {
	for _, set := range sets {
		path, raw, ok := strings.Cut(set, "=")
		path = strings.TrimSpace(path)
		if !ok || path == "" {
			return errors.New("C101").WithDetailf("--set %q: expected path=value", set)
		}
		if err := s.Set(path, source.ParseValue(raw)); err != nil {
			return errors.FromError(err, "C101").WithDetailf("--set %q", set)
		}
	}
	return nil
}
