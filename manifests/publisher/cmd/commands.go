package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/byte4ever/manifest_pr/manifests/changeset"
	"github.com/byte4ever/manifest_pr/manifests/host"
	"github.com/byte4ever/manifest_pr/manifests/locator"
	"github.com/byte4ever/manifest_pr/manifests/publisher"
)

func newSubmitCmd(a *app) *cobra.Command {
	var (
		fork bool
		opts publisher.Options
	)

	cmd := &cobra.Command{
		Use:   "submit <dir>",
		Short: "Open a pull request adding the manifests of dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			const errCtx = "running submit"

			if cmd.Flags().Changed("fork") {
				a.settings.SubmitToFork = fork
			}

			p, cfg, err := a.publisher()
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			cs, err := changeset.LoadDir(args[0], cfg.Root, cfg.Layout)
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			res, err := p.Submit(cmd.Context(), *cs, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			return a.print(res, func() string {
				return fmt.Sprintf(
					"pull request #%d: %s\n", res.Number, res.URL,
				)
			})
		},
	}

	cmd.Flags().BoolVar(
		&fork, "fork", false,
		"Stage the branch in your fork of the upstream",
	)
	cmd.Flags().StringVar(
		&opts.Title, "title", "",
		"Pull request title (default from settings template)",
	)
	cmd.Flags().StringVar(
		&opts.ReplaceVersion, "replace-version", "",
		"Existing version whose files are removed",
	)

	return cmd
}

type located struct {
	PackageID  string            `json:"packageIdentifier"`
	Version    string            `json:"packageVersion"`
	VersionDir string            `json:"versionDir"`
	Files      map[string]string `json:"files"`
}

func newLocateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <id> [version]",
		Short: "Show the manifests of a published package version",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			const errCtx = "running locate"

			var ver string
			if len(args) == 2 {
				ver = args[1]
			}

			layout, err := locator.ParseLayout(a.settings.Layout)
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			acc, err := a.accessor()
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			l, err := locator.New(locator.Config{
				Accessor: acc,
				Repository: host.Repository{
					Owner: a.settings.Upstream.Owner,
					Name:  a.settings.Upstream.Name,
				},
				Root:   a.settings.Root,
				Layout: layout,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			ctx := cmd.Context()

			loc, err := l.Locate(ctx, args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			loc, err = l.ResolveVersion(ctx, *loc, ver)
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			files, err := l.ReadManifests(ctx, *loc)
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			out := located{
				PackageID:  loc.PackageID,
				Version:    loc.Version,
				VersionDir: loc.VersionDir,
				Files:      files,
			}

			return a.print(out, func() string {
				return fmt.Sprintf(
					"%s %s (%s, %d files)\n",
					out.PackageID, out.Version,
					out.VersionDir, len(out.Files),
				)
			})
		},
	}
}

func newWithdrawCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <number>",
		Short: "Close a pull request and delete its branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			const errCtx = "running withdraw"

			n, err := prNumber(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			p, _, err := a.publisher()
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			if err := p.Withdraw(cmd.Context(), n); err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			return nil
		},
	}
}

func newMergeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <number>",
		Short: "Merge a pull request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			const errCtx = "running merge"

			n, err := prNumber(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			p, _, err := a.publisher()
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			if err := p.Merge(cmd.Context(), n); err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			return nil
		},
	}
}

// publisher returns a Publisher together with the config
// it was built from, defaults applied.
func (a *app) publisher() (*publisher.Publisher, publisher.Config, error) {
	acc, err := a.accessor()
	if err != nil {
		return nil, publisher.Config{}, err
	}

	cfg, err := a.settings.PublisherConfig(acc)
	if err != nil {
		return nil, publisher.Config{}, err
	}

	if cfg.Root == "" {
		cfg.Root = locator.DefaultRoot
	}

	p, err := publisher.New(cfg)
	if err != nil {
		return nil, publisher.Config{}, err
	}

	return p, cfg, nil
}

func prNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid pull request number %q", arg)
	}

	return n, nil
}
