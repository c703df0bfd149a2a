package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chaos-io/yeezyframe/apperr"
	"github.com/chaos-io/yeezyframe/export"
	"github.com/chaos-io/yeezyframe/model"
	"github.com/chaos-io/yeezyframe/pipeline"
	"github.com/chaos-io/yeezyframe/surface"
	"github.com/chaos-io/yeezyframe/util"
	nhttp "github.com/chaos-io/yeezyframe/util/http"
)

type composeOptions struct {
	image       string
	out         string
	passthrough bool
	transform   surface.Transform
}

func newComposeCmd(a *app) *cobra.Command {
	opts := &composeOptions{}

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose one image with the overlay and export it as PNG",
		Example: `  yeezyframe compose --image me.jpg --out ./output
  yeezyframe compose --image https://example.com/me.png --scale-x 0.8 --scale-y 0.8 --dx 40`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := a.cfg
			if opts.transform.ScaleX < 0 || opts.transform.ScaleY < 0 {
				return apperr.Validation("scale must not be negative")
			}
			if opts.out == "" {
				opts.out = cfg.Export.Dir
			}

			file, err := util.ReadFile(ctx, nhttp.NewHTTPClient(nhttp.WithTimeout(cfg.Removal.Timeout)), opts.image)
			if err != nil {
				return apperr.Validation("read %s: %v", opts.image, err)
			}

			remover, store := newRemover(ctx, cfg, nil, opts.passthrough)
			defer func() {
				_ = store.Close()
			}()

			p := pipeline.NewFromConfig(cfg, remover)
			comp, err := p.Select(ctx, model.SourceImage{
				Name:        file.Name,
				ContentType: file.ContentType,
				Data:        file.Data,
			})
			if err != nil {
				return err
			}

			if opts.transform != (surface.Transform{}) {
				if _, err := p.Manipulate(comp.ID, opts.transform); err != nil {
					return err
				}
			}

			d := export.NewDirDownloader(opts.out)
			artifact, err := p.Export(ctx, comp.ID, d)
			if err != nil {
				return err
			}

			path, err := filepath.Abs(d.Path(artifact))
			if err != nil {
				path = d.Path(artifact)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.image, "image", "i", "", "local path or http(s) url of the photo")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output directory (default: export.dir)")
	cmd.Flags().BoolVar(&opts.passthrough, "passthrough", false, "skip background removal, use the image as cutout")
	cmd.Flags().Float64Var(&opts.transform.DX, "dx", 0, "move the overlay horizontally")
	cmd.Flags().Float64Var(&opts.transform.DY, "dy", 0, "move the overlay vertically")
	cmd.Flags().Float64Var(&opts.transform.ScaleX, "scale-x", 0, "scale the overlay horizontally (0 keeps it)")
	cmd.Flags().Float64Var(&opts.transform.ScaleY, "scale-y", 0, "scale the overlay vertically (0 keeps it)")
	cmd.Flags().Float64Var(&opts.transform.Angle, "angle", 0, "rotate the overlay clockwise in degrees")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}
