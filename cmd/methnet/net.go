package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/methnet/internal/animate"
	"github.com/pdiddy/methnet/internal/layout"
	"github.com/pdiddy/methnet/internal/methnet"
	"github.com/pdiddy/methnet/internal/render"
	"github.com/pdiddy/methnet/pkg/types"
)

var netCmd = &cobra.Command{
	Use:   "net",
	Short: "Animate the citation network of a dataset",
	Long: `Net loads or downloads the dataset, places every paper and cited paper
on a circle, and draws one frame per publication year. Citation edges are
colored by the first method keyword the citing paper mentions. Frames are
assembled into <image-dir>/visualization__<gif-id>.gif; an existing GIF
with the same id is left as is.`,
	RunE: runNet,
}

func init() {
	addQueryFlags(netCmd)
	f := netCmd.Flags()
	f.String("gif-id", "", "figure identifier (default: the data id)")
	f.StringSlice("colors", nil, "one color per method, CSS name or #rrggbb")
	f.String("constant-color", "black", "far end of every edge gradient")
	f.String("none-color", "black", "edge color for papers mentioning no method")
	f.String("background", "black", "frame background color")
	f.Bool("sort-by-year", true, "order the circle by publication year")
	f.Bool("shuffle", false, "shuffle the circle order (ignored with --sort-by-year)")
	f.Int64("seed", layout.DefaultSeed, "shuffle seed")
	f.String("title", "", "figure title")
	f.Int("repeat-last", animate.DefaultRepeatLast, "extra copies of the final frame")
	f.Duration("frame-delay", animate.DefaultFrameDelay, "display time per frame")
	f.Int("size", render.DefaultSize, "frame edge in pixels")
	f.String("font", "", "TrueType font file for titles and legends")

	bindFlags(f.Lookup, map[string]string{
		"figure.colors":         "colors",
		"figure.constant_color": "constant-color",
		"figure.none_color":     "none-color",
		"figure.background":     "background",
		"figure.sort_by_year":   "sort-by-year",
		"figure.shuffle":        "shuffle",
		"figure.seed":           "seed",
		"figure.title":          "title",
		"figure.repeat_last":    "repeat-last",
		"figure.frame_delay":    "frame-delay",
		"figure.size":           "size",
		"figure.font":           "font",
	})

	rootCmd.AddCommand(netCmd)
}

func runNet(cmd *cobra.Command, args []string) error {
	opts, err := baseOptions(cmd)
	if err != nil {
		return err
	}
	opts.GIFID, _ = cmd.Flags().GetString("gif-id")
	if opts.GIFID == "" {
		opts.GIFID = opts.DataID
	}
	opts.Figure = types.FigureConfig{
		ImageDir:      viper.GetString("image_dir"),
		MethodColors:  viper.GetStringSlice("figure.colors"),
		ConstantColor: viper.GetString("figure.constant_color"),
		NoneColor:     viper.GetString("figure.none_color"),
		Background:    viper.GetString("figure.background"),
		SortByYear:    viper.GetBool("figure.sort_by_year"),
		Shuffle:       viper.GetBool("figure.shuffle"),
		Seed:          viper.GetInt64("figure.seed"),
		Title:         viper.GetString("figure.title"),
		RepeatLast:    viper.GetInt("figure.repeat_last"),
		FrameDelay:    viper.GetDuration("figure.frame_delay"),
		Size:          viper.GetInt("figure.size"),
		FontPath:      viper.GetString("figure.font"),
	}

	res, err := methnet.GetMethnet(cmd.Context(), opts)
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Printf("Figure has already been made: %s\n", res.GIFPath)
		return nil
	}
	fmt.Printf("gif:      %s\npng:      %s\nmanifest: %s\n", res.GIFPath, res.PNGPath, res.ManifestPath)
	return nil
}
