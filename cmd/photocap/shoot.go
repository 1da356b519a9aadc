package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/photocap/internal/debug"
	"github.com/cjeanneret/photocap/internal/logic/capture"
)

type shootOptions struct {
	flash        string
	sound        bool
	noSound      bool
	resolveEarly bool
}

func newShootCmd(root *rootOptions) *cobra.Command {
	opts := &shootOptions{}

	cmd := &cobra.Command{
		Use:   "shoot",
		Short: "Take one photo and print its result as JSON",
		Example: `  # One photo with the config defaults
  photocap shoot

  # Force the flash and return as soon as the shutter fires
  photocap shoot --flash on --resolve-early`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := a.defaultRequest()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, &req); err != nil {
				return err
			}

			ctx, cancel := a.captureContext(cmd.Context())
			defer cancel()
			res, err := a.TakePhoto(ctx, req)
			if err != nil {
				return fmt.Errorf("capture failed: %w", err)
			}
			debug.Summary("Capture complete")

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&opts.flash, "flash", "", "flash mode: off, on or auto (default from config)")
	cmd.Flags().BoolVar(&opts.sound, "sound", false, "play the shutter sound")
	cmd.Flags().BoolVar(&opts.noSound, "no-sound", false, "never play the shutter sound")
	cmd.Flags().BoolVar(&opts.resolveEarly, "resolve-early", false, "report the result when the shutter fires, before the file is written")
	cmd.MarkFlagsMutuallyExclusive("sound", "no-sound")

	return cmd
}

// apply overrides req with the flags the user actually set.
func (o *shootOptions) apply(cmd *cobra.Command, req *capture.Request) error {
	if cmd.Flags().Changed("flash") {
		mode, err := capture.ParseFlashMode(o.flash)
		if err != nil {
			return err
		}
		req.Flash = mode
	}
	if o.sound {
		req.EnableShutterSound = true
	}
	if o.noSound {
		req.EnableShutterSound = false
	}
	if cmd.Flags().Changed("resolve-early") {
		req.ResolveEarly = o.resolveEarly
	}
	return nil
}
