package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/QuangTung97/redisalloc"
)

func newSizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "size <size> <align>",
		Short: "Print the size requested from the host for a layout",
		Example: `  redisalloc size 17 16
  redisalloc size 5 8`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := parseLayout(args[0], args[1])
			if err != nil {
				return err
			}
			return runSize(cmd, l)
		},
	}
}

func parseLayout(sizeArg, alignArg string) (redisalloc.Layout, error) {
	size, err := strconv.ParseUint(sizeArg, 0, 64)
	if err != nil {
		return redisalloc.Layout{}, fmt.Errorf("invalid size %q: %w", sizeArg, err)
	}
	align, err := strconv.ParseUint(alignArg, 0, 64)
	if err != nil {
		return redisalloc.Layout{}, fmt.Errorf("invalid align %q: %w", alignArg, err)
	}
	if uint64(uintptr(size)) != size || uint64(uintptr(align)) != align {
		return redisalloc.Layout{}, fmt.Errorf("size or align does not fit in uintptr")
	}
	return redisalloc.NewLayout(uintptr(size), uintptr(align))
}

func runSize(cmd *cobra.Command, l redisalloc.Layout) error {
	adjusted, ok := l.AdjustedSize()
	if !ok {
		return fmt.Errorf("size %d with align %d overflows", l.Size, l.Align)
	}
	fmt.Fprintln(cmd.OutOrStdout(), adjusted)
	return nil
}
