package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"gcbmprep/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that every input file exists and can be read",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	v := validation.NewFileValidator(logger)

	if err := v.ValidateOutputDirectory(paths.OutputDir); err != nil {
		return err
	}
	err := v.Validate(validation.Inputs(paths))

	var verr *validation.Error
	if errors.As(err, &verr) {
		for _, p := range verr.Problems {
			fmt.Fprintln(out, p)
		}
		return fmt.Errorf("%d input problems", len(verr.Problems))
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "all inputs ok")
	return nil
}
