package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dormitory-forms/internal/forms"
	"dormitory-forms/pkg/types"
	"dormitory-forms/pkg/validator"
)

// 表单种类
const (
	formAccommodation = "accommodation"
	formContract      = "contract"
)

// ErrFormInvalid 取值未通过验证（命令以非零状态退出）
var ErrFormInvalid = errors.New("form values are invalid")

type validateOptions struct {
	form          string
	file          string
	groups        string
	centuryPrefix string
	today         string
}

func newValidateCmd() *cobra.Command {
	opts := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate saved form values",
		Long: `Validate a JSON object of form values and print the result.

Accommodation forms check the group against a catalogue file mapping faculty
ids to their groups, e.g. {"3": [{"id": 12, "name": "KN-21", "course": 2}]}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.form, "form", formAccommodation, "Form kind: accommodation or contract")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "JSON file with form values")
	cmd.Flags().StringVar(&opts.groups, "groups", "", "JSON group catalogue (accommodation only)")
	cmd.Flags().StringVar(&opts.centuryPrefix, "century", types.DefaultCenturyPrefix, "Century prefix for two-digit years")
	cmd.Flags().StringVar(&opts.today, "today", "", "Override today's date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runValidate(out io.Writer, opts *validateOptions) error {
	var values types.Values
	if err := readJSON(opts.file, &values); err != nil {
		return err
	}

	v := validator.New()
	var (
		schema *validator.Schema
		err    error
	)
	switch opts.form {
	case formAccommodation:
		catalog := forms.StaticCatalog{}
		if opts.groups != "" {
			if err := readJSON(opts.groups, &catalog); err != nil {
				return err
			}
		}
		now := time.Now
		if opts.today != "" {
			day, perr := time.ParseInLocation(types.ISODateLayout, opts.today, time.Local)
			if perr != nil {
				return fmt.Errorf("--today: %w", perr)
			}
			now = func() time.Time { return day }
		}
		schema, err = forms.BuildAccommodationSchema(v, forms.Context{
			Groups:        catalog,
			CenturyPrefix: opts.centuryPrefix,
			Now:           now,
		})
	case formContract:
		schema, err = forms.BuildContractSchema(v, opts.centuryPrefix)
	default:
		return fmt.Errorf("unknown form %q", opts.form)
	}
	if err != nil {
		return err
	}

	result := schema.Validate(values)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.IsValid() {
		return fmt.Errorf("%w: %d field(s)", ErrFormInvalid, result.Len())
	}
	return nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
