package state

import (
	"encoding/json"
	"fmt"
	"io"

	cnst "github.com/kairos-io/rollerderby/internal/constants"
	"github.com/kairos-io/rollerderby/pkg/schema"
	"gopkg.in/yaml.v3"
)

// WriteReport renders records in the given format.
func WriteReport(w io.Writer, format string, records []schema.StatusRecord) error {
	switch format {
	case cnst.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(schema.Report{Volumes: records})
	case cnst.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(schema.Report{Volumes: records}); err != nil {
			return err
		}
		return enc.Close()
	case cnst.OutputText, "":
		return writeText(w, records)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeText(w io.Writer, records []schema.StatusRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, cnst.NothingIncludedMsg)
		return err
	}
	for _, r := range records {
		if _, err := fmt.Fprintln(w, r.Name); err != nil {
			return err
		}
		var err error
		switch {
		case r.Mounted:
			_, err = fmt.Fprintf(w, "  mounted: %s\n  fs: %s\n", r.Mountpoint, r.Filesystem)
		case r.FstabMountpoint != "":
			_, err = fmt.Fprintf(w, "  (not mounted)\n  fstab: %s (%s)\n", r.FstabMountpoint, r.FstabFilesystem)
		default:
			_, err = fmt.Fprintln(w, "  (not mounted)")
		}
		if err != nil {
			return err
		}
	}
	return nil
}
