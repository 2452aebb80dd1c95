package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cosim/cosim/ctrlregs"
)

var regsCmd = &cobra.Command{
	Use:   "regs",
	Short: "Print the control register map.",
	Long: "`regs` prints the offset, width and direction of every control " +
		"register. With --probe, it also reads every register of a freshly " +
		"reset kernel model over the control bus.",
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		probe, err := c.Flags().GetBool("probe")
		if err != nil {
			return err
		}

		if !probe {
			printRegisterMap(c.OutOrStdout(), nil)
			return nil
		}

		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		return probeRegisters(c.OutOrStdout(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(regsCmd)
	addSessionFlags(regsCmd)
	regsCmd.Flags().Bool("probe", false,
		"Read the registers of a kernel model.")
}

func probeRegisters(out io.Writer, cfg config) error {
	s, err := newSession(cfg)
	if err != nil {
		return err
	}

	values, err := s.client.Snapshot()
	if err != nil {
		_ = s.close()
		return err
	}

	printRegisterMap(out, values)

	return s.close()
}

func printRegisterMap(out io.Writer, values map[ctrlregs.Field]uint64) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprint(w, "name\toffset\twidth\tdirection")
	if values != nil {
		fmt.Fprint(w, "\tvalue")
	}
	fmt.Fprintln(w)

	for _, f := range ctrlregs.Fields() {
		fmt.Fprintf(w, "%s\t0x%02x\t%d\t%s",
			f.Name(), f.Offset(), f.Width(), f.Direction())

		if values != nil {
			fmt.Fprintf(w, "\t0x%x", values[f])
		}

		fmt.Fprintln(w)
	}

	w.Flush()
}
