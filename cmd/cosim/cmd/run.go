package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <schedule>",
	Short: "Run a schedule on the kernel model.",
	Long: "`run <schedule>` loads the schedule into the memory bank, starts " +
		"the kernel through the control registers, and reports the " +
		"registers and the log words once the kernel is done.",
	Args: cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		if cfg.runs, err = c.Flags().GetInt("runs"); err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		sched, err := parseSchedule(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		return runSchedule(c.OutOrStdout(), cfg, sched)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addSessionFlags(runCmd)
	runCmd.Flags().Int("runs", 1, "Number of times to run the schedule.")
}

func runSchedule(out io.Writer, cfg config, sched schedule) error {
	s, err := newSession(cfg)
	if err != nil {
		return err
	}

	var bar interface{ IncrementFinished(uint64) }
	if s.monitor != nil {
		pb := s.monitor.CreateProgressBar("Kernel runs", uint64(cfg.runs))
		defer s.monitor.CompleteProgressBar(pb)
		bar = pb
	}

	for i := 0; i < cfg.runs; i++ {
		res, err := s.run(sched)
		if err != nil {
			_ = s.close()
			return fmt.Errorf("run %d: %w", i, err)
		}

		printResult(out, i, res)

		if bar != nil {
			bar.IncrementFinished(1)
		}
	}

	fmt.Fprintf(out, "total cycles: %d\n", s.driver.Now())

	return s.close()
}

func printResult(out io.Writer, run int, res runResult) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "run\t%d\n", run)
	fmt.Fprintf(w, "cycles\t%d\n", res.Cycles)
	fmt.Fprintf(w, "boot cycles\t%d\n", res.BootCycles)
	fmt.Fprintf(w, "virtual cycles\t%d\n", res.VCycles)
	fmt.Fprintf(w, "status\t0x%x\n", res.Status)
	fmt.Fprintf(w, "exceptions\t%v\n", res.Exceptions)

	for i, word := range res.Log {
		fmt.Fprintf(w, "log[%d]\t0x%x\n", i, word)
	}

	w.Flush()
}
