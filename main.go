package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/C-Sto/gowinreg/cmd"
)

func main() {
	s := cmd.Settings{}
	flag.StringVar(&s.Host, "host", "", "Remote machine to connect to")
	flag.StringVar(&s.Hive, "hive", "HKLM", "Hive: HKLM, HKCU, HKCR, HKU or HKCC")
	flag.StringVar(&s.Key, "key", "", `Key below the hive, e.g. \Software\Microsoft`)
	flag.StringVar(&s.Arch, "arch", "", "Registry view: x86, x64 or empty for the default")
	flag.StringVar(&s.Op, "op", "values", "Operation: "+strings.Join(cmd.Ops, ", "))
	flag.StringVar(&s.Name, "name", "", "Value name (empty for the default value)")
	flag.StringVar(&s.Type, "type", "REG_SZ", "Value type for set")
	flag.StringVar(&s.Value, "value", "", `Value data for set, in reg.exe form (REG_MULTI_SZ items separated by \0)`)
	flag.StringVar(&s.HiveFile, "file", "", "Read an offline hive file instead of the live registry")
	flag.StringVar(&s.Mount, "mount", "", `Path the offline hive is mounted at, e.g. HKLM\SYSTEM (defaults to the hive)`)
	flag.BoolVar(&s.JSON, "json", false, "Output JSON")
	flag.StringVar(&s.Outfile, "out", "", "Write output to this file instead of stdout")
	flag.BoolVar(&s.Verbose, "v", false, "Verbose logging")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var w io.Writer = os.Stdout
	if s.Outfile != "" {
		fmt.Println("Writing to file ", s.Outfile)
		file, err := os.OpenFile(s.Outfile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer file.Close()
		w = file
	}

	if err := cmd.Run(ctx, s, w); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		stop()
		os.Exit(1)
	}
}
