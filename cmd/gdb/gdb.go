package gdb

import (
	"github.com/spf13/cobra"
)

// GdbCmd groups the GDB remote-debugging commands
var GdbCmd = &cobra.Command{
	Use:   "gdb",
	Short: "GDB remote serial protocol tools",
	Long:  `Commands for attaching external source-level debuggers (GDB, IDA, LLDB) to the emulated guest over the GDB remote serial protocol.`,
}
