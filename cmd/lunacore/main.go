// Command lunacore is the CLI front end for the core (spec §6.2),
// grounded on the teacher's plaid.go: the same urfave/cli app shape with
// Destination-bound flags threaded into a small per-file digest function,
// scaled down to this project's input (a loaded bytecode chunk, not source
// text a parser would produce).
package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/urfave/cli"

	"github.com/keix/lunacore/bytecode"
	"github.com/keix/lunacore/diagnose"
	"github.com/keix/lunacore/value"
	"github.com/keix/lunacore/vm"
)

var (
	flagNoColor      bool
	flagMaxStack     int
	flagMaxCallDepth int
	flagHookEveryN   int64
)

func configFromFlags() vm.Config {
	cfg := vm.DefaultConfig()
	if flagMaxStack > 0 {
		cfg.MaxStackSize = flagMaxStack
	}
	if flagMaxCallDepth > 0 {
		cfg.MaxCallDepth = flagMaxCallDepth
	}
	cfg.HookEveryN = flagHookEveryN
	return cfg
}

// printNative is the supplemented host hook (SPEC_FULL "Print-equivalent
// host hook"): a native function the CLI registers and installs as `print`, writing
// tostring-rendered arguments to stdout the way the teacher's OpcodePrint
// does, since the stdlib `print` function itself is out of scope.
func printNative(t *vm.Thread, args []value.Value) ([]value.Value, error) {
	for i, a := range args {
		if i > 0 {
			fmt.Print("\t")
		}
		fmt.Print(value.ToString(a))
	}
	fmt.Println()
	return nil, nil
}

func runChunk(path string) error {
	cfg := configFromFlags()
	rt := vm.New(cfg)
	defer rt.Close()

	rt.SetGlobal("print", rt.RegisterNative("print", printNative).Value())

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	cl, err := rt.LoadBytecode(data)
	if err != nil {
		fmt.Println(diagnose.Render(err, path, !flagNoColor))
		return nil
	}

	_, err = rt.ProtectedExecute(cl, nil)
	if err != nil {
		fmt.Println(diagnose.Render(err, path, !flagNoColor))
	}
	return nil
}

func checkChunk(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	rt := vm.New(vm.DefaultConfig())
	defer rt.Close()
	if _, err := rt.LoadBytecode(data); err != nil {
		fmt.Println(diagnose.Render(err, path, !flagNoColor))
		return nil
	}
	fmt.Printf("%s: ok\n", path)
	return nil
}

func disasmChunk(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	rt := vm.New(vm.DefaultConfig())
	defer rt.Close()
	cl, err := rt.LoadBytecode(data)
	if err != nil {
		fmt.Println(diagnose.Render(err, path, !flagNoColor))
		return nil
	}
	bytecode.Disassemble(os.Stdout, cl.Proto)
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "lunacore"
	app.Usage = "a register-based Lua-style bytecode core"

	noColorFlag := cli.BoolFlag{
		Name:        "no-color",
		Usage:       "hide colors in error messages",
		Destination: &flagNoColor,
	}
	maxStackFlag := cli.IntFlag{
		Name:        "max-stack",
		Usage:       "maximum value-stack size per thread",
		Destination: &flagMaxStack,
	}
	maxCallDepthFlag := cli.IntFlag{
		Name:        "max-call-depth",
		Usage:       "maximum call-frame nesting depth",
		Destination: &flagMaxCallDepth,
	}
	hookEveryFlag := cli.Int64Flag{
		Name:        "hook-every-n",
		Usage:       "instruction-count hook interval stored in vm.Config.HookEveryN (the CLI installs no hook, so this has no visible effect)",
		Destination: &flagHookEveryN,
	}

	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "load and execute a bytecode chunk",
			Flags: []cli.Flag{noColorFlag, maxStackFlag, maxCallDepthFlag, hookEveryFlag},
			Action: func(c *cli.Context) error {
				for _, path := range c.Args() {
					if err := runChunk(path); err != nil {
						fmt.Fprintf(os.Stderr, "%s: %s\n", path, err)
					}
				}
				return nil
			},
		},
		{
			Name:  "check",
			Usage: "load a bytecode chunk without executing it",
			Flags: []cli.Flag{noColorFlag},
			Action: func(c *cli.Context) error {
				for _, path := range c.Args() {
					if err := checkChunk(path); err != nil {
						fmt.Fprintf(os.Stderr, "%s: %s\n", path, err)
					}
				}
				return nil
			},
		},
		{
			Name:  "disasm",
			Usage: "disassemble a bytecode chunk",
			Flags: []cli.Flag{noColorFlag},
			Action: func(c *cli.Context) error {
				for _, path := range c.Args() {
					if err := disasmChunk(path); err != nil {
						fmt.Fprintf(os.Stderr, "%s: %s\n", path, err)
					}
				}
				return nil
			},
		},
	}

	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c)
		return nil
	}

	app.Run(os.Args)
}
